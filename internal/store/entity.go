package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/dgraph-io/badger/v4"
)

// Entity provides generic document operations for one collection.
type Entity[T any] struct {
	store   *Store
	prefix  string
	indexes []Index[T]
}

// Index defines a unique secondary index on an entity.
type Index[T any] struct {
	name   string
	keyGen func(*T) []string
}

// NewEntity creates a collection of T stored under prefix.
func NewEntity[T any](s *Store, prefix string) *Entity[T] {
	return &Entity[T]{store: s, prefix: prefix}
}

// WithIndex adds a unique secondary index to the entity.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, keyGen: keyGen})
	return e
}

// Create stores entity under id.
// Returns ErrAlreadyExists if id or any of its index values is taken.
func (e *Entity[T]) Create(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.store.update(ctx, func(txn *badger.Txn) error {
		_, err := e.read(txn, id)
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		return e.put(txn, id, nil, entity)
	})
}

// Get retrieves an entity by ID.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *T
	err := e.store.view(func(txn *badger.Txn) error {
		var err error
		out, err = e.read(txn, id)
		return err
	})
	return out, err
}

// GetByIndex retrieves the entity whose index value equals value.
func (e *Entity[T]) GetByIndex(ctx context.Context, indexName, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *T
	err := e.store.view(func(txn *badger.Txn) error {
		id, err := e.lookup(txn, indexName, value)
		if err != nil {
			return err
		}
		out, err = e.read(txn, id)
		return err
	})
	return out, err
}

// GetManyByIndex resolves every value in one read transaction and returns
// the matches keyed by index value. Values without a match are absent.
func (e *Entity[T]) GetManyByIndex(ctx context.Context, indexName string, values []string) (map[string]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found := make(map[string]*T, len(values))
	err := e.store.view(func(txn *badger.Txn) error {
		for _, v := range values {
			if _, seen := found[v]; seen {
				continue
			}
			id, err := e.lookup(txn, indexName, v)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			entity, err := e.read(txn, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			found[v] = entity
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Update replaces an existing entity and rewrites its index entries.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) Update(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.store.update(ctx, func(txn *badger.Txn) error {
		old, err := e.read(txn, id)
		if err != nil {
			return err
		}
		return e.put(txn, id, old, entity)
	})
}

// Seed creates the document that MutateByIndex upserts when nothing matches.
type Seed[T any] func() (id string, entity *T, err error)

// MutateByIndex applies fn to the entity a secondary index value points at
// and writes the result in the same transaction. Concurrent mutations of one
// entity are serialized by retrying on conflict, so no update is lost.
// When no entity matches and seed is non-nil, the seeded entity is created
// and fn is applied to it. With a nil seed a miss returns ErrNotFound.
func (e *Entity[T]) MutateByIndex(ctx context.Context, indexName, value string, fn func(*T) error, seed Seed[T]) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *T
	err := e.store.update(ctx, func(txn *badger.Txn) error {
		var (
			current *T
			old     *T
		)
		id, err := e.lookup(txn, indexName, value)
		switch {
		case err == nil:
			if current, err = e.read(txn, id); err != nil {
				return err
			}
			old = current
		case errors.Is(err, ErrNotFound) && seed != nil:
			if id, current, err = seed(); err != nil {
				return fmt.Errorf("seed document: %w", err)
			}
			if _, err := e.read(txn, id); err == nil {
				return ErrAlreadyExists
			}
		default:
			return err
		}

		next, err := e.apply(current, fn)
		if err != nil {
			return err
		}
		out = next
		return e.put(txn, id, old, next)
	})
	return out, err
}

// Delete deletes an entity and its index entries.
// Deleting a missing entity is not an error.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.store.update(ctx, func(txn *badger.Txn) error {
		entity, err := e.read(txn, id)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, idx := range e.indexes {
			for _, v := range idx.keyGen(entity) {
				if err := txn.Delete([]byte(e.prefix + indexMarker + idx.name + ":" + v)); err != nil {
					return fmt.Errorf("delete index key: %w", err)
				}
			}
		}
		if err := txn.Delete([]byte(e.prefix + id)); err != nil {
			return fmt.Errorf("delete key: %w", err)
		}
		return nil
	})
}

// List returns an iterator over all entities in key order.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		err := e.store.view(func(txn *badger.Txn) error {
			it := e.newIterator(txn)
			defer it.Close()

			for e.seekRecords(it, []byte(e.prefix)); it.ValidForPrefix([]byte(e.prefix)); e.nextRecord(it) {
				if err := ctx.Err(); err != nil {
					return err
				}
				entity, err := e.decode(it.Item())
				if err != nil {
					return err
				}
				if !yield(entity, nil) {
					return errStopped
				}
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopped) {
			yield(nil, err)
		}
	}
}

// Page returns up to limit entities whose id sorts after the cursor, plus the
// cursor for the next page. The returned cursor is empty on the last page.
func (e *Entity[T]) Page(ctx context.Context, after string, limit int) ([]*T, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	if limit <= 0 {
		return nil, "", ErrInvalidInput.WithCause(fmt.Errorf("page limit %d", limit))
	}

	var (
		items  []*T
		next   string
		lastID string
	)
	err := e.store.view(func(txn *badger.Txn) error {
		it := e.newIterator(txn)
		defer it.Close()

		start := []byte(e.prefix + after)
		for e.seekRecords(it, start); it.ValidForPrefix([]byte(e.prefix)); e.nextRecord(it) {
			key := it.Item().Key()
			if after != "" && bytes.Equal(key, start) {
				continue
			}
			if len(items) == limit {
				next = lastID
				return nil
			}
			entity, err := e.decode(it.Item())
			if err != nil {
				return err
			}
			items = append(items, entity)
			lastID = string(key[len(e.prefix):])
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return items, next, nil
}

var errStopped = errors.New("iteration stopped")

func (e *Entity[T]) newIterator(txn *badger.Txn) *badger.Iterator {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(e.prefix)
	opts.PrefetchValues = true
	return txn.NewIterator(opts)
}

// seekRecords positions it at the first record key >= from, skipping the
// index block.
func (e *Entity[T]) seekRecords(it *badger.Iterator, from []byte) {
	it.Seek(from)
	e.skipIndexBlock(it)
}

func (e *Entity[T]) nextRecord(it *badger.Iterator) {
	it.Next()
	e.skipIndexBlock(it)
}

func (e *Entity[T]) skipIndexBlock(it *badger.Iterator) {
	marker := []byte(e.prefix + indexMarker)
	if it.Valid() && bytes.HasPrefix(it.Item().Key(), marker) {
		it.Seek(indexBlockEnd(e.prefix))
	}
}

func (e *Entity[T]) decode(item *badger.Item) (*T, error) {
	var entity T
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entity)
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", item.Key(), err)
	}
	return &entity, nil
}

func (e *Entity[T]) read(txn *badger.Txn, id string) (*T, error) {
	key := recordKey(e.prefix, id)
	defer releaseKey(key)

	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get key: %w", err)
	}
	return e.decode(item)
}

func (e *Entity[T]) lookup(txn *badger.Txn, indexName, value string) (string, error) {
	key := indexKey(e.prefix, indexName, value)
	defer releaseKey(key)

	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get index key: %w", err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", fmt.Errorf("read index key: %w", err)
	}
	return string(val), nil
}

// apply runs fn on a copy of current so a failed fn leaves nothing half-applied.
func (e *Entity[T]) apply(current *T, fn func(*T) error) (*T, error) {
	next := new(T)
	*next = *current
	if err := fn(next); err != nil {
		return nil, err
	}
	return next, nil
}

// put writes updated under id, replacing old's index entries. old is nil
// for a new record.
func (e *Entity[T]) put(txn *badger.Txn, id string, old, updated *T) error {
	data, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("marshal entity: %w", err)
	}

	for _, idx := range e.indexes {
		previous := map[string]bool{}
		if old != nil {
			for _, v := range idx.keyGen(old) {
				previous[v] = true
			}
		}
		current := map[string]bool{}
		for _, v := range idx.keyGen(updated) {
			current[v] = true
			if previous[v] {
				continue
			}
			key := []byte(e.prefix + indexMarker + idx.name + ":" + v)
			if _, err := txn.Get(key); err == nil {
				return fmt.Errorf("index %s conflict on %s: %w", idx.name, v, ErrAlreadyExists)
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("check index key: %w", err)
			}
			if err := txn.Set(key, []byte(id)); err != nil {
				return fmt.Errorf("set index key: %w", err)
			}
		}
		for v := range previous {
			if current[v] {
				continue
			}
			if err := txn.Delete([]byte(e.prefix + indexMarker + idx.name + ":" + v)); err != nil {
				return fmt.Errorf("delete index key: %w", err)
			}
		}
	}

	if err := txn.Set([]byte(e.prefix+id), data); err != nil {
		return fmt.Errorf("set key: %w", err)
	}
	return nil
}
