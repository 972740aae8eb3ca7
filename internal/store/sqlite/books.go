package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/listenupapp/libris/internal/domain"
	domainerrors "github.com/listenupapp/libris/internal/errors"
)

// bookColumns must match the scan order in scanBook.
const bookColumns = `book_id, title, isbn, status, author_id, category_id, published_year, copies, created_at`

func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var (
		b         domain.Book
		status    string
		authorID  sql.NullInt64
		category  sql.NullInt64
		published sql.NullInt64
		createdAt string
	)
	err := scanner.Scan(&b.ID, &b.Title, &b.ISBN, &status, &authorID, &category, &published, &b.Copies, &createdAt)
	if err != nil {
		return nil, err
	}
	b.Status = domain.BookStatus(status)
	if authorID.Valid {
		b.AuthorID = &authorID.Int64
	}
	if category.Valid {
		b.CategoryID = &category.Int64
	}
	b.PublishedYear = int(published.Int64)
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &b, nil
}

// InsertBook inserts b and returns the generated book_id, which is also
// written back into b.ID.
func (s *Store) InsertBook(ctx context.Context, b *domain.Book) (int64, error) {
	return s.InsertCatalogBook(ctx, b, BookNames{})
}

// BookNames are the author and category a new book is filed under. Empty
// names leave the reference unset.
type BookNames struct {
	Author   string
	Category string
}

// InsertCatalogBook resolves names to author and category rows, creating
// them when new, and inserts b in the same transaction. A rejected insert
// leaves no new author or category behind.
func (s *Store) InsertCatalogBook(ctx context.Context, b *domain.Book, names BookNames) (int64, error) {
	if b.Status == "" {
		b.Status = domain.BookAvailable
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	var id int64
	err := s.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if name := strings.TrimSpace(names.Author); name != "" {
			authorID, err := ensureNamed(ctx, tx, "authors", "author_id", name)
			if err != nil {
				return err
			}
			b.AuthorID = &authorID
		}
		if name := strings.TrimSpace(names.Category); name != "" {
			categoryID, err := ensureNamed(ctx, tx, "categories", "category_id", name)
			if err != nil {
				return err
			}
			b.CategoryID = &categoryID
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO books (title, isbn, status, author_id, category_id, published_year, copies, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			b.Title, b.ISBN, string(b.Status), nullInt64(b.AuthorID), nullInt64(b.CategoryID),
			nullPositiveInt(b.PublishedYear), b.Copies, formatTime(b.CreatedAt))
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	b.ID = id
	return id, nil
}

// GetBook returns one book by id.
func (s *Store) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	b, err := scanBook(s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE book_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.NotFoundf("book %d not found", id)
	}
	if err != nil {
		return nil, classify(err)
	}
	return b, nil
}

// ListBooksParams filters and pages ListBooks. Paging is keyset on book_id.
type ListBooksParams struct {
	Status  domain.BookStatus
	AfterID int64
	Limit   int
}

// ListBooks returns books with book_id > AfterID, ordered by book_id.
func (s *Store) ListBooks(ctx context.Context, p ListBooksParams) ([]*domain.Book, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if p.Limit <= 0 {
		p.Limit = 50
	}

	query := `SELECT ` + bookColumns + ` FROM books WHERE book_id > ?`
	args := []any{p.AfterID}
	if p.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(p.Status))
	}
	query += ` ORDER BY book_id LIMIT ?`
	args = append(args, p.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, classify(err)
		}
		books = append(books, b)
	}
	return books, classify(rows.Err())
}

// CountBooks returns the number of books matching status ("" for all).
func (s *Store) CountBooks(ctx context.Context, status domain.BookStatus) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT COUNT(*) FROM books`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// BookRef is the part of a book row the consistency scanner needs.
type BookRef struct {
	ID    int64
	Title string
}

// PageBookRefs returns up to limit book refs with book_id > afterID.
func (s *Store) PageBookRefs(ctx context.Context, afterID int64, limit int) ([]BookRef, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT book_id, title FROM books WHERE book_id > ? ORDER BY book_id LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	refs := make([]BookRef, 0, limit)
	for rows.Next() {
		var r BookRef
		if err := rows.Scan(&r.ID, &r.Title); err != nil {
			return nil, classify(err)
		}
		refs = append(refs, r)
	}
	return refs, classify(rows.Err())
}

// BookTitles returns the current title for each id that still exists.
func (s *Store) BookTitles(ctx context.Context, ids []int64) (map[int64]string, error) {
	titles := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return titles, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `SELECT book_id, title FROM books WHERE book_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    int64
			title string
		)
		if err := rows.Scan(&id, &title); err != nil {
			return nil, classify(err)
		}
		titles[id] = title
	}
	return titles, classify(rows.Err())
}

// DeleteBook removes a book row. Used by archival tooling and tests; the
// book's document companion is left for the repairer to collect.
func (s *Store) DeleteBook(ctx context.Context, id int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE book_id = ?`, id)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domainerrors.NotFoundf("book %d not found", id)
	}
	return nil
}

func ensureNamed(ctx context.Context, tx *sql.Tx, table, idColumn, name string) (int64, error) {
	if _, err := tx.ExecContext(ctx, `INSERT INTO `+table+` (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
		return 0, err
	}
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT `+idColumn+` FROM `+table+` WHERE name = ?`, name).Scan(&id)
	return id, err
}
