package store

import "sync"

// indexMarker separates a collection's records from its secondary indexes:
// records live at <prefix><id>, indexes at <prefix>idx:<name>:<value>.
const indexMarker = "idx:"

// keyPool provides reusable byte slices for building keys on hot paths.
var keyPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, 128)
	},
}

// recordKey returns a pooled key for a record. Callers must releaseKey it.
func recordKey(prefix, id string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = append(buf[:0], prefix...)
	return append(buf, id...)
}

// indexKey returns a pooled key for an index entry. Callers must releaseKey it.
func indexKey(prefix, name, value string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = append(buf[:0], prefix...)
	buf = append(buf, indexMarker...)
	buf = append(buf, name...)
	buf = append(buf, ':')
	return append(buf, value...)
}

// releaseKey returns a key buffer to the pool. The slice must not be used afterwards.
func releaseKey(key []byte) {
	if cap(key) <= 512 {
		keyPool.Put(key[:0]) //nolint:staticcheck // slice header copy is intended
	}
}

// indexBlockEnd is the first key after every index entry of prefix.
// ';' sorts immediately after ':'.
func indexBlockEnd(prefix string) []byte {
	return []byte(prefix + "idx;")
}
