package store

import (
	"encoding/base64"
	"fmt"
)

// Page size bounds.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// PageParams is a cursor page request.
type PageParams struct {
	Limit  int    // defaults to DefaultPageLimit, capped at MaxPageLimit
	Cursor string // opaque; empty for the first page
}

// Normalize clamps Limit into range.
func (p *PageParams) Normalize() {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
}

// Page is one page of results.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
	Total      int    `json:"total"`
}

// EncodeCursor makes an opaque cursor from the last key on a page.
func EncodeCursor(key string) string {
	if key == "" {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

// DecodeCursor reverses EncodeCursor. An empty cursor decodes to "".
func DecodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", ErrInvalidInput.WithCause(fmt.Errorf("cursor: %w", err))
	}
	return string(decoded), nil
}
