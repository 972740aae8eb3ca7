// Package correlation defines the keys that link a relational row to its
// document-store companion.
//
// Two authorities issue identity:
//
//   - BookKey is generated by the relational store on insert and copied into
//     the book document as mysql_book_id.
//   - ProfileRef is generated here, before either write, and becomes both the
//     member row's profile_ref column and the profile document's _id.
//
// Once written, neither key is reassigned by a normal write path.
package correlation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/listenupapp/libris/internal/id"
)

const (
	profilePrefix   = "prof"
	documentPrefix  = "doc"
	analyticsPrefix = "an"
)

// BookKey is the relational book_id.
type BookKey int64

// ParseBookKey parses a positive decimal book id.
func ParseBookKey(s string) (BookKey, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse book key %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("book key must be positive, got %d", n)
	}
	return BookKey(n), nil
}

// Int64 returns k as an int64.
func (k BookKey) Int64() int64 { return int64(k) }

// String returns the decimal form used in document indexes.
func (k BookKey) String() string { return strconv.FormatInt(int64(k), 10) }

// DocumentID identifies a record in the document store.
type DocumentID string

// NewDocumentID mints an id for a book document.
func NewDocumentID() (DocumentID, error) {
	s, err := id.Generate(documentPrefix)
	if err != nil {
		return "", err
	}
	return DocumentID(s), nil
}

// NewAnalyticsID mints an id for an analytics counter document.
func NewAnalyticsID() (DocumentID, error) {
	s, err := id.Generate(analyticsPrefix)
	if err != nil {
		return "", err
	}
	return DocumentID(s), nil
}

// ProfileRef is a client-generated document id that a member row carries
// before its profile document exists.
type ProfileRef string

// NewProfileRef generates a profile reference locally. No store is contacted.
func NewProfileRef() (ProfileRef, error) {
	s, err := id.Generate(profilePrefix)
	if err != nil {
		return "", err
	}
	return ProfileRef(s), nil
}

// Valid reports whether r has the shape produced by NewProfileRef.
func (r ProfileRef) Valid() bool {
	rest, ok := strings.CutPrefix(string(r), profilePrefix+"-")
	if !ok || len(rest) != 21 {
		return false
	}
	for _, c := range rest {
		if !isURLSafe(c) {
			return false
		}
	}
	return true
}

func isURLSafe(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-'
}

// BookPair is the result of a completed book ingest.
type BookPair struct {
	BookID      BookKey    `json:"book_id"`
	DocumentID  DocumentID `json:"document_id"`
	AnalyticsID DocumentID `json:"analytics_id"`
}

// MemberPair is the result of a completed member registration.
type MemberPair struct {
	MemberID  int64      `json:"member_id"`
	ProfileID ProfileRef `json:"profile_id"`
}
