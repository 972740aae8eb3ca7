// Package service holds the cross-store business logic: the dual-write
// sagas that create correlated records and the read paths that join them.
package service

import (
	"context"
	"iter"

	"github.com/listenupapp/libris/internal/domain"
	"github.com/listenupapp/libris/internal/store/sqlite"
)

// RelationalStore is the authoritative store for books, members, and loans.
// It generates integer keys and runs named procedures.
type RelationalStore interface {
	InsertCatalogBook(ctx context.Context, b *domain.Book, names sqlite.BookNames) (int64, error)
	GetBook(ctx context.Context, id int64) (*domain.Book, error)
	ListBooks(ctx context.Context, p sqlite.ListBooksParams) ([]*domain.Book, error)
	CountBooks(ctx context.Context, status domain.BookStatus) (int, error)
	BookTitles(ctx context.Context, ids []int64) (map[int64]string, error)

	GetMember(ctx context.Context, id int64) (*domain.Member, error)

	GetLoan(ctx context.Context, id int64) (*domain.Loan, error)
	BorrowCounts(ctx context.Context) (map[int64]int64, error)
	ReturnAverages(ctx context.Context) (*sqlite.ReturnStats, error)

	Call(ctx context.Context, name string, args ...any) (*sqlite.CallResult, error)
}

// DocumentStore holds book content, counters, profiles, and telemetry. It
// accepts caller-chosen ids and applies counter updates atomically.
type DocumentStore interface {
	CreateBookDocument(ctx context.Context, doc *domain.BookDocument) (string, error)
	GetBookDocumentByBookID(ctx context.Context, bookID int64) (*domain.BookDocument, error)
	GetBookDocumentsByBookIDs(ctx context.Context, bookIDs []int64) (map[int64]*domain.BookDocument, error)

	CreateAnalytics(ctx context.Context, bookDocumentID string) (*domain.BookAnalytics, error)
	GetAnalyticsByBookDocument(ctx context.Context, bookDocumentID string) (*domain.BookAnalytics, error)
	IncrementCounters(ctx context.Context, bookDocumentID string, delta domain.CounterDelta) (*domain.BookAnalytics, error)
	AppendReturnDuration(ctx context.Context, bookDocumentID string, days float64) (*domain.BookAnalytics, error)

	CreateProfile(ctx context.Context, p *domain.MemberProfile) error
	GetProfile(ctx context.Context, profileID string) (*domain.MemberProfile, error)

	AppendEvent(ctx context.Context, ev *domain.TelemetryEvent) (string, error)
	ListEvents(ctx context.Context) iter.Seq2[*domain.TelemetryEvent, error]
}

// PasswordHasher turns a plaintext password into a storable hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
}
