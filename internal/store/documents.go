package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/listenupapp/libris/internal/correlation"
	"github.com/listenupapp/libris/internal/domain"
)

// CreateBookDocument stores doc and returns its id. The store assigns the id
// when doc.ID is empty. A second document for the same book id fails with
// ErrAlreadyExists.
func (s *Store) CreateBookDocument(ctx context.Context, doc *domain.BookDocument) (string, error) {
	if doc.MySQLBookID <= 0 {
		return "", ErrInvalidInput.WithCause(fmt.Errorf("mysql_book_id %d", doc.MySQLBookID))
	}
	if doc.ID == "" {
		id, err := correlation.NewDocumentID()
		if err != nil {
			return "", err
		}
		doc.ID = string(id)
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	if doc.Tags == nil {
		doc.Tags = []string{}
	}

	if err := s.BookDocuments.Create(ctx, doc.ID, doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}

// GetBookDocument returns the book document with the given id.
func (s *Store) GetBookDocument(ctx context.Context, id string) (*domain.BookDocument, error) {
	return s.BookDocuments.Get(ctx, id)
}

// GetBookDocumentByBookID returns the document correlated with a relational book id.
func (s *Store) GetBookDocumentByBookID(ctx context.Context, bookID int64) (*domain.BookDocument, error) {
	return s.BookDocuments.GetByIndex(ctx, indexBookID, strconv.FormatInt(bookID, 10))
}

// GetBookDocumentsByBookIDs is the batched "mysql_book_id in set" lookup.
// Books without a document are absent from the result.
func (s *Store) GetBookDocumentsByBookIDs(ctx context.Context, bookIDs []int64) (map[int64]*domain.BookDocument, error) {
	values := make([]string, len(bookIDs))
	for i, id := range bookIDs {
		values[i] = strconv.FormatInt(id, 10)
	}
	found, err := s.BookDocuments.GetManyByIndex(ctx, indexBookID, values)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]*domain.BookDocument, len(found))
	for _, doc := range found {
		out[doc.MySQLBookID] = doc
	}
	return out, nil
}

// DeleteBookDocument removes a book document. Missing documents are ignored.
func (s *Store) DeleteBookDocument(ctx context.Context, id string) error {
	return s.BookDocuments.Delete(ctx, id)
}

// PageBookDocuments returns book documents in id order after the cursor.
func (s *Store) PageBookDocuments(ctx context.Context, after string, limit int) ([]*domain.BookDocument, string, error) {
	return s.BookDocuments.Page(ctx, after, limit)
}

// CreateAnalytics stores a counter document for a book document and returns
// its id. Counters start at zero regardless of the values passed in.
func (s *Store) CreateAnalytics(ctx context.Context, bookDocumentID string) (*domain.BookAnalytics, error) {
	a, err := newAnalytics(bookDocumentID)
	if err != nil {
		return nil, err
	}
	if err := s.Analytics.Create(ctx, a.ID, a); err != nil {
		return nil, err
	}
	return a, nil
}

// EnsureAnalytics returns the counter document for bookDocumentID, creating
// a zeroed one if none exists.
func (s *Store) EnsureAnalytics(ctx context.Context, bookDocumentID string) (*domain.BookAnalytics, error) {
	seed := func() (string, *domain.BookAnalytics, error) {
		a, err := newAnalytics(bookDocumentID)
		if err != nil {
			return "", nil, err
		}
		return a.ID, a, nil
	}
	return s.Analytics.MutateByIndex(ctx, indexBookDoc, bookDocumentID, func(*domain.BookAnalytics) error { return nil }, seed)
}

func newAnalytics(bookDocumentID string) (*domain.BookAnalytics, error) {
	if bookDocumentID == "" {
		return nil, ErrInvalidInput.WithCause(fmt.Errorf("empty book_mongo_id"))
	}
	id, err := correlation.NewAnalyticsID()
	if err != nil {
		return nil, err
	}
	return &domain.BookAnalytics{
		ID:              string(id),
		BookDocumentID:  bookDocumentID,
		ReturnDurations: []float64{},
		UpdatedAt:       time.Now().UTC(),
	}, nil
}

// GetAnalyticsByBookDocument returns the counter document for a book document.
func (s *Store) GetAnalyticsByBookDocument(ctx context.Context, bookDocumentID string) (*domain.BookAnalytics, error) {
	return s.Analytics.GetByIndex(ctx, indexBookDoc, bookDocumentID)
}

// GetAnalyticsByBookDocuments batch-loads counter documents keyed by book
// document id. Ids with no counters are absent from the map.
func (s *Store) GetAnalyticsByBookDocuments(ctx context.Context, bookDocumentIDs []string) (map[string]*domain.BookAnalytics, error) {
	return s.Analytics.GetManyByIndex(ctx, indexBookDoc, bookDocumentIDs)
}

// IncrementCounters atomically adds delta to the counters of a book document.
// Negative deltas are rejected.
func (s *Store) IncrementCounters(ctx context.Context, bookDocumentID string, delta domain.CounterDelta) (*domain.BookAnalytics, error) {
	if delta.Views < 0 || delta.Borrows < 0 || delta.Returns < 0 {
		return nil, ErrInvalidInput.WithCause(fmt.Errorf("negative counter delta %+v", delta))
	}
	return s.Analytics.MutateByIndex(ctx, indexBookDoc, bookDocumentID, func(a *domain.BookAnalytics) error {
		a.TotalViews += delta.Views
		a.TotalBorrows += delta.Borrows
		a.TotalReturns += delta.Returns
		a.UpdatedAt = time.Now().UTC()
		return nil
	}, nil)
}

// AppendReturnDuration atomically appends one loan length, in days.
func (s *Store) AppendReturnDuration(ctx context.Context, bookDocumentID string, days float64) (*domain.BookAnalytics, error) {
	return s.Analytics.MutateByIndex(ctx, indexBookDoc, bookDocumentID, func(a *domain.BookAnalytics) error {
		durations := make([]float64, len(a.ReturnDurations), len(a.ReturnDurations)+1)
		copy(durations, a.ReturnDurations)
		a.ReturnDurations = append(durations, days)
		a.UpdatedAt = time.Now().UTC()
		return nil
	}, nil)
}

// DeleteAnalyticsByBookDocument removes the counter document of a book
// document, if any.
func (s *Store) DeleteAnalyticsByBookDocument(ctx context.Context, bookDocumentID string) error {
	a, err := s.Analytics.GetByIndex(ctx, indexBookDoc, bookDocumentID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	return s.Analytics.Delete(ctx, a.ID)
}
