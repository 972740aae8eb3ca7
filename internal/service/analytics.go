package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/listenupapp/libris/internal/domain"
	domainerrors "github.com/listenupapp/libris/internal/errors"
	"github.com/listenupapp/libris/internal/id"
	"github.com/listenupapp/libris/internal/store/sqlite"
)

// bookRefKeys are the payload properties that may hold a book reference,
// highest precedence first. bookId is the legacy spelling.
var bookRefKeys = []string{"book_id", "bookId"}

// DecodeBookRef extracts the book id an event payload refers to. Each key in
// precedence order is tried and the first that holds a positive integer, as
// a JSON number or a numeric string, wins.
func DecodeBookRef(payload json.RawMessage) (int64, bool) {
	if len(payload) == 0 {
		return 0, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return 0, false
	}
	for _, key := range bookRefKeys {
		if raw, ok := fields[key]; ok {
			if ref, ok := parseBookRef(raw); ok {
				return ref, true
			}
		}
	}
	return 0, false
}

func parseBookRef(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	var s string
	if len(raw) > 0 && raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
	} else {
		s = string(raw)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// RecordEventRequest is a client-submitted telemetry event.
type RecordEventRequest struct {
	EventType string          `json:"event_type" validate:"required,max=64"`
	SessionID string          `json:"session_id,omitempty" validate:"max=128"`
	MemberID  *int64          `json:"member_id,omitempty" validate:"omitempty,gt=0"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// AnalyticsService records behavioral events and merges per-book activity
// from both stores.
type AnalyticsService struct {
	relational RelationalStore
	documents  DocumentStore
	logger     *slog.Logger
}

// NewAnalyticsService creates a new analytics service.
func NewAnalyticsService(relational RelationalStore, documents DocumentStore, logger *slog.Logger) *AnalyticsService {
	return &AnalyticsService{
		relational: relational,
		documents:  documents,
		logger:     logger,
	}
}

// RecordEvent appends a telemetry event and returns its id.
func (s *AnalyticsService) RecordEvent(ctx context.Context, req RecordEventRequest) (string, error) {
	if strings.TrimSpace(req.EventType) == "" {
		return "", domainerrors.Validation("event_type is required")
	}
	if len(req.Payload) > 0 && !json.Valid(req.Payload) {
		return "", domainerrors.Validation("payload must be valid JSON")
	}
	if req.SessionID == "" {
		req.SessionID = id.Session()
	}
	eventID, err := s.documents.AppendEvent(ctx, &domain.TelemetryEvent{
		EventType: req.EventType,
		SessionID: req.SessionID,
		MemberID:  req.MemberID,
		Payload:   req.Payload,
	})
	if err != nil {
		return "", fromStore(err, "record event")
	}
	return eventID, nil
}

// RecordView logs a book_view event and bumps the book's view counter. A
// book without a counter document still gets its event.
func (s *AnalyticsService) RecordView(ctx context.Context, bookID int64, sessionID string) (string, error) {
	if _, err := s.relational.GetBook(ctx, bookID); err != nil {
		return "", fromStore(err, "get book")
	}

	payload, _ := json.Marshal(map[string]int64{"book_id": bookID})
	eventID, err := s.RecordEvent(ctx, RecordEventRequest{
		EventType: domain.EventBookView,
		SessionID: sessionID,
		Payload:   payload,
	})
	if err != nil {
		return "", err
	}

	bumpCounters(ctx, s.documents, s.logger, bookID, domain.CounterDelta{Views: 1}, nil)
	return eventID, nil
}

// GetCounters returns the counter document of a book.
func (s *AnalyticsService) GetCounters(ctx context.Context, bookID int64) (*domain.BookAnalytics, error) {
	doc, err := s.documents.GetBookDocumentByBookID(ctx, bookID)
	if err != nil {
		return nil, fromStore(err, "book document not found")
	}
	counters, err := s.documents.GetAnalyticsByBookDocument(ctx, doc.ID)
	if err != nil {
		return nil, fromStore(err, "analytics not found")
	}
	return counters, nil
}

// EventCounts groups telemetry events by the book they reference. Events
// without a decodable reference are skipped.
func (s *AnalyticsService) EventCounts(ctx context.Context) (map[int64]int64, error) {
	counts := make(map[int64]int64)
	for ev, err := range s.documents.ListEvents(ctx) {
		if err != nil {
			return nil, fromStore(err, "list events")
		}
		if ref, ok := DecodeBookRef(ev.Payload); ok {
			counts[ref]++
		}
	}
	return counts, nil
}

// BookReport merges event counts, borrow counts, and average return times
// by book id. Books that no longer exist are dropped. Rows are sorted by
// book id.
func (s *AnalyticsService) BookReport(ctx context.Context) (*domain.ActivityReport, error) {
	var (
		events  map[int64]int64
		borrows map[int64]int64
		returns *sqlite.ReturnStats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = s.EventCounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		borrows, err = s.relational.BorrowCounts(gctx)
		return fromStore(err, "borrow counts")
	})
	g.Go(func() error {
		var err error
		returns, err = s.relational.ReturnAverages(gctx)
		return fromStore(err, "return averages")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	keys := make(map[int64]struct{}, len(events)+len(borrows))
	for k := range events {
		keys[k] = struct{}{}
	}
	for k := range borrows {
		keys[k] = struct{}{}
	}
	for k := range returns.PerBook {
		keys[k] = struct{}{}
	}
	ids := slices.Sorted(maps.Keys(keys))

	titles, err := s.relational.BookTitles(ctx, ids)
	if err != nil {
		return nil, fromStore(err, "book titles")
	}

	report := &domain.ActivityReport{
		Books:               make([]domain.BookActivity, 0, len(ids)),
		GlobalAvgReturnDays: returns.Global,
		GeneratedAt:         time.Now().UTC(),
	}
	for _, bookID := range ids {
		title, ok := titles[bookID]
		if !ok {
			continue
		}
		row := domain.BookActivity{
			BookID:      bookID,
			Title:       title,
			EventCount:  events[bookID],
			BorrowCount: borrows[bookID],
		}
		if avg, ok := returns.PerBook[bookID]; ok {
			row.AvgReturnDays = &avg
		}
		report.Books = append(report.Books, row)
	}
	return report, nil
}

// bumpCounters applies delta to a book's counter document and, when days
// is set, appends one return duration. Counters are telemetry, so misses
// and failures are logged rather than returned.
func bumpCounters(ctx context.Context, documents DocumentStore, logger *slog.Logger, bookID int64, delta domain.CounterDelta, days *float64) {
	doc, err := documents.GetBookDocumentByBookID(ctx, bookID)
	if err != nil {
		logger.Warn("no book document for counters", "book_id", bookID, "error", err)
		return
	}
	if !delta.IsZero() {
		if _, err := documents.IncrementCounters(ctx, doc.ID, delta); err != nil {
			logger.Warn("failed to increment counters", "book_id", bookID, "document_id", doc.ID, "error", err)
			return
		}
	}
	if days != nil {
		if _, err := documents.AppendReturnDuration(ctx, doc.ID, *days); err != nil {
			logger.Warn("failed to append return duration", "book_id", bookID, "document_id", doc.ID, "error", err)
		}
	}
}
