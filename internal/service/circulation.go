package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"time"

	"github.com/listenupapp/libris/internal/domain"
	domainerrors "github.com/listenupapp/libris/internal/errors"
	"github.com/listenupapp/libris/internal/store/sqlite"
	"github.com/listenupapp/libris/internal/validation"
)

// BorrowRequest opens a loan.
type BorrowRequest struct {
	MemberID int64 `json:"member_id" validate:"required,gt=0"`
	BookID   int64 `json:"book_id" validate:"required,gt=0"`
}

// ReturnReceipt is the outcome of closing a loan.
type ReturnReceipt struct {
	Loan      *domain.Loan `json:"loan"`
	FineCents int64        `json:"fine_cents"`
}

// CirculationService lends and returns books. The relational loan row is
// authoritative; counters and telemetry follow on a best-effort basis.
type CirculationService struct {
	relational RelationalStore
	documents  DocumentStore
	validator  *validation.Validator
	logger     *slog.Logger
	now        func() time.Time
}

// NewCirculationService creates a new circulation service.
func NewCirculationService(relational RelationalStore, documents DocumentStore, validator *validation.Validator, logger *slog.Logger) *CirculationService {
	return &CirculationService{
		relational: relational,
		documents:  documents,
		validator:  validator,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Borrow opens a loan due after the default loan period.
func (s *CirculationService) Borrow(ctx context.Context, req BorrowRequest) (*domain.Loan, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.relational.GetMember(ctx, req.MemberID); err != nil {
		return nil, fromStore(err, "get member")
	}

	now := s.now()
	res, err := s.relational.Call(ctx, sqlite.ProcBorrowBook, req.MemberID, req.BookID, now, now.Add(domain.DefaultLoanPeriod))
	if err != nil {
		return nil, fromStore(err, "borrow book")
	}
	loan, err := s.relational.GetLoan(ctx, res.InsertID)
	if err != nil {
		return nil, fromStore(err, "get loan")
	}

	bumpCounters(ctx, s.documents, s.logger, loan.BookID, domain.CounterDelta{Borrows: 1}, nil)
	s.recordLoanEvent(ctx, domain.EventBookBorrowed, loan, nil)

	s.logger.Info("book borrowed", "loan_id", loan.ID, "book_id", loan.BookID, "member_id", loan.MemberID)
	return loan, nil
}

// Return closes a loan, charging any late fine, and appends the loan
// length to the book's return durations.
func (s *CirculationService) Return(ctx context.Context, loanID int64) (*ReturnReceipt, error) {
	if loanID <= 0 {
		return nil, domainerrors.Validation("loan_id is required")
	}

	res, err := s.relational.Call(ctx, sqlite.ProcReturnBook, loanID, s.now())
	if err != nil {
		return nil, fromStore(err, "return book")
	}
	loan, err := s.relational.GetLoan(ctx, loanID)
	if err != nil {
		return nil, fromStore(err, "get loan")
	}

	days := loan.DurationDays(s.now())
	bumpCounters(ctx, s.documents, s.logger, loan.BookID, domain.CounterDelta{Returns: 1}, &days)
	s.recordLoanEvent(ctx, domain.EventBookReturned, loan, map[string]any{"duration_days": days, "fine_cents": res.AffectedRows})

	s.logger.Info("book returned", "loan_id", loan.ID, "book_id", loan.BookID, "fine_cents", res.AffectedRows)
	return &ReturnReceipt{Loan: loan, FineCents: res.AffectedRows}, nil
}

func (s *CirculationService) recordLoanEvent(ctx context.Context, eventType string, loan *domain.Loan, extra map[string]any) {
	fields := map[string]any{"book_id": loan.BookID, "loan_id": loan.ID}
	maps.Copy(fields, extra)
	payload, _ := json.Marshal(fields)
	if _, err := s.documents.AppendEvent(ctx, &domain.TelemetryEvent{
		EventType: eventType,
		MemberID:  &loan.MemberID,
		Payload:   payload,
	}); err != nil {
		s.logger.Warn("failed to record loan event", "event_type", eventType, "loan_id", loan.ID, "error", err)
	}
}
