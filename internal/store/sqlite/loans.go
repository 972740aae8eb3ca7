package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/listenupapp/libris/internal/domain"
	domainerrors "github.com/listenupapp/libris/internal/errors"
)

// GetLoan returns one loan by id.
func (s *Store) GetLoan(ctx context.Context, id int64) (*domain.Loan, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		l                 domain.Loan
		borrowedAt, dueAt string
		returnedAt        sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT loan_id, book_id, member_id, borrowed_at, due_at, returned_at FROM loans WHERE loan_id = ?`, id).
		Scan(&l.ID, &l.BookID, &l.MemberID, &borrowedAt, &dueAt, &returnedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.NotFoundf("loan %d not found", id)
	}
	if err != nil {
		return nil, classify(err)
	}

	if l.BorrowedAt, err = parseTime(borrowedAt); err != nil {
		return nil, err
	}
	if l.DueAt, err = parseTime(dueAt); err != nil {
		return nil, err
	}
	if l.ReturnedAt, err = parseNullableTime(returnedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

// FineForLoan returns the fine recorded against a loan.
func (s *Store) FineForLoan(ctx context.Context, loanID int64) (*domain.Fine, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var f domain.Fine
	err := s.db.QueryRowContext(ctx,
		`SELECT fine_id, loan_id, amount_cents, paid FROM fines WHERE loan_id = ?`, loanID).
		Scan(&f.ID, &f.LoanID, &f.AmountCents, &f.Paid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.NotFoundf("no fine for loan %d", loanID)
	}
	if err != nil {
		return nil, classify(err)
	}
	return &f, nil
}

// BorrowCounts returns the number of loans ever opened per book.
func (s *Store) BorrowCounts(ctx context.Context) (map[int64]int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT book_id, COUNT(*) FROM loans GROUP BY book_id`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	counts := make(map[int64]int64)
	for rows.Next() {
		var id, n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, classify(err)
		}
		counts[id] = n
	}
	return counts, classify(rows.Err())
}

// ReturnStats holds average loan length in days over returned loans.
type ReturnStats struct {
	PerBook map[int64]float64
	// Global is nil when no loan has been returned.
	Global *float64
}

// ReturnAverages computes per-book and global average return time.
func (s *Store) ReturnAverages(ctx context.Context) (*ReturnStats, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const lengthDays = `julianday(returned_at) - julianday(borrowed_at)`

	rows, err := s.db.QueryContext(ctx,
		`SELECT book_id, AVG(`+lengthDays+`) FROM loans WHERE returned_at IS NOT NULL GROUP BY book_id`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	stats := &ReturnStats{PerBook: make(map[int64]float64)}
	for rows.Next() {
		var (
			id  int64
			avg float64
		)
		if err := rows.Scan(&id, &avg); err != nil {
			return nil, classify(err)
		}
		stats.PerBook[id] = avg
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	var global sql.NullFloat64
	if err := s.db.QueryRowContext(ctx,
		`SELECT AVG(`+lengthDays+`) FROM loans WHERE returned_at IS NOT NULL`).Scan(&global); err != nil {
		return nil, classify(err)
	}
	if global.Valid {
		stats.Global = &global.Float64
	}
	return stats, nil
}
