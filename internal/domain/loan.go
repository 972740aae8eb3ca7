package domain

import "time"

// DefaultLoanPeriod is the due-date offset applied when a loan is opened.
const DefaultLoanPeriod = 14 * 24 * time.Hour

// Loan is a relational loan row.
type Loan struct {
	ID         int64      `json:"loan_id"`
	BookID     int64      `json:"book_id"`
	MemberID   int64      `json:"member_id"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueAt      time.Time  `json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
}

// Returned reports whether the loan has been closed.
func (l *Loan) Returned() bool {
	return l.ReturnedAt != nil
}

// DurationDays is the loan length in fractional days. Open loans are
// measured up to now.
func (l *Loan) DurationDays(now time.Time) float64 {
	end := now
	if l.ReturnedAt != nil {
		end = *l.ReturnedAt
	}
	return end.Sub(l.BorrowedAt).Hours() / 24
}

// Fine is a relational fine row attached to a loan.
type Fine struct {
	ID          int64 `json:"fine_id"`
	LoanID      int64 `json:"loan_id"`
	AmountCents int64 `json:"amount_cents"`
	Paid        bool  `json:"paid"`
}
