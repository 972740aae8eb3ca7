package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domainerrors "github.com/listenupapp/libris/internal/errors"
)

// Procedure names.
const (
	ProcRegisterMember = "register_member"
	ProcBorrowBook     = "borrow_book"
	ProcReturnBook     = "return_book"
)

// finePerDayCents is charged for each started day past due.
const finePerDayCents = 25

// CallResult is what a procedure reports back to its caller.
type CallResult struct {
	InsertID     int64
	AffectedRows int64
}

// Procedure is a named server-side routine. It runs inside one transaction
// and takes positional arguments.
type Procedure func(ctx context.Context, tx *sql.Tx, args []any) (*CallResult, error)

func builtinProcedures() map[string]Procedure {
	return map[string]Procedure{
		ProcRegisterMember: registerMember,
		ProcBorrowBook:     borrowBook,
		ProcReturnBook:     returnBook,
	}
}

// Call invokes a named procedure with positional arguments in a single
// transaction. Validation failures surface as CodeValidation, uniqueness
// violations as CodeDuplicateKey, and nothing is written in either case.
func (s *Store) Call(ctx context.Context, name string, args ...any) (*CallResult, error) {
	proc, ok := s.procedures[name]
	if !ok {
		return nil, domainerrors.Internalf("unknown procedure %q", name)
	}

	var result *CallResult
	err := s.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		result, err = proc(ctx, tx, args)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// registerMember(username, email, password_hash, profile_ref) inserts a
// member. Format rules live in the members_validate_insert trigger.
func registerMember(ctx context.Context, tx *sql.Tx, args []any) (*CallResult, error) {
	if err := arity(ProcRegisterMember, args, 4); err != nil {
		return nil, err
	}
	username, err1 := stringArg(args, 0, "username")
	email, err2 := stringArg(args, 1, "email")
	hash, err3 := stringArg(args, 2, "password_hash")
	ref, err4 := stringArg(args, 3, "profile_ref")
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO members (username, email, password_hash, profile_ref, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		username, email, hash, ref, formatTime(time.Now()))
	if err != nil {
		return nil, err
	}
	return resultOf(res)
}

// borrowBook(member_id, book_id, borrowed_at, due_at) opens a loan when a
// copy is free and marks the book checked out once every copy is lent.
func borrowBook(ctx context.Context, tx *sql.Tx, args []any) (*CallResult, error) {
	if err := arity(ProcBorrowBook, args, 4); err != nil {
		return nil, err
	}
	memberID, err1 := int64Arg(args, 0, "member_id")
	bookID, err2 := int64Arg(args, 1, "book_id")
	borrowedAt, err3 := timeArg(args, 2, "borrowed_at")
	dueAt, err4 := timeArg(args, 3, "due_at")
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		return nil, err
	}
	if !dueAt.After(borrowedAt) {
		return nil, domainerrors.Validation("due_at must be after borrowed_at")
	}

	var (
		status string
		copies int64
		open   int64
	)
	err := tx.QueryRowContext(ctx, `
		SELECT b.status, b.copies,
		       (SELECT COUNT(*) FROM loans l WHERE l.book_id = b.book_id AND l.returned_at IS NULL)
		FROM books b WHERE b.book_id = ?`, bookID).Scan(&status, &copies, &open)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.NotFoundf("book %d not found", bookID)
	}
	if err != nil {
		return nil, err
	}
	if status == "lost" || status == "archived" {
		return nil, domainerrors.Conflict(fmt.Sprintf("book %d is %s", bookID, status))
	}
	if open >= copies {
		return nil, domainerrors.Conflict(fmt.Sprintf("no copies of book %d available", bookID))
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO loans (book_id, member_id, borrowed_at, due_at) VALUES (?, ?, ?, ?)`,
		bookID, memberID, formatTime(borrowedAt), formatTime(dueAt))
	if err != nil {
		return nil, err
	}
	if open+1 >= copies {
		if _, err := tx.ExecContext(ctx, `UPDATE books SET status = 'checked_out' WHERE book_id = ?`, bookID); err != nil {
			return nil, err
		}
	}
	return resultOf(res)
}

// returnBook(loan_id, returned_at) closes a loan, frees the book, and
// records a fine when the return is late. AffectedRows is the fine in cents.
func returnBook(ctx context.Context, tx *sql.Tx, args []any) (*CallResult, error) {
	if err := arity(ProcReturnBook, args, 2); err != nil {
		return nil, err
	}
	loanID, err1 := int64Arg(args, 0, "loan_id")
	returnedAt, err2 := timeArg(args, 1, "returned_at")
	if err := errors.Join(err1, err2); err != nil {
		return nil, err
	}

	var (
		bookID   int64
		dueRaw   string
		returned sql.NullString
	)
	err := tx.QueryRowContext(ctx, `SELECT book_id, due_at, returned_at FROM loans WHERE loan_id = ?`, loanID).
		Scan(&bookID, &dueRaw, &returned)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.NotFoundf("loan %d not found", loanID)
	}
	if err != nil {
		return nil, err
	}
	if returned.Valid {
		return nil, domainerrors.Conflict(fmt.Sprintf("loan %d already returned", loanID))
	}

	if _, err := tx.ExecContext(ctx, `UPDATE loans SET returned_at = ? WHERE loan_id = ?`, formatTime(returnedAt), loanID); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE books SET status = 'available' WHERE book_id = ? AND status = 'checked_out'`, bookID); err != nil {
		return nil, err
	}

	due, err := parseTime(dueRaw)
	if err != nil {
		return nil, fmt.Errorf("parse due_at: %w", err)
	}
	var fine int64
	if late := returnedAt.Sub(due); late > 0 {
		days := int64(late / (24 * time.Hour))
		if late%(24*time.Hour) != 0 {
			days++
		}
		fine = days * finePerDayCents
		if _, err := tx.ExecContext(ctx, `INSERT INTO fines (loan_id, amount_cents) VALUES (?, ?)`, loanID, fine); err != nil {
			return nil, err
		}
	}
	return &CallResult{InsertID: loanID, AffectedRows: fine}, nil
}

func resultOf(res sql.Result) (*CallResult, error) {
	insertID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	return &CallResult{InsertID: insertID, AffectedRows: affected}, nil
}

func arity(name string, args []any, want int) error {
	if len(args) != want {
		return domainerrors.Validationf("%s expects %d arguments, got %d", name, want, len(args))
	}
	return nil
}

func stringArg(args []any, i int, name string) (string, error) {
	s, ok := args[i].(string)
	if !ok {
		return "", domainerrors.Validationf("%s must be a string", name)
	}
	return s, nil
}

func int64Arg(args []any, i int, name string) (int64, error) {
	switch v := args[i].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, domainerrors.Validationf("%s must be an integer", name)
	}
}

func timeArg(args []any, i int, name string) (time.Time, error) {
	t, ok := args[i].(time.Time)
	if !ok {
		return time.Time{}, domainerrors.Validationf("%s must be a time", name)
	}
	return t, nil
}
