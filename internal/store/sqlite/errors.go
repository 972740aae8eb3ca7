package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	domainerrors "github.com/listenupapp/libris/internal/errors"
)

// classify maps driver errors onto domain error codes by SQLite result code.
// Errors that already carry a domain code pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "relational store unavailable")
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}

	code := sqliteErr.Code()
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return domainerrors.Wrap(err, domainerrors.CodeDuplicateKey, duplicateMessage(sqliteErr))
	case sqlite3.SQLITE_CONSTRAINT_CHECK,
		sqlite3.SQLITE_CONSTRAINT_NOTNULL,
		sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY,
		sqlite3.SQLITE_CONSTRAINT_TRIGGER:
		return domainerrors.Wrap(err, domainerrors.CodeValidation, detail(sqliteErr))
	}

	switch code & 0xff {
	case sqlite3.SQLITE_CONSTRAINT:
		return domainerrors.Wrap(err, domainerrors.CodeValidation, detail(sqliteErr))
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_CANTOPEN,
		sqlite3.SQLITE_IOERR, sqlite3.SQLITE_INTERRUPT, sqlite3.SQLITE_FULL:
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "relational store unavailable")
	}
	return err
}

// detail extracts the human part of a driver message, which has the form
// "<errstr>: <message> (<code>)".
func detail(err *sqlite.Error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	if i := strings.LastIndex(msg, " ("); i >= 0 {
		msg = msg[:i]
	}
	return msg
}

// duplicateMessage names the column from "UNIQUE constraint failed: members.email".
func duplicateMessage(err *sqlite.Error) string {
	d := detail(err)
	if _, column, ok := strings.Cut(d, "failed: "); ok {
		if _, field, ok := strings.Cut(column, "."); ok {
			column = field
		}
		return column + " already exists"
	}
	return d
}
