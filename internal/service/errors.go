package service

import (
	"context"
	"errors"

	domainerrors "github.com/listenupapp/libris/internal/errors"
	"github.com/listenupapp/libris/internal/store"
)

// fromStore maps an error from either store onto a domain error. Errors that
// already carry a domain code are returned as is.
func fromStore(err error, msg string) error {
	if err == nil {
		return nil
	}

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.Wrap(err, domainerrors.CodeNotFound, msg)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.Wrap(err, domainerrors.CodeDuplicateKey, msg)
	case errors.Is(err, store.ErrInvalidInput):
		return domainerrors.Wrap(err, domainerrors.CodeValidation, msg)
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, msg)
	default:
		return domainerrors.Wrap(err, domainerrors.CodeInternal, msg)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) || domainerrors.CodeOf(err) == domainerrors.CodeNotFound
}
