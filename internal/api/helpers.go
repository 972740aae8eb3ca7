package api

import (
	domainerrors "github.com/listenupapp/libris/internal/errors"
)

// logFailure logs errors the client cannot fix and returns err unchanged.
// Partial writes are logged with their orphan details, which the response
// never carries.
func (s *Server) logFailure(operation string, err error) error {
	var domainErr *domainerrors.Error
	code := domainerrors.CodeOf(err)
	switch code {
	case domainerrors.CodePartialWrite:
		var details any
		if domainerrors.As(err, &domainErr) {
			details = domainErr.Details
		}
		s.logger.Error("partial write", "operation", operation, "orphan", details, "error", err)
	case domainerrors.CodeInternal, domainerrors.CodeUnavailable:
		s.logger.Error("request failed", "operation", operation, "code", code, "error", err)
	}
	return err
}
