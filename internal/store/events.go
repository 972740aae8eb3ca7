package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/listenupapp/libris/internal/domain"
	"github.com/listenupapp/libris/internal/id"
)

// AppendEvent stores a telemetry event under a time-ordered id.
func (s *Store) AppendEvent(ctx context.Context, ev *domain.TelemetryEvent) (string, error) {
	if ev.EventType == "" {
		return "", ErrInvalidInput.WithCause(errors.New("event_type is required"))
	}
	eventID, err := id.TimeOrdered()
	if err != nil {
		return "", fmt.Errorf("event id: %w", err)
	}
	ev.ID = eventID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if err := s.Events.Create(ctx, ev.ID, ev); err != nil {
		return "", err
	}
	return ev.ID, nil
}

// ListEvents iterates every telemetry event in insertion order.
func (s *Store) ListEvents(ctx context.Context) iter.Seq2[*domain.TelemetryEvent, error] {
	return s.Events.List(ctx)
}
