package domain

import (
	"encoding/json"
	"time"
)

// Telemetry event types.
const (
	EventBookView         = "book_view"
	EventBookBorrowed     = "book_borrowed"
	EventBookReturned     = "book_returned"
	EventMemberRegistered = "member_registered"
	EventSearch           = "search"
)

// TelemetryEvent is an append-only log entry. It has no companion record and
// is never repaired. The book reference, when present, lives in Payload
// under "book_id" or the older "bookId".
type TelemetryEvent struct {
	ID        string          `json:"_id"`
	EventType string          `json:"event_type"`
	SessionID string          `json:"session_id"`
	MemberID  *int64          `json:"member_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
