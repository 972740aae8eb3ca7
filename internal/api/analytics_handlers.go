package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/libris/internal/domain"
	domainerrors "github.com/listenupapp/libris/internal/errors"
	"github.com/listenupapp/libris/internal/service"
)

func (s *Server) registerAnalyticsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "recordEvent",
		Method:        http.MethodPost,
		Path:          "/api/v1/events",
		Summary:       "Record a telemetry event",
		Tags:          []string{"Analytics"},
		DefaultStatus: http.StatusCreated,
	}, s.handleRecordEvent)

	huma.Register(s.api, huma.Operation{
		OperationID: "bookActivityReport",
		Method:      http.MethodGet,
		Path:        "/api/v1/analytics/books",
		Summary:     "Per-book activity report",
		Description: "Merges telemetry event counts with relational borrow counts and return times",
		Tags:        []string{"Analytics"},
	}, s.handleBookReport)
}

// RecordEventInput is a client telemetry event.
type RecordEventInput struct {
	Body struct {
		EventType string         `json:"event_type" maxLength:"64" doc:"Event name, e.g. book_view or search"`
		SessionID string         `json:"session_id,omitempty" maxLength:"128"`
		MemberID  *int64         `json:"member_id,omitempty"`
		Payload   map[string]any `json:"payload,omitempty" doc:"Free-form event data; book references use book_id"`
	}
}

// ActivityReportOutput is the merged analytics report.
type ActivityReportOutput struct {
	Body *domain.ActivityReport
}

func (s *Server) handleRecordEvent(ctx context.Context, input *RecordEventInput) (*EventCreatedOutput, error) {
	req := service.RecordEventRequest{
		EventType: input.Body.EventType,
		SessionID: input.Body.SessionID,
		MemberID:  input.Body.MemberID,
	}
	if input.Body.Payload != nil {
		raw, err := json.Marshal(input.Body.Payload)
		if err != nil {
			return nil, domainerrors.Validation("payload is not valid JSON")
		}
		req.Payload = raw
	}

	id, err := s.services.Analytics.RecordEvent(ctx, req)
	if err != nil {
		return nil, s.logFailure("recordEvent", err)
	}
	out := &EventCreatedOutput{}
	out.Body.EventID = id
	return out, nil
}

func (s *Server) handleBookReport(ctx context.Context, _ *struct{}) (*ActivityReportOutput, error) {
	report, err := s.services.Analytics.BookReport(ctx)
	if err != nil {
		return nil, s.logFailure("bookActivityReport", err)
	}
	return &ActivityReportOutput{Body: report}, nil
}
