package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listenupapp/libris/internal/errors"
)

func TestEnvelopeTransformer_AlwaysIncludesVersion(t *testing.T) {
	tests := []struct {
		name   string
		status string
		input  any
	}{
		{"success response", "200", map[string]string{"key": "value"}},
		{"created response", "201", map[string]string{"id": "123"}},
		{"bad request error", "400", errors.New("invalid input")},
		{"not found error", "404", errors.New("resource not found")},
		{"internal server error", "500", errors.New("internal error")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EnvelopeTransformer(nil, tt.status, tt.input)
			require.NoError(t, err)

			raw, err := json.Marshal(result)
			require.NoError(t, err)
			var envelope map[string]any
			require.NoError(t, json.Unmarshal(raw, &envelope))

			assert.Equal(t, float64(EnvelopeVersion), envelope["v"])
			_, hasData := envelope["data"]
			_, hasError := envelope["error"]
			assert.NotEqual(t, hasData, hasError, "exactly one of data and error")
		})
	}
}

func TestEnvelopeTransformer_SuccessResponse(t *testing.T) {
	data := map[string]string{"title": "Dune"}

	result, err := EnvelopeTransformer(nil, "200", data)
	require.NoError(t, err)

	envelope, ok := result.(APIEnvelope)
	require.True(t, ok, "Expected APIEnvelope type")
	assert.True(t, envelope.Success)
	assert.Equal(t, data, envelope.Data)
	assert.Nil(t, envelope.Error)
}

func TestEnvelopeTransformer_ErrorWithDetails(t *testing.T) {
	apiErr := &APIError{
		status:  http.StatusBadRequest,
		Code:    "VALIDATION",
		Message: "validation failed",
		Details: map[string]string{"isbn": "must be a valid ISBN"},
	}

	result, err := EnvelopeTransformer(nil, "400", apiErr)
	require.NoError(t, err)

	envelope := result.(APIEnvelope)
	assert.False(t, envelope.Success)
	assert.Nil(t, envelope.Data)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION", envelope.Error.Code)
	assert.Equal(t, "validation failed", envelope.Error.Message)
	assert.Equal(t, map[string]string{"isbn": "must be a valid ISBN"}, envelope.Error.Details)
}

func TestNewAPIError_MapsDomainCodes(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{"validation", domainerrors.Validation("isbn is malformed"), 400, "VALIDATION", "isbn is malformed"},
		{"not found", domainerrors.NotFound("book not found"), 404, "NOT_FOUND", "book not found"},
		{"duplicate", domainerrors.DuplicateKey("isbn already exists"), 409, "DUPLICATE_KEY", "isbn already exists"},
		{"conflict", domainerrors.Conflict("book is checked out"), 409, "CONFLICT", "book is checked out"},
		{"unavailable", domainerrors.Unavailable("relational store timed out"), 503, "UNAVAILABLE", "relational store timed out"},
		{"internal", domainerrors.Internal("disk on fire"), 500, "INTERNAL", genericInternalMessage},
		{
			"partial write looks like internal",
			domainerrors.PartialWrite("create_book_document", map[string]any{"book_id": 42}, errors.New("boom")),
			500, "INTERNAL", genericInternalMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newAPIError(http.StatusInternalServerError, "unexpected error occurred", tt.err)
			apiErr, ok := got.(*APIError)
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, apiErr.GetStatus())
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
		})
	}
}

func TestNewAPIError_PartialWriteHidesOrphan(t *testing.T) {
	err := domainerrors.PartialWrite("create_book_document", map[string]any{"book_id": 42}, errors.New("boom"))
	apiErr := newAPIError(http.StatusInternalServerError, "", err).(*APIError)
	assert.Nil(t, apiErr.Details)
}

func TestNewAPIError_SchemaFailuresAreValidation(t *testing.T) {
	apiErr := newAPIError(http.StatusUnprocessableEntity, "validation failed").(*APIError)
	assert.Equal(t, http.StatusBadRequest, apiErr.GetStatus())
	assert.Equal(t, "VALIDATION", apiErr.Code)
}
