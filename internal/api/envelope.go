package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// EnvelopeVersion is the "v" field clients use to pick a decoder.
const EnvelopeVersion = 1

// APIEnvelope wraps every response body.
type APIEnvelope struct { //nolint:revive // API prefix matches client naming
	Version int        `json:"v"`
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is the error half of the envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer is a huma transformer that wraps bodies in APIEnvelope.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if strings.HasPrefix(status, "2") {
		return APIEnvelope{Version: EnvelopeVersion, Success: true, Data: v}, nil
	}
	code, _ := strconv.Atoi(status)
	return APIEnvelope{Version: EnvelopeVersion, Error: errorBody(code, v)}, nil
}

func errorBody(status int, v any) *ErrorBody {
	var apiErr *APIError
	if err, ok := v.(error); ok {
		if errors.As(err, &apiErr) {
			return &ErrorBody{Code: apiErr.Code, Message: apiErr.Message, Details: apiErr.Details}
		}
		return &ErrorBody{Code: statusToCode(status), Message: err.Error()}
	}
	return &ErrorBody{Code: statusToCode(status), Message: http.StatusText(status)}
}

// writeError renders an error envelope outside huma, for middleware.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIEnvelope{
		Version: EnvelopeVersion,
		Error:   &ErrorBody{Code: code, Message: message},
	})
}
