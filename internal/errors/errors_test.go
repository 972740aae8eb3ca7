package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeValidation, http.StatusBadRequest},
		{CodeDuplicateKey, http.StatusConflict},
		{CodeConflict, http.StatusConflict},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodePartialWrite, http.StatusInternalServerError},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestError_IsMatchesCode(t *testing.T) {
	err := DuplicateKey("username taken")

	assert.True(t, Is(err, ErrDuplicateKey))
	assert.False(t, Is(err, ErrValidation))

	wrapped := fmt.Errorf("register: %w", err)
	assert.True(t, Is(wrapped, ErrDuplicateKey))
}

func TestPartialWrite(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := PartialWrite("book_document", map[string]any{"book_id": int64(42)}, cause)

	assert.True(t, Is(err, ErrPartialWrite))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "book_document")
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(fmt.Errorf("x: %w", NotFound("gone"))))
	assert.Equal(t, CodeInternal, CodeOf(fmt.Errorf("plain")))
}

func TestRecoverable(t *testing.T) {
	assert.True(t, CodeValidation.Recoverable())
	assert.True(t, CodeDuplicateKey.Recoverable())
	assert.False(t, CodePartialWrite.Recoverable())
	assert.False(t, CodeUnavailable.Recoverable())
}

func TestWithDetails_DoesNotMutate(t *testing.T) {
	base := Validation("bad")
	detailed := base.WithDetails([]string{"title"})

	assert.Nil(t, base.Details)
	assert.Equal(t, []string{"title"}, detailed.Details)
}
