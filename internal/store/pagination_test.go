package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageParams_Normalize(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero defaults", 0, DefaultPageLimit},
		{"negative defaults", -3, DefaultPageLimit},
		{"in range kept", 20, 20},
		{"capped", 10_000, MaxPageLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PageParams{Limit: tt.limit}
			p.Normalize()
			assert.Equal(t, tt.want, p.Limit)
		})
	}
}

func TestCursor_RoundTrip(t *testing.T) {
	assert.Empty(t, EncodeCursor(""))

	cursor := EncodeCursor("42")
	assert.NotEqual(t, "42", cursor)

	key, err := DecodeCursor(cursor)
	require.NoError(t, err)
	assert.Equal(t, "42", key)

	key, err = DecodeCursor("")
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	_, err := DecodeCursor("!!not base64!!")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
