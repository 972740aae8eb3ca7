package correlation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBookKey(t *testing.T) {
	tests := []struct {
		in      string
		want    BookKey
		wantErr bool
	}{
		{"42", 42, false},
		{" 7 ", 7, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBookKey(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBookKey_String(t *testing.T) {
	assert.Equal(t, "42", BookKey(42).String())
	assert.Equal(t, int64(42), BookKey(42).Int64())
}

func TestNewProfileRef(t *testing.T) {
	ref, err := NewProfileRef()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(ref), "prof-"))
	assert.True(t, ref.Valid())

	other, err := NewProfileRef()
	require.NoError(t, err)
	assert.NotEqual(t, ref, other)
}

func TestProfileRef_Valid(t *testing.T) {
	assert.False(t, ProfileRef("").Valid())
	assert.False(t, ProfileRef("prof-short").Valid())
	assert.False(t, ProfileRef("doc-V1StGXR8_Z5jdHi6B-myT").Valid())
	assert.False(t, ProfileRef("prof-V1StGXR8_Z5jdHi6B!myT").Valid())
	assert.True(t, ProfileRef("prof-V1StGXR8_Z5jdHi6B-myT").Valid())
}

func TestNewDocumentIDs(t *testing.T) {
	doc, err := NewDocumentID()
	require.NoError(t, err)
	an, err := NewAnalyticsID()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(doc), "doc-"))
	assert.True(t, strings.HasPrefix(string(an), "an-"))
}
