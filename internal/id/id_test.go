package id

import (
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	for range 1000 {
		id, err := Generate("prof")
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}
}

func TestGenerate_Format(t *testing.T) {
	for _, prefix := range []string{"prof", "doc", "an"} {
		t.Run(prefix, func(t *testing.T) {
			id, err := Generate(prefix)
			require.NoError(t, err)

			require.True(t, strings.HasPrefix(id, prefix+"-"))
			// NanoID default length is 21.
			assert.Len(t, strings.TrimPrefix(id, prefix+"-"), 21)
		})
	}
}

func TestTimeOrdered_SortsByCreation(t *testing.T) {
	var ids []string
	for range 50 {
		id, err := TimeOrdered()
		require.NoError(t, err)
		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), parsed.Version())
		ids = append(ids, id)
	}

	assert.True(t, sort.StringsAreSorted(ids))
}

func TestSession(t *testing.T) {
	_, err := uuid.Parse(Session())
	assert.NoError(t, err)
}
