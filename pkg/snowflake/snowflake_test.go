package snowflake

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUnique(t *testing.T) {
	seen := make(map[ID]struct{})

	for range 50 {
		id, err := Generate()
		require.NoError(t, err)

		seen[id] = struct{}{}
	}

	assert.Len(t, seen, 50, "generated IDs should not collide")
}

func TestCreatedAtOrdering(t *testing.T) {
	base := time.Now()

	var prev ID
	for i := range 5 {
		id, err := generateAt(base.Add(time.Duration(i) * time.Second))
		require.NoError(t, err)

		assert.False(t, id.CreatedAt().Before(prev.CreatedAt()), "creation times must be non-decreasing")
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestCreatedAtRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)

	id, err := generateAt(now)
	require.NoError(t, err)

	assert.Equal(t, now.Unix(), id.CreatedAt().Unix())
}

func TestJSONIsDecimalString(t *testing.T) {
	id := ID(517815304354284604)

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"517815304354284604"`, string(data))

	var back ID
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, id, back)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("not-a-number")
	assert.Error(t, err)

	_, err = Parse("-5")
	assert.Error(t, err)
}
