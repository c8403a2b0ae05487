package model_test

import (
	"testing"
	"time"

	"bitwise74/paste-api/internal/model"
	"bitwise74/paste-api/internal/storetest"
	"bitwise74/paste-api/pkg/snowflake"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTombstoned(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)
	limit := int64(3)

	cases := []struct {
		name string
		p    model.Paste
		want bool
	}{
		{"no expiry, no limit", model.Paste{}, false},
		{"expiry ahead", model.Paste{Expiry: &future}, false},
		{"expiry passed", model.Paste{Expiry: &past}, true},
		{"views left", model.Paste{Views: 1, MaxViews: &limit}, false},
		{"last view still allowed", model.Paste{Views: 2, MaxViews: &limit}, false},
		{"limit reached", model.Paste{Views: 3, MaxViews: &limit}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.p.Tombstoned(now))
		})
	}
}

func TestFetchPastesBetween(t *testing.T) {
	db := storetest.NewDB(t)
	base := time.Now().UTC().Truncate(time.Second)

	at := func(id snowflake.ID, offset time.Duration) model.Paste {
		e := base.Add(offset)
		return model.Paste{ID: id, Expiry: &e}
	}

	// Inserted out of order on purpose
	for _, p := range []model.Paste{
		at(3, 3*time.Hour),
		at(1, time.Hour),
		{ID: 5},
		at(4, 10*time.Hour),
		at(2, 2*time.Hour),
	} {
		require.NoError(t, p.Insert(db))
	}

	pastes, err := model.FetchPastesBetween(db, base.Add(time.Hour), base.Add(3*time.Hour))
	require.NoError(t, err)

	// Both window edges are inclusive and results come back oldest first
	require.Len(t, pastes, 3)
	assert.Equal(t, snowflake.ID(1), pastes[0].ID)
	assert.Equal(t, snowflake.ID(2), pastes[1].ID)
	assert.Equal(t, snowflake.ID(3), pastes[2].ID)
}

func TestAddPasteView(t *testing.T) {
	db := storetest.NewDB(t)

	p := model.Paste{ID: 1}
	require.NoError(t, p.Insert(db))

	views, err := model.AddPasteView(db, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), views)

	views, err = model.AddPasteView(db, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), views)
}

func TestDeletePasteIsIdempotent(t *testing.T) {
	db := storetest.NewDB(t)

	p := model.Paste{ID: 1}
	require.NoError(t, p.Insert(db))

	deleted, err := model.DeletePaste(db, 1)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = model.DeletePaste(db, 1)
	require.NoError(t, err)
	assert.False(t, deleted, "a second delete is a no-op, not an error")
}

func TestPasteUpsert(t *testing.T) {
	db := storetest.NewDB(t)

	p := model.Paste{ID: 1}
	require.NoError(t, p.Insert(db))

	limit := int64(7)
	p.SetEdited()
	p.SetMaxViews(&limit)
	require.NoError(t, p.Upsert(db))

	got, err := model.FetchPaste(db, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Edited)
	require.NotNil(t, got.MaxViews)
	assert.Equal(t, limit, *got.MaxViews)
}

func TestUpsertDoesNotRewriteViews(t *testing.T) {
	db := storetest.NewDB(t)

	p := model.Paste{ID: 1}
	require.NoError(t, p.Insert(db))

	// A mutation flow holds this snapshot while a concurrent read commits
	// its increment
	stale, err := model.FetchPaste(db, 1)
	require.NoError(t, err)

	views, err := model.AddPasteView(db, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), views)

	stale.SetEdited()
	require.NoError(t, stale.Upsert(db))

	got, err := model.FetchPaste(db, 1)
	require.NoError(t, err)
	assert.True(t, got.Edited)
	assert.Equal(t, int64(1), got.Views, "upserting a stale snapshot must not roll the counter back")
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	db := storetest.NewDB(t)

	p := model.Paste{ID: 1}
	require.NoError(t, p.Insert(db))

	dup := model.Paste{ID: 1}
	assert.Error(t, dup.Insert(db), "colliding IDs must surface, not overwrite")
}
