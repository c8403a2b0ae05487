package service_test

import (
	"context"
	"testing"
	"time"

	"bitwise74/paste-api/internal"
	"bitwise74/paste-api/internal/model"
	"bitwise74/paste-api/internal/service"
	"bitwise74/paste-api/internal/storetest"
	"bitwise74/paste-api/pkg/snowflake"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPaste(t *testing.T, d *internal.Deps, id snowflake.ID, expiry *time.Time) {
	t.Helper()

	p := model.Paste{ID: id, Expiry: expiry}
	require.NoError(t, p.Insert(d.DB))

	doc := model.Document{ID: id*100 + 1, PasteID: id, DocumentType: "text/plain", Name: "a.txt", Size: 1}
	require.NoError(t, doc.Insert(d.DB))
	require.NoError(t, d.S3.PutDocument(context.Background(), doc.StorageKey(), doc.DocumentType, []byte("x")))

	token := model.PasteToken{PasteID: id, Token: "token-" + id.String()}
	require.NoError(t, token.Insert(d.DB))
}

func TestSweepExpired(t *testing.T) {
	mem := storetest.NewMemory()
	d := &internal.Deps{DB: storetest.NewDB(t), S3: mem}

	base := time.Now().UTC().Truncate(time.Second)
	expired := base.Add(-time.Hour)
	live := base.Add(time.Hour)

	seedPaste(t, d, 1, &expired)
	seedPaste(t, d, 2, &live)
	seedPaste(t, d, 3, nil)

	require.NoError(t, service.SweepExpired(context.Background(), d, time.Unix(0, 0), base))

	gone, err := model.FetchPaste(d.DB, 1)
	require.NoError(t, err)
	assert.Nil(t, gone)

	// Unexpired and never-expiring pastes are untouched
	for _, id := range []snowflake.ID{2, 3} {
		p, err := model.FetchPaste(d.DB, id)
		require.NoError(t, err)
		assert.NotNil(t, p)
	}

	assert.Equal(t, 2, mem.Len())

	// The same window swept again finds nothing to do
	require.NoError(t, service.SweepExpired(context.Background(), d, time.Unix(0, 0), base))
	assert.Equal(t, 2, mem.Len())
}

func TestSweepExpiredStopsOnCanceledContext(t *testing.T) {
	mem := storetest.NewMemory()
	d := &internal.Deps{DB: storetest.NewDB(t), S3: mem}

	base := time.Now().UTC().Truncate(time.Second)
	expired := base.Add(-time.Hour)

	seedPaste(t, d, 1, &expired)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := service.SweepExpired(ctx, d, time.Unix(0, 0), base)
	require.Error(t, err)

	// The batch aborted before touching the paste, a later sweep retries it
	p, err := model.FetchPaste(d.DB, 1)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestDestroyPaste(t *testing.T) {
	mem := storetest.NewMemory()
	d := &internal.Deps{DB: storetest.NewDB(t), S3: mem}

	seedPaste(t, d, 1, nil)

	require.NoError(t, service.DestroyPaste(context.Background(), d.DB, d.S3, 1))

	p, err := model.FetchPaste(d.DB, 1)
	require.NoError(t, err)
	assert.Nil(t, p)

	docs, err := model.FetchAllDocuments(d.DB, 1)
	require.NoError(t, err)
	assert.Empty(t, docs)

	row, err := model.FetchToken(d.DB, "token-1")
	require.NoError(t, err)
	assert.Nil(t, row)

	assert.Zero(t, mem.Len())

	// Destroying a paste that is already gone is fine
	require.NoError(t, service.DestroyPaste(context.Background(), d.DB, d.S3, 1))
}
