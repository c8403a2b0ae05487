package paste

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bitwise74/paste-api/internal"
	"bitwise74/paste-api/internal/model"
	"bitwise74/paste-api/internal/storetest"
	"bitwise74/paste-api/middleware"
	"bitwise74/paste-api/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	d   *internal.Deps
	mem *storetest.Memory
	r   *gin.Engine
	now time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()

	viper.Set("paste.min_document_size", 1)
	viper.Set("paste.max_document_size", 1000)
	viper.Set("paste.min_name_length", 1)
	viper.Set("paste.max_name_length", 50)
	viper.Set("paste.min_document_count", 1)
	viper.Set("paste.max_document_count", 5)
	viper.Set("paste.min_total_size", 1)
	viper.Set("paste.max_total_size", 2000)
	viper.Set("paste.default_expiry_hours", 0)
	viper.Set("paste.max_expiry_hours", 720)

	gin.SetMode(gin.TestMode)

	e := &env{
		mem: storetest.NewMemory(),
		now: time.Now().UTC(),
	}

	e.d = &internal.Deps{
		DB:  storetest.NewDB(t),
		S3:  e.mem,
		Now: func() time.Time { return e.now },
	}

	auth := middleware.NewPasteAuthMiddleware(e.d.DB)

	e.r = gin.New()
	e.r.Use(middleware.NewRequestIDMiddleware())

	p := e.r.Group("/api/pastes")
	p.POST("", func(c *gin.Context) { PasteCreate(c, e.d) })
	p.GET("/bulk", func(c *gin.Context) { PasteFetchBulk(c, e.d) })
	p.GET("/:id", func(c *gin.Context) { PasteFetch(c, e.d) })
	p.PATCH("/:id", auth, func(c *gin.Context) { PastePatch(c, e.d) })
	p.DELETE("/:id", auth, func(c *gin.Context) { PasteDelete(c, e.d) })

	return e
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func (e *env) createPaste(t *testing.T, body gin.H) PasteView {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/pastes", "", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var view PasteView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	return view
}

func decodePaste(t *testing.T, w *httptest.ResponseRecorder) PasteView {
	t.Helper()

	var view PasteView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	return view
}

func TestPasteCreateAndFetch(t *testing.T) {
	e := newEnv(t)

	created := e.createPaste(t, gin.H{
		"documents": []gin.H{
			{"name": "cool.txt", "content": "hello"},
			{"name": "other.md", "type": "text/markdown", "content": "# hi"},
		},
	})

	assert.NotEmpty(t, created.Token)
	assert.False(t, created.Edited)
	assert.Nil(t, created.Expiry)
	assert.Len(t, created.Documents, 2)
	assert.Equal(t, int64(5), created.Documents[0].Size)

	// The IDs baked into the token must match the paste it was issued for
	embedded, err := security.DecodeTokenPasteID(created.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, embedded)

	assert.Equal(t, 2, e.mem.Len())

	w := e.do(t, http.MethodGet, "/api/pastes/"+created.ID.String()+"?content=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	fetched := decodePaste(t, w)
	assert.Empty(t, fetched.Token, "the token is returned once, on create")
	assert.Equal(t, int64(1), fetched.Views)

	require.Len(t, fetched.Documents, 2)
	for _, doc := range fetched.Documents {
		require.NotNil(t, doc.Content)

		if doc.Name == "cool.txt" {
			assert.Equal(t, "hello", *doc.Content)
			assert.Equal(t, "text/plain", doc.DocumentType)
		} else {
			assert.Equal(t, "# hi", *doc.Content)
			assert.Equal(t, "text/markdown", doc.DocumentType)
		}
	}
}

func TestPasteCreateRejections(t *testing.T) {
	e := newEnv(t)

	cases := []struct {
		name    string
		body    gin.H
		wantMsg string
	}{
		{
			"no documents",
			gin.H{"documents": []gin.H{}},
			"No documents",
		},
		{
			"duplicate names",
			gin.H{"documents": []gin.H{
				{"name": "a.txt", "content": "x"},
				{"name": "a.txt", "content": "y"},
			}},
			"same name",
		},
		{
			"unsupported mime",
			gin.H{"documents": []gin.H{
				{"name": "a.png", "type": "image/png", "content": "x"},
			}},
			"Invalid mime type",
		},
		{
			"max_views zero",
			gin.H{
				"max_views": 0,
				"documents": []gin.H{{"name": "a.txt", "content": "x"}},
			},
			"max_views must be bigger than 0",
		},
		{
			"expiry in the past",
			gin.H{
				"expiry_timestamp": e.now.Add(-time.Hour),
				"documents":        []gin.H{{"name": "a.txt", "content": "x"}},
			},
			"already in the past",
		},
		{
			"expiry too far out",
			gin.H{
				"expiry_timestamp": e.now.Add(10000 * time.Hour),
				"documents":        []gin.H{{"name": "a.txt", "content": "x"}},
			},
			"too far in the future",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/api/pastes", "", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantMsg)
		})
	}

	assert.Zero(t, e.mem.Len(), "rejected creates must not write content")
}

func TestPasteCreateRollsBackWhenObjectWriteFails(t *testing.T) {
	e := newEnv(t)
	e.mem.FailPuts = true

	w := e.do(t, http.MethodPost, "/api/pastes", "", gin.H{
		"documents": []gin.H{{"name": "a.txt", "content": "x"}},
	})
	require.Equal(t, http.StatusInternalServerError, w.Code)

	// The metadata rows must have rolled back with the failed content write
	var count int64
	require.NoError(t, e.d.DB.Model(model.Paste{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Zero(t, e.mem.Len())
}

func TestPasteFetchCountsDownMaxViews(t *testing.T) {
	e := newEnv(t)

	maxViews := int64(1)
	created := e.createPaste(t, gin.H{
		"max_views": maxViews,
		"documents": []gin.H{{"name": "once.txt", "content": "secret"}},
	})

	w := e.do(t, http.MethodGet, "/api/pastes/"+created.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decodePaste(t, w).Views)

	// The second read would exceed the limit, so the paste is gone
	w = e.do(t, http.MethodGet, "/api/pastes/"+created.ID.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	p, err := model.FetchPaste(e.d.DB, created.ID)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Zero(t, e.mem.Len(), "content of a tombstoned paste is purged")
}

func TestPasteFetchDeletesExpired(t *testing.T) {
	e := newEnv(t)

	created := e.createPaste(t, gin.H{
		"expiry_timestamp": e.now.Add(time.Hour),
		"documents":        []gin.H{{"name": "a.txt", "content": "x"}},
	})
	require.NotNil(t, created.Expiry)

	e.now = e.now.Add(2 * time.Hour)

	w := e.do(t, http.MethodGet, "/api/pastes/"+created.ID.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	p, err := model.FetchPaste(e.d.DB, created.ID)
	require.NoError(t, err)
	assert.Nil(t, p, "an expired paste is deleted by the read that finds it")
	assert.Zero(t, e.mem.Len())
}

func TestPastePatch(t *testing.T) {
	e := newEnv(t)

	expiry := e.now.Add(24 * time.Hour)
	created := e.createPaste(t, gin.H{
		"expiry_timestamp": expiry,
		"documents":        []gin.H{{"name": "a.txt", "content": "before"}},
	})
	docID := created.Documents[0].ID

	t.Run("requires a token", func(t *testing.T) {
		w := e.do(t, http.MethodPatch, "/api/pastes/"+created.ID.String(), "", gin.H{})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects a foreign token", func(t *testing.T) {
		other := e.createPaste(t, gin.H{
			"documents": []gin.H{{"name": "b.txt", "content": "x"}},
		})

		w := e.do(t, http.MethodPatch, "/api/pastes/"+created.ID.String(), other.Token, gin.H{})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("omitted fields stay untouched", func(t *testing.T) {
		maxViews := int64(5)

		w := e.do(t, http.MethodPatch, "/api/pastes/"+created.ID.String(), created.Token, gin.H{
			"max_views": maxViews,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		view := decodePaste(t, w)
		require.NotNil(t, view.MaxViews)
		assert.Equal(t, maxViews, *view.MaxViews)
		require.NotNil(t, view.Expiry, "omitted expiry must not be cleared")
		assert.True(t, view.Edited)
	})

	t.Run("null clears", func(t *testing.T) {
		w := e.do(t, http.MethodPatch, "/api/pastes/"+created.ID.String(), created.Token, gin.H{
			"expiry_timestamp": nil,
			"max_views":        nil,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		view := decodePaste(t, w)
		assert.Nil(t, view.Expiry)
		assert.Nil(t, view.MaxViews)
	})

	t.Run("rewrites document content", func(t *testing.T) {
		w := e.do(t, http.MethodPatch, "/api/pastes/"+created.ID.String(), created.Token, gin.H{
			"documents": []gin.H{{"id": docID, "content": "after!!"}},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		view := decodePaste(t, w)
		require.Len(t, view.Documents, 1)
		assert.Equal(t, int64(len("after!!")), view.Documents[0].Size)

		doc, err := model.FetchDocument(e.d.DB, docID)
		require.NoError(t, err)
		require.NotNil(t, doc)

		data, err := e.mem.FetchDocument(t.Context(), doc.StorageKey())
		require.NoError(t, err)
		assert.Equal(t, "after!!", string(data))
	})

	t.Run("renaming moves the content", func(t *testing.T) {
		doc, err := model.FetchDocument(e.d.DB, docID)
		require.NoError(t, err)
		oldKey := doc.StorageKey()

		w := e.do(t, http.MethodPatch, "/api/pastes/"+created.ID.String(), created.Token, gin.H{
			"documents": []gin.H{{"id": docID, "name": "renamed.txt"}},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		doc, err = model.FetchDocument(e.d.DB, docID)
		require.NoError(t, err)
		assert.Equal(t, "renamed.txt", doc.Name)

		assert.False(t, e.mem.Has(oldKey))

		data, err := e.mem.FetchDocument(t.Context(), doc.StorageKey())
		require.NoError(t, err)
		assert.Equal(t, "after!!", string(data))
	})

	t.Run("unknown document is 404", func(t *testing.T) {
		w := e.do(t, http.MethodPatch, "/api/pastes/"+created.ID.String(), created.Token, gin.H{
			"documents": []gin.H{{"id": "999", "content": "x"}},
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "not found")
	})

	t.Run("an entry with only an id changes nothing", func(t *testing.T) {
		fresh := e.createPaste(t, gin.H{
			"documents": []gin.H{{"name": "c.txt", "content": "asis"}},
		})

		w := e.do(t, http.MethodPatch, "/api/pastes/"+fresh.ID.String(), fresh.Token, gin.H{
			"documents": []gin.H{{"id": fresh.Documents[0].ID}},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.False(t, decodePaste(t, w).Edited, "naming a document without changing it is not an edit")
	})

	t.Run("duplicate document ids are rejected", func(t *testing.T) {
		w := e.do(t, http.MethodPatch, "/api/pastes/"+created.ID.String(), created.Token, gin.H{
			"documents": []gin.H{
				{"id": docID, "content": "x"},
				{"id": docID, "content": "y"},
			},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPasteFetchBulk(t *testing.T) {
	e := newEnv(t)

	first := e.createPaste(t, gin.H{
		"documents": []gin.H{{"name": "a.txt", "content": "x"}},
	})
	second := e.createPaste(t, gin.H{
		"documents": []gin.H{{"name": "b.txt", "content": "y"}},
	})

	w := e.do(t, http.MethodGet, "/api/pastes/bulk?ids="+first.ID.String()+","+second.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var views []PasteView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	require.Len(t, views, 2)
	assert.Equal(t, first.ID, views[0].ID)
	assert.Equal(t, second.ID, views[1].ID)
	assert.Empty(t, views[0].Token)
	require.Len(t, views[0].Documents, 1)
	assert.Nil(t, views[0].Documents[0].Content, "bulk never inlines content")

	// A bulk read is a listing, not a view
	p, err := model.FetchPaste(e.d.DB, first.ID)
	require.NoError(t, err)
	assert.Zero(t, p.Views)

	t.Run("unknown id fails the whole request", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/pastes/bulk?ids="+first.ID.String()+",999", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("tombstoned id fails and is deleted", func(t *testing.T) {
		expiring := e.createPaste(t, gin.H{
			"expiry_timestamp": e.now.Add(time.Hour),
			"documents":        []gin.H{{"name": "c.txt", "content": "z"}},
		})

		e.now = e.now.Add(2 * time.Hour)

		w := e.do(t, http.MethodGet, "/api/pastes/bulk?ids="+expiring.ID.String(), "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		p, err := model.FetchPaste(e.d.DB, expiring.ID)
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("empty and oversized id lists are rejected", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/pastes/bulk", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		ids := first.ID.String()
		for range maxBulkPastes {
			ids += "," + first.ID.String()
		}

		w = e.do(t, http.MethodGet, "/api/pastes/bulk?ids="+ids, "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPasteLifecycle(t *testing.T) {
	e := newEnv(t)

	created := e.createPaste(t, gin.H{
		"documents": []gin.H{{"name": "cool.txt", "content": "hello"}},
	})

	embedded, err := security.DecodeTokenPasteID(created.Token)
	require.NoError(t, err)
	require.Equal(t, created.ID, embedded)

	w := e.do(t, http.MethodPatch, "/api/pastes/"+created.ID.String(), created.Token, gin.H{
		"max_views": 1,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	view := decodePaste(t, w)
	require.NotNil(t, view.MaxViews)
	assert.Equal(t, int64(1), *view.MaxViews)
	assert.Nil(t, view.Expiry, "an omitted expiry stays as it was")

	w = e.do(t, http.MethodGet, "/api/pastes/"+created.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decodePaste(t, w).Views)

	w = e.do(t, http.MethodGet, "/api/pastes/"+created.ID.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPasteDelete(t *testing.T) {
	e := newEnv(t)

	created := e.createPaste(t, gin.H{
		"documents": []gin.H{
			{"name": "a.txt", "content": "x"},
			{"name": "b.txt", "content": "y"},
		},
	})

	w := e.do(t, http.MethodDelete, "/api/pastes/"+created.ID.String(), created.Token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	p, err := model.FetchPaste(e.d.DB, created.ID)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Zero(t, e.mem.Len())

	// The token died with the paste
	w = e.do(t, http.MethodDelete, "/api/pastes/"+created.ID.String(), created.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
