package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/libris/internal/domain"
	"github.com/listenupapp/libris/internal/store"
)

func TestIngestBook_Created(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Post("/api/v1/books", map[string]any{
		"title":    "Dune",
		"isbn":     "978-0-441-17271-9",
		"synopsis": "<p>A desert planet.</p>",
		"tags":     []string{"Classic"},
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	env := decode[map[string]any](t, resp.Body.Bytes())
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	assert.EqualValues(t, 1, env.Data["book_id"])
	assert.NotEmpty(t, env.Data["document_id"])

	resp = ts.api.Get("/api/v1/books/1")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	item := decode[domain.CatalogItem](t, resp.Body.Bytes()).Data
	assert.True(t, item.HasDocument)
	assert.Equal(t, "A desert planet.", item.Synopsis)
	assert.Equal(t, []string{"classic"}, item.Tags)
}

func TestIngestBook_Errors(t *testing.T) {
	ts := setupTestServer(t, Options{})
	ts.ingest(t, "Dune", "9780441172719")

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantCode   string
	}{
		{"bad checksum", map[string]any{"title": "Dune", "isbn": "9780441172710"}, 400, "VALIDATION"},
		{"missing isbn", map[string]any{"title": "Dune"}, 400, "VALIDATION"},
		{"duplicate isbn", map[string]any{"title": "Dune again", "isbn": "9780441172719"}, 409, "DUPLICATE_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Post("/api/v1/books", tt.body)
			require.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())
			env := decode[json.RawMessage](t, resp.Body.Bytes())
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
		})
	}
}

func TestIngestBook_PartialWriteIsGenericInternal(t *testing.T) {
	ts := setupTestServer(t, Options{})
	ts.faulty.setFail(true)

	resp := ts.api.Post("/api/v1/books", map[string]any{"title": "Dune", "isbn": "9780441172719"})
	require.Equal(t, http.StatusInternalServerError, resp.Code)

	env := decode[json.RawMessage](t, resp.Body.Bytes())
	require.NotNil(t, env.Error)
	assert.Equal(t, "INTERNAL", env.Error.Code)
	assert.Equal(t, genericInternalMessage, env.Error.Message)
	assert.Nil(t, env.Error.Details)
	assert.NotContains(t, resp.Body.String(), "book_id")

	// The relational row committed anyway.
	_, err := ts.relational.GetBook(t.Context(), 1)
	require.NoError(t, err)
}

func TestListBooks_DefaultsAndPaging(t *testing.T) {
	ts := setupTestServer(t, Options{})
	ts.ingest(t, "Dune", "9780441172719")
	_, err := ts.relational.InsertBook(t.Context(), &domain.Book{Title: "Orphaned", ISBN: "9780553293357", Copies: 1})
	require.NoError(t, err)

	resp := ts.api.Get("/api/v1/books?limit=1")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	page := decode[store.Page[domain.CatalogItem]](t, resp.Body.Bytes()).Data
	require.Len(t, page.Items, 1)
	assert.True(t, page.HasMore)
	assert.Equal(t, 2, page.Total)

	resp = ts.api.Get("/api/v1/books?limit=1&cursor=" + page.NextCursor)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	page = decode[store.Page[domain.CatalogItem]](t, resp.Body.Bytes()).Data
	require.Len(t, page.Items, 1)
	assert.False(t, page.HasMore)

	orphan := page.Items[0]
	assert.False(t, orphan.HasDocument)
	assert.Equal(t, domain.DefaultSynopsis, orphan.Synopsis)
	assert.Equal(t, domain.DefaultCoverImage, orphan.CoverImageURL)
	assert.Equal(t, []string{}, orphan.Tags)
}

func TestListBooks_RejectsBadQuery(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Get("/api/v1/books?status=stolen")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.api.Get("/api/v1/books?cursor=not-a-cursor!")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetBook_NotFound(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Get("/api/v1/books/99")
	require.Equal(t, http.StatusNotFound, resp.Code)
	env := decode[json.RawMessage](t, resp.Body.Bytes())
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestRecordView_IncrementsCounters(t *testing.T) {
	ts := setupTestServer(t, Options{})
	id := ts.ingest(t, "Dune", "9780441172719")

	for range 2 {
		resp := ts.api.Post(fmt.Sprintf("/api/v1/books/%d/views", id), "X-Session-ID: sess-1")
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
		env := decode[map[string]string](t, resp.Body.Bytes())
		assert.NotEmpty(t, env.Data["event_id"])
	}

	resp := ts.api.Get(fmt.Sprintf("/api/v1/books/%d/analytics", id))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	counters := decode[domain.BookAnalytics](t, resp.Body.Bytes()).Data
	assert.Equal(t, int64(2), counters.TotalViews)
}
