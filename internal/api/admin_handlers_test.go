package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/libris/internal/reconcile"
)

func TestConsistency_ScanRepairScan(t *testing.T) {
	ts := setupTestServer(t, Options{})
	ts.ingest(t, "Dune", "9780441172719")

	resp := ts.api.Get("/api/v1/admin/consistency")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.True(t, decode[reconcile.Report](t, resp.Body.Bytes()).Data.IsHealthy)

	ts.faulty.setFail(true)
	require.Equal(t, http.StatusInternalServerError, ts.api.Post("/api/v1/books", map[string]any{"title": "Hyperion", "isbn": "9780553283686"}).Code)
	ts.faulty.setFail(false)

	resp = ts.api.Get("/api/v1/admin/consistency")
	require.Equal(t, http.StatusOK, resp.Code)
	report := decode[reconcile.Report](t, resp.Body.Bytes()).Data
	assert.False(t, report.IsHealthy)
	assert.Equal(t, []reconcile.BookOrphan{{BookID: 2, Title: "Hyperion"}}, report.MySQLOrphans)
	assert.Empty(t, report.MongoOrphans)

	resp = ts.api.Post("/api/v1/admin/consistency/repair")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, map[string]bool{"repaired": true}, decode[map[string]bool](t, resp.Body.Bytes()).Data)

	resp = ts.api.Get("/api/v1/admin/consistency")
	assert.True(t, decode[reconcile.Report](t, resp.Body.Bytes()).Data.IsHealthy)
}

func TestConsistency_ReportUsesLegacyKeys(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Get("/api/v1/admin/consistency")
	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	for _, key := range []string{`"isHealthy":true`, `"mysqlOrphans":[]`, `"mongoOrphans":[]`, `"counterOrphans":[]`, `"scannedAt"`} {
		assert.Contains(t, body, key)
	}
}
