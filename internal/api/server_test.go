package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/libris/internal/auth"
	"github.com/listenupapp/libris/internal/correlation"
	"github.com/listenupapp/libris/internal/domain"
	"github.com/listenupapp/libris/internal/logger"
	"github.com/listenupapp/libris/internal/reconcile"
	"github.com/listenupapp/libris/internal/service"
	"github.com/listenupapp/libris/internal/store"
	"github.com/listenupapp/libris/internal/store/sqlite"
	"github.com/listenupapp/libris/internal/validation"
)

var errInjected = errors.New("injected document store failure")

// faultyDocuments fails book document creation on demand.
type faultyDocuments struct {
	*store.Store
	mu   sync.Mutex
	fail bool
}

func (f *faultyDocuments) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *faultyDocuments) CreateBookDocument(ctx context.Context, doc *domain.BookDocument) (string, error) {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return "", errInjected
	}
	return f.Store.CreateBookDocument(ctx, doc)
}

// testEnvelope mirrors APIEnvelope with a typed data field.
type testEnvelope[T any] struct {
	Version int        `json:"v"`
	Success bool       `json:"success"`
	Data    T          `json:"data"`
	Error   *ErrorBody `json:"error"`
}

func decode[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &env), "body: %s", body)
	require.Equal(t, EnvelopeVersion, env.Version)
	return env
}

type testServer struct {
	*Server
	api        humatest.TestAPI
	relational *sqlite.Store
	documents  *store.Store
	faulty     *faultyDocuments
}

func setupTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	dir := t.TempDir()
	log := logger.Discard()

	relational, err := sqlite.Open(filepath.Join(dir, "libris.db"), log, sqlite.Options{Timeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { relational.Close() })

	documents, err := store.New(filepath.Join(dir, "documents"), log)
	require.NoError(t, err)
	t.Cleanup(func() { documents.Close() })

	faulty := &faultyDocuments{Store: documents}
	hasher := auth.NewHasher(auth.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	scanner := reconcile.NewScanner(relational, documents, 100, log)

	services := &Services{
		Ingest:      service.NewIngestService(relational, faulty, hasher, validation.New(), log),
		Catalog:     service.NewCatalogService(relational, faulty, log),
		Analytics:   service.NewAnalyticsService(relational, faulty, log),
		Circulation: service.NewCirculationService(relational, faulty, validation.New(), log),
		Scanner:     scanner,
		Repairer:    reconcile.NewRepairer(scanner, documents, reconcile.RepairOptions{}, log),
		Relational:  relational,
		Documents:   documents,
	}

	s := NewServer(services, opts, log)
	t.Cleanup(func() { _ = s.Shutdown() })

	return &testServer{
		Server:     s,
		api:        humatest.Wrap(t, s.API()),
		relational: relational,
		documents:  documents,
		faulty:     faulty,
	}
}

func (ts *testServer) ingest(t *testing.T, title, isbn string) int64 {
	t.Helper()
	resp := ts.api.Post("/api/v1/books", map[string]any{"title": title, "isbn": isbn})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode[correlation.BookPair](t, resp.Body.Bytes()).Data.BookID.Int64()
}
