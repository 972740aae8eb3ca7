package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/listenupapp/libris/internal/auth"
	"github.com/listenupapp/libris/internal/domain"
	"github.com/listenupapp/libris/internal/logger"
	"github.com/listenupapp/libris/internal/store"
	"github.com/listenupapp/libris/internal/store/sqlite"
	"github.com/listenupapp/libris/internal/validation"
)

var errInjected = errors.New("injected document store failure")

// faultyDocuments wraps a real document store and fails selected writes.
type faultyDocuments struct {
	DocumentStore

	mu                sync.Mutex
	failBookDocuments bool
	failAnalytics     bool
	failProfiles      bool
	failEvents        bool
	profileIDs        []string
}

func (f *faultyDocuments) set(fn func(f *faultyDocuments)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *faultyDocuments) CreateBookDocument(ctx context.Context, doc *domain.BookDocument) (string, error) {
	f.mu.Lock()
	fail := f.failBookDocuments
	f.mu.Unlock()
	if fail {
		return "", errInjected
	}
	return f.DocumentStore.CreateBookDocument(ctx, doc)
}

func (f *faultyDocuments) CreateAnalytics(ctx context.Context, bookDocumentID string) (*domain.BookAnalytics, error) {
	f.mu.Lock()
	fail := f.failAnalytics
	f.mu.Unlock()
	if fail {
		return nil, errInjected
	}
	return f.DocumentStore.CreateAnalytics(ctx, bookDocumentID)
}

func (f *faultyDocuments) CreateProfile(ctx context.Context, p *domain.MemberProfile) error {
	f.mu.Lock()
	fail := f.failProfiles
	f.profileIDs = append(f.profileIDs, p.ID)
	f.mu.Unlock()
	if fail {
		return errInjected
	}
	return f.DocumentStore.CreateProfile(ctx, p)
}

func (f *faultyDocuments) AppendEvent(ctx context.Context, ev *domain.TelemetryEvent) (string, error) {
	f.mu.Lock()
	fail := f.failEvents
	f.mu.Unlock()
	if fail {
		return "", errInjected
	}
	return f.DocumentStore.AppendEvent(ctx, ev)
}

type testEnv struct {
	relational  *sqlite.Store
	documents   *store.Store
	faulty      *faultyDocuments
	ingest      *IngestService
	catalog     *CatalogService
	analytics   *AnalyticsService
	circulation *CirculationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	log := logger.Discard()

	relational, err := sqlite.Open(filepath.Join(dir, "libris.db"), log, sqlite.Options{Timeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { relational.Close() })

	documents, err := store.New(filepath.Join(dir, "documents"), log)
	require.NoError(t, err)
	t.Cleanup(func() { documents.Close() })

	faulty := &faultyDocuments{DocumentStore: documents}
	hasher := auth.NewHasher(auth.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})

	return &testEnv{
		relational:  relational,
		documents:   documents,
		faulty:      faulty,
		ingest:      NewIngestService(relational, faulty, hasher, validation.New(), log),
		catalog:     NewCatalogService(relational, faulty, log),
		analytics:   NewAnalyticsService(relational, faulty, log),
		circulation: NewCirculationService(relational, faulty, validation.New(), log),
	}
}

// isbn13 returns a checksum-valid ISBN-13 for n.
func isbn13(n int) string {
	body := fmt.Sprintf("978%09d", n)
	sum := 0
	for i, c := range body {
		d := int(c - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return fmt.Sprintf("%s%d", body, (10-sum%10)%10)
}

func ingestBooks(t *testing.T, env *testEnv, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := range n {
		pair, err := env.ingest.IngestBook(context.Background(), IngestBookRequest{
			Title: fmt.Sprintf("Book %d", i+1),
			ISBN:  isbn13(i + 1),
		})
		require.NoError(t, err)
		ids = append(ids, pair.BookID.Int64())
	}
	return ids
}

func registerMember(t *testing.T, env *testEnv, username string) int64 {
	t.Helper()
	pair, err := env.ingest.RegisterMember(context.Background(), RegisterMemberRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	return pair.MemberID
}

func countBookDocuments(t *testing.T, s *store.Store) int {
	t.Helper()
	docs, _, err := s.PageBookDocuments(context.Background(), "", store.MaxPageLimit)
	require.NoError(t, err)
	return len(docs)
}

func countAnalytics(t *testing.T, s *store.Store) int {
	t.Helper()
	n := 0
	for _, err := range s.Analytics.List(context.Background()) {
		require.NoError(t, err)
		n++
	}
	return n
}
