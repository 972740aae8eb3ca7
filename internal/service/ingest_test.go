package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/libris/internal/correlation"
	"github.com/listenupapp/libris/internal/domain"
	domainerrors "github.com/listenupapp/libris/internal/errors"
	"github.com/listenupapp/libris/internal/store"
)

func TestIngestBook_CreatesCorrelatedPair(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pair, err := env.ingest.IngestBook(ctx, IngestBookRequest{Title: "Dune", ISBN: "9780441172719"})
	require.NoError(t, err)
	assert.Equal(t, correlation.BookKey(1), pair.BookID)

	book, err := env.relational.GetBook(ctx, pair.BookID.Int64())
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, 1, book.Copies)

	doc, err := env.documents.GetBookDocumentByBookID(ctx, pair.BookID.Int64())
	require.NoError(t, err)
	assert.Equal(t, string(pair.DocumentID), doc.ID)
	assert.Equal(t, pair.BookID.Int64(), doc.MySQLBookID)
	assert.Nil(t, doc.Synopsis)
	assert.Equal(t, domain.DefaultCoverImage, doc.CoverImageURL)
	assert.Equal(t, []string{}, doc.Tags)
	assert.Equal(t, domain.Inventory{TotalCopies: 1, AvailableCopies: 1}, doc.Inventory)

	counters, err := env.documents.GetAnalyticsByBookDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, string(pair.AnalyticsID), counters.ID)
	assert.Zero(t, counters.TotalViews)
	assert.Zero(t, counters.TotalBorrows)
	assert.Zero(t, counters.TotalReturns)
	assert.Empty(t, counters.ReturnDurations)

	assert.Equal(t, 1, countBookDocuments(t, env.documents))
	assert.Equal(t, 1, countAnalytics(t, env.documents))
}

func TestIngestBook_NormalizesContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	copies := 3

	pair, err := env.ingest.IngestBook(ctx, IngestBookRequest{
		Title:         "  Dune  ",
		ISBN:          "978-0-441-17271-9",
		Author:        "Frank Herbert",
		Category:      "Science Fiction",
		Copies:        &copies,
		Synopsis:      "<p>A <b>desert</b> planet.</p>",
		CoverImageURL: "/covers/dune.jpg",
		Tags:          []string{"Science Fiction", "science fiction", "Classic"},
	})
	require.NoError(t, err)

	book, err := env.relational.GetBook(ctx, pair.BookID.Int64())
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "9780441172719", book.ISBN)
	assert.NotNil(t, book.AuthorID)
	assert.NotNil(t, book.CategoryID)
	assert.Equal(t, 3, book.Copies)

	doc, err := env.documents.GetBookDocumentByBookID(ctx, pair.BookID.Int64())
	require.NoError(t, err)
	require.NotNil(t, doc.Synopsis)
	assert.Equal(t, "A **desert** planet.", *doc.Synopsis)
	assert.Equal(t, "/covers/dune.jpg", doc.CoverImageURL)
	assert.Equal(t, []string{"science-fiction", "classic"}, doc.Tags)
	assert.Equal(t, 3, doc.Inventory.TotalCopies)
}

func TestIngestBook_RejectedInputWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  IngestBookRequest
	}{
		{"missing title", IngestBookRequest{ISBN: "9780441172719"}},
		{"bad checksum", IngestBookRequest{Title: "Dune", ISBN: "9780441172710"}},
		{"isbn-10", IngestBookRequest{Title: "Dune", ISBN: "0441172717"}},
		{"unknown status", IngestBookRequest{Title: "Dune", ISBN: "9780441172719", Status: "stolen"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ingest.IngestBook(ctx, tt.req)
			assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))
			assert.True(t, domainerrors.CodeOf(err).Recoverable())
		})
	}

	n, err := env.relational.CountBooks(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, countBookDocuments(t, env.documents))
}

func TestIngestBook_DuplicateISBN(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ingest.IngestBook(ctx, IngestBookRequest{Title: "Dune", ISBN: "9780441172719"})
	require.NoError(t, err)

	_, err = env.ingest.IngestBook(ctx, IngestBookRequest{Title: "Dune (reissue)", ISBN: "9780441172719"})
	assert.Equal(t, domainerrors.CodeDuplicateKey, domainerrors.CodeOf(err))
	assert.Equal(t, 1, countBookDocuments(t, env.documents))
}

func TestIngestBook_DocumentFailureLeavesOrphan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ingestBooks(t, env, 41)
	env.faulty.set(func(f *faultyDocuments) { f.failBookDocuments = true })

	_, err := env.ingest.IngestBook(ctx, IngestBookRequest{Title: "The Hitchhiker's Guide", ISBN: isbn13(42)})
	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodePartialWrite, domainErr.Code)
	assert.False(t, domainErr.Code.Recoverable())
	assert.Equal(t, map[string]any{"book_id": int64(42)}, domainErr.Details)

	// The relational row is kept.
	book, err := env.relational.GetBook(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "The Hitchhiker's Guide", book.Title)

	_, err = env.documents.GetBookDocumentByBookID(ctx, 42)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 41, countBookDocuments(t, env.documents))
}

func TestIngestBook_AnalyticsFailureLeavesDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.faulty.set(func(f *faultyDocuments) { f.failAnalytics = true })

	_, err := env.ingest.IngestBook(ctx, IngestBookRequest{Title: "Dune", ISBN: "9780441172719"})
	assert.Equal(t, domainerrors.CodePartialWrite, domainerrors.CodeOf(err))

	doc, err := env.documents.GetBookDocumentByBookID(ctx, 1)
	require.NoError(t, err)
	_, err = env.documents.GetAnalyticsByBookDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRegisterMember_ProfileIDHandoff(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pair, err := env.ingest.RegisterMember(ctx, RegisterMemberRequest{
		Username:           "ada",
		Email:              "ada@example.com",
		Password:           "correct horse battery",
		Language:           "German",
		FavoriteCategories: []string{"Science Fiction"},
	})
	require.NoError(t, err)
	assert.True(t, pair.ProfileID.Valid())

	member, err := env.relational.GetMember(ctx, pair.MemberID)
	require.NoError(t, err)
	assert.Equal(t, string(pair.ProfileID), member.ProfileRef)
	assert.NotEqual(t, "correct horse battery", member.PasswordHash)

	// The document store is handed the pre-generated id, not asked for one.
	require.Len(t, env.faulty.profileIDs, 1)
	assert.Equal(t, member.ProfileRef, env.faulty.profileIDs[0])

	profile, err := env.documents.GetProfile(ctx, member.ProfileRef)
	require.NoError(t, err)
	assert.Equal(t, member.ProfileRef, profile.ID)
	assert.Equal(t, "ada", profile.DisplayName)
	assert.Equal(t, "de", profile.Preferences.Language)
	assert.Equal(t, []string{"science-fiction"}, profile.Preferences.FavoriteCategories)

	var events []*domain.TelemetryEvent
	for ev, err := range env.documents.ListEvents(ctx) {
		require.NoError(t, err)
		events = append(events, ev)
	}
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventMemberRegistered, events[0].EventType)
	require.NotNil(t, events[0].MemberID)
	assert.Equal(t, pair.MemberID, *events[0].MemberID)
}

func TestRegisterMember_RejectedWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registerMember(t, env, "ada")

	tests := []struct {
		name string
		req  RegisterMemberRequest
		want domainerrors.Code
	}{
		{"short password", RegisterMemberRequest{Username: "grace", Email: "grace@example.com", Password: "short"}, domainerrors.CodeValidation},
		{"malformed email", RegisterMemberRequest{Username: "grace", Email: "grace", Password: "long enough"}, domainerrors.CodeValidation},
		{"bad username", RegisterMemberRequest{Username: "g r", Email: "grace@example.com", Password: "long enough"}, domainerrors.CodeValidation},
		{"duplicate username", RegisterMemberRequest{Username: "ada", Email: "grace@example.com", Password: "long enough"}, domainerrors.CodeDuplicateKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ingest.RegisterMember(ctx, tt.req)
			assert.Equal(t, tt.want, domainerrors.CodeOf(err))
		})
	}

	// Only the first registration reached the document store.
	assert.Len(t, env.faulty.profileIDs, 1)
}

func TestRegisterMember_ProfileFailureLeavesOrphan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.faulty.set(func(f *faultyDocuments) { f.failProfiles = true })

	_, err := env.ingest.RegisterMember(ctx, RegisterMemberRequest{Username: "ada", Email: "ada@example.com", Password: "long enough"})

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodePartialWrite, domainErr.Code)

	member, err := env.relational.GetMemberByUsername(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"member_id": member.ID, "profile_ref": member.ProfileRef}, domainErr.Details)

	_, err = env.documents.GetProfile(ctx, member.ProfileRef)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRegisterMember_EventFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.faulty.set(func(f *faultyDocuments) { f.failEvents = true })

	pair, err := env.ingest.RegisterMember(context.Background(), RegisterMemberRequest{Username: "ada", Email: "ada@example.com", Password: "long enough"})
	require.NoError(t, err)
	assert.Positive(t, pair.MemberID)
}
