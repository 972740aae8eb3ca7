package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/listenupapp/libris/internal/correlation"
	"github.com/listenupapp/libris/internal/domain"
	domainerrors "github.com/listenupapp/libris/internal/errors"
	"github.com/listenupapp/libris/internal/normalize"
	"github.com/listenupapp/libris/internal/store/sqlite"
	"github.com/listenupapp/libris/internal/validation"
)

// Saga step names reported in partial-write errors.
const (
	StepCreateBookDocument = "create_book_document"
	StepCreateAnalytics    = "create_analytics"
	StepCreateProfile      = "create_profile"
)

// IngestBookRequest describes a new catalog entry.
type IngestBookRequest struct {
	Title         string            `json:"title" validate:"required,max=500"`
	ISBN          string            `json:"isbn" validate:"required,isbn13"`
	Status        domain.BookStatus `json:"status,omitempty" validate:"omitempty,oneof=available checked_out lost archived"`
	Author        string            `json:"author,omitempty" validate:"max=200"`
	Category      string            `json:"category,omitempty" validate:"max=200"`
	PublishedYear int               `json:"published_year,omitempty" validate:"omitempty,gte=1000,lte=9999"`
	Copies        *int              `json:"copies,omitempty" validate:"omitempty,gte=0"`
	Synopsis      string            `json:"synopsis,omitempty" validate:"max=20000"`
	CoverImageURL string            `json:"cover_image_url,omitempty" validate:"max=2048"`
	Tags          []string          `json:"tags,omitempty" validate:"max=50,dive,max=100"`
}

// RegisterMemberRequest describes a new member.
type RegisterMemberRequest struct {
	Username           string   `json:"username" validate:"required"`
	Email              string   `json:"email" validate:"required"`
	Password           string   `json:"password" validate:"required,min=8,max=1024"`
	DisplayName        string   `json:"display_name,omitempty" validate:"max=100"`
	Language           string   `json:"language,omitempty" validate:"max=35"`
	FavoriteCategories []string `json:"favorite_categories,omitempty" validate:"max=20,dive,max=100"`
}

// IngestService creates correlated record pairs across the relational and
// document stores. Each saga runs its steps strictly in order and never
// rolls back a committed step. A failed later step surfaces as
// CodePartialWrite and leaves an orphan for the reconciler.
type IngestService struct {
	relational RelationalStore
	documents  DocumentStore
	hasher     PasswordHasher
	validator  *validation.Validator
	logger     *slog.Logger
}

// NewIngestService creates a new ingest service.
func NewIngestService(relational RelationalStore, documents DocumentStore, hasher PasswordHasher, validator *validation.Validator, logger *slog.Logger) *IngestService {
	return &IngestService{
		relational: relational,
		documents:  documents,
		hasher:     hasher,
		validator:  validator,
		logger:     logger,
	}
}

// IngestBook inserts the relational book row, then its content document,
// then its zeroed counter document. The relational key is the correlation
// key, so the relational write goes first.
func (s *IngestService) IngestBook(ctx context.Context, req IngestBookRequest) (*correlation.BookPair, error) {
	req.ISBN = strings.NewReplacer("-", "", " ", "").Replace(req.ISBN)
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	copies := 1
	if req.Copies != nil {
		copies = *req.Copies
	}
	book := &domain.Book{
		Title:         req.Title,
		ISBN:          req.ISBN,
		Status:        req.Status,
		PublishedYear: req.PublishedYear,
		Copies:        copies,
	}

	// Step 1. Author and category rows share the book's transaction, so
	// nothing is persisted if this fails.
	bookID, err := s.relational.InsertCatalogBook(ctx, book, sqlite.BookNames{Author: req.Author, Category: req.Category})
	if err != nil {
		return nil, fromStore(err, "insert book")
	}

	// Step 2.
	doc := &domain.BookDocument{
		MySQLBookID:   bookID,
		CoverImageURL: strings.TrimSpace(req.CoverImageURL),
		Tags:          normalize.Tags(req.Tags),
		Inventory:     domain.Inventory{TotalCopies: copies, AvailableCopies: copies},
	}
	if synopsis := normalize.Synopsis(req.Synopsis); synopsis != "" {
		doc.Synopsis = &synopsis
	}
	if doc.CoverImageURL == "" {
		doc.CoverImageURL = domain.DefaultCoverImage
	}
	docID, err := s.documents.CreateBookDocument(ctx, doc)
	if err != nil {
		return nil, s.partialWrite(StepCreateBookDocument, map[string]any{"book_id": bookID}, err)
	}

	// Step 3.
	counters, err := s.documents.CreateAnalytics(ctx, docID)
	if err != nil {
		return nil, s.partialWrite(StepCreateAnalytics, map[string]any{"book_id": bookID, "document_id": docID}, err)
	}

	s.logger.Info("book ingested", "book_id", bookID, "document_id", docID, "isbn", book.ISBN)

	return &correlation.BookPair{
		BookID:      correlation.BookKey(bookID),
		DocumentID:  correlation.DocumentID(docID),
		AnalyticsID: correlation.DocumentID(counters.ID),
	}, nil
}

// RegisterMember pre-generates the profile id, stores it on the relational
// member row through the register_member procedure, then creates the
// profile document under that same id.
func (s *IngestService) RegisterMember(ctx context.Context, req RegisterMemberRequest) (*correlation.MemberPair, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	// Step 1. Client side; no store is touched.
	ref, err := correlation.NewProfileRef()
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate profile ref")
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	// Step 2. The procedure validates format and uniqueness and writes
	// nothing when it rejects.
	res, err := s.relational.Call(ctx, sqlite.ProcRegisterMember, req.Username, req.Email, hash, string(ref))
	if err != nil {
		return nil, fromStore(err, "register member")
	}
	memberID := res.InsertID

	// Step 3.
	prefs := domain.DefaultPreferences()
	if lang := normalize.LanguageCode(req.Language); lang != "" {
		prefs.Language = lang
	}
	prefs.FavoriteCategories = normalize.Tags(req.FavoriteCategories)
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = req.Username
	}
	profile := &domain.MemberProfile{
		ID:          string(ref),
		DisplayName: displayName,
		Preferences: prefs,
	}
	if err := s.documents.CreateProfile(ctx, profile); err != nil {
		return nil, s.partialWrite(StepCreateProfile, map[string]any{"member_id": memberID, "profile_ref": string(ref)}, err)
	}

	// Step 4. Telemetry is a log; losing it does not fail the registration.
	payload, _ := json.Marshal(map[string]any{"member_id": memberID, "username": req.Username})
	if _, err := s.documents.AppendEvent(ctx, &domain.TelemetryEvent{
		EventType: domain.EventMemberRegistered,
		MemberID:  &memberID,
		Payload:   payload,
	}); err != nil {
		s.logger.Warn("failed to record registration event", "member_id", memberID, "error", err)
	}

	s.logger.Info("member registered", "member_id", memberID, "profile_ref", ref)

	return &correlation.MemberPair{MemberID: memberID, ProfileID: ref}, nil
}

func (s *IngestService) partialWrite(step string, orphan map[string]any, cause error) error {
	args := []any{"step", step, "error", cause}
	for k, v := range orphan {
		args = append(args, k, v)
	}
	s.logger.Warn("dual write left an orphan", args...)
	return domainerrors.PartialWrite(step, orphan, fmt.Errorf("%s: %w", step, cause))
}
