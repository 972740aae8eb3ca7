package service

import (
	"context"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/listenupapp/libris/internal/domain"
	domainerrors "github.com/listenupapp/libris/internal/errors"
	"github.com/listenupapp/libris/internal/store"
	"github.com/listenupapp/libris/internal/store/sqlite"
)

// ListCatalogParams filters and pages ListCatalog.
type ListCatalogParams struct {
	Status domain.BookStatus
	store.PageParams
}

// CatalogService serves relational book rows enriched with their content
// documents.
type CatalogService struct {
	relational RelationalStore
	documents  DocumentStore
	logger     *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(relational RelationalStore, documents DocumentStore, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		relational: relational,
		documents:  documents,
		logger:     logger,
	}
}

// ListCatalog returns one page of catalog items in book_id order. Content
// for the page is fetched with a single batched document lookup.
func (s *CatalogService) ListCatalog(ctx context.Context, params ListCatalogParams) (*store.Page[domain.CatalogItem], error) {
	params.Normalize()

	var afterID int64
	if key, err := store.DecodeCursor(params.Cursor); err != nil {
		return nil, fromStore(err, "invalid cursor")
	} else if key != "" {
		if afterID, err = strconv.ParseInt(key, 10, 64); err != nil {
			return nil, domainerrors.Validation("invalid cursor")
		}
	}

	var (
		books []*domain.Book
		docs  map[int64]*domain.BookDocument
		total int
		more  bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.relational.CountBooks(gctx, params.Status)
		return fromStore(err, "count books")
	})
	g.Go(func() error {
		var err error
		// One extra row tells us whether another page exists.
		books, err = s.relational.ListBooks(gctx, sqlite.ListBooksParams{
			Status:  params.Status,
			AfterID: afterID,
			Limit:   params.Limit + 1,
		})
		if err != nil {
			return fromStore(err, "list books")
		}
		if more = len(books) > params.Limit; more {
			books = books[:params.Limit]
		}
		ids := make([]int64, len(books))
		for i, b := range books {
			ids[i] = b.ID
		}
		docs, err = s.documents.GetBookDocumentsByBookIDs(gctx, ids)
		return fromStore(err, "load book documents")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	page := &store.Page[domain.CatalogItem]{
		Items:   make([]domain.CatalogItem, len(books)),
		HasMore: more,
		Total:   total,
	}
	for i, b := range books {
		page.Items[i] = enrich(b, docs[b.ID])
	}
	if more {
		page.NextCursor = store.EncodeCursor(strconv.FormatInt(books[len(books)-1].ID, 10))
	}
	return page, nil
}

// GetCatalogItem returns one enriched book. The relational row and the
// content document are read concurrently.
func (s *CatalogService) GetCatalogItem(ctx context.Context, bookID int64) (*domain.CatalogItem, error) {
	var (
		book *domain.Book
		doc  *domain.BookDocument
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		book, err = s.relational.GetBook(gctx, bookID)
		return fromStore(err, "get book")
	})
	g.Go(func() error {
		var err error
		doc, err = s.documents.GetBookDocumentByBookID(gctx, bookID)
		if isNotFound(err) {
			doc, err = nil, nil
		}
		return fromStore(err, "get book document")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	item := enrich(book, doc)
	return &item, nil
}

// enrich left-joins a book row with its content document. A missing
// document, or missing fields on one, fall back to the catalog defaults.
// Both the list and single-item paths go through here.
func enrich(b *domain.Book, doc *domain.BookDocument) domain.CatalogItem {
	item := domain.CatalogItem{
		BookID:        b.ID,
		Title:         b.Title,
		ISBN:          b.ISBN,
		Status:        b.Status,
		Synopsis:      domain.DefaultSynopsis,
		CoverImageURL: domain.DefaultCoverImage,
		Tags:          []string{},
		Inventory:     domain.Inventory{TotalCopies: b.Copies},
	}
	if doc == nil {
		return item
	}

	item.HasDocument = true
	if doc.Synopsis != nil && *doc.Synopsis != "" {
		item.Synopsis = *doc.Synopsis
	}
	if doc.CoverImageURL != "" {
		item.CoverImageURL = doc.CoverImageURL
	}
	if doc.Tags != nil {
		item.Tags = doc.Tags
	}
	item.Inventory = doc.Inventory
	return item
}
