package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/libris/internal/correlation"
	"github.com/listenupapp/libris/internal/domain"
	"github.com/listenupapp/libris/internal/service"
	"github.com/listenupapp/libris/internal/store"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "ingestBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Add a book",
		Description:   "Creates the relational book row, then its content document and counters",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
	}, s.handleIngestBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List the catalog",
		Description: "Relational rows enriched with content documents; missing documents get defaults",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get a catalog item",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "recordBookView",
		Method:        http.MethodPost,
		Path:          "/api/v1/books/{id}/views",
		Summary:       "Record a book view",
		Tags:          []string{"Books", "Analytics"},
		DefaultStatus: http.StatusCreated,
	}, s.handleRecordView)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBookCounters",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/analytics",
		Summary:     "Get a book's counters",
		Tags:        []string{"Books", "Analytics"},
	}, s.handleGetCounters)
}

// IngestBookInput is the request for adding a book.
type IngestBookInput struct {
	Body service.IngestBookRequest
}

// BookPairOutput returns the correlation keys of a new book.
type BookPairOutput struct {
	Body *correlation.BookPair
}

// ListBooksInput filters and pages the catalog.
type ListBooksInput struct {
	Status domain.BookStatus `query:"status" enum:"available,checked_out,lost,archived" doc:"Only books with this status"`
	Limit  int               `query:"limit" minimum:"0" maximum:"500" doc:"Page size (default 50)"`
	Cursor string            `query:"cursor" doc:"Opaque cursor from a previous page"`
}

// CatalogPageOutput is one page of the catalog.
type CatalogPageOutput struct {
	Body *store.Page[domain.CatalogItem]
}

// BookIDInput addresses one book.
type BookIDInput struct {
	ID int64 `path:"id" minimum:"1" doc:"Relational book id"`
}

// CatalogItemOutput is one enriched book.
type CatalogItemOutput struct {
	Body *domain.CatalogItem
}

// RecordViewInput records one view of a book.
type RecordViewInput struct {
	ID        int64  `path:"id" minimum:"1"`
	SessionID string `header:"X-Session-ID" maxLength:"128" doc:"Anonymous session id"`
}

// EventCreatedOutput returns the id of a stored telemetry event.
type EventCreatedOutput struct {
	Body struct {
		EventID string `json:"event_id"`
	}
}

// CountersOutput returns a book's counter document.
type CountersOutput struct {
	Body *domain.BookAnalytics
}

func (s *Server) handleIngestBook(ctx context.Context, input *IngestBookInput) (*BookPairOutput, error) {
	pair, err := s.services.Ingest.IngestBook(ctx, input.Body)
	if err != nil {
		return nil, s.logFailure("ingestBook", err)
	}
	return &BookPairOutput{Body: pair}, nil
}

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*CatalogPageOutput, error) {
	page, err := s.services.Catalog.ListCatalog(ctx, service.ListCatalogParams{
		Status:     input.Status,
		PageParams: store.PageParams{Limit: input.Limit, Cursor: input.Cursor},
	})
	if err != nil {
		return nil, s.logFailure("listBooks", err)
	}
	return &CatalogPageOutput{Body: page}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*CatalogItemOutput, error) {
	item, err := s.services.Catalog.GetCatalogItem(ctx, input.ID)
	if err != nil {
		return nil, s.logFailure("getBook", err)
	}
	return &CatalogItemOutput{Body: item}, nil
}

func (s *Server) handleRecordView(ctx context.Context, input *RecordViewInput) (*EventCreatedOutput, error) {
	id, err := s.services.Analytics.RecordView(ctx, input.ID, input.SessionID)
	if err != nil {
		return nil, s.logFailure("recordBookView", err)
	}
	out := &EventCreatedOutput{}
	out.Body.EventID = id
	return out, nil
}

func (s *Server) handleGetCounters(ctx context.Context, input *BookIDInput) (*CountersOutput, error) {
	counters, err := s.services.Analytics.GetCounters(ctx, input.ID)
	if err != nil {
		return nil, s.logFailure("getBookCounters", err)
	}
	return &CountersOutput{Body: counters}, nil
}
