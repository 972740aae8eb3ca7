package domain

import "time"

// BookStatus is the circulation state of a relational book row.
type BookStatus string

// Book statuses accepted by the books.status CHECK constraint.
const (
	BookAvailable  BookStatus = "available"
	BookCheckedOut BookStatus = "checked_out"
	BookLost       BookStatus = "lost"
	BookArchived   BookStatus = "archived"
)

// Book is the authoritative relational record. ID is generated by the
// relational store and is the correlation key for every companion document.
type Book struct {
	ID            int64      `json:"book_id"`
	Title         string     `json:"title"`
	ISBN          string     `json:"isbn"`
	Status        BookStatus `json:"status"`
	AuthorID      *int64     `json:"author_id,omitempty"`
	CategoryID    *int64     `json:"category_id,omitempty"`
	PublishedYear int        `json:"published_year,omitempty"`
	Copies        int        `json:"copies"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Author is a relational author row.
type Author struct {
	ID   int64  `json:"author_id"`
	Name string `json:"name"`
}

// Category is a relational category row.
type Category struct {
	ID   int64  `json:"category_id"`
	Name string `json:"name"`
}

// Inventory mirrors copy counts into the book document.
type Inventory struct {
	TotalCopies     int `json:"total_copies"`
	AvailableCopies int `json:"available_copies"`
}

// BookDocument holds rich catalog content in the document store.
// MySQLBookID is borrowed from the relational row; the JSON name is kept
// for documents exported from earlier deployments.
type BookDocument struct {
	ID            string    `json:"_id"`
	MySQLBookID   int64     `json:"mysql_book_id"`
	Synopsis      *string   `json:"synopsis"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	Tags          []string  `json:"tags"`
	Inventory     Inventory `json:"inventory"`
	// Placeholder is set on documents created by the repairer.
	Placeholder bool      `json:"placeholder,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BookAnalytics counts behavior for one book document. Counters only grow
// and ReturnDurations is append-only.
type BookAnalytics struct {
	ID              string    `json:"_id"`
	BookDocumentID  string    `json:"book_mongo_id"`
	TotalViews      int64     `json:"total_views"`
	TotalBorrows    int64     `json:"total_borrows"`
	TotalReturns    int64     `json:"total_returns"`
	ReturnDurations []float64 `json:"return_durations"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CounterDelta is an atomic increment applied to BookAnalytics.
type CounterDelta struct {
	Views   int64
	Borrows int64
	Returns int64
}

// IsZero reports whether d changes nothing.
func (d CounterDelta) IsZero() bool {
	return d.Views == 0 && d.Borrows == 0 && d.Returns == 0
}
