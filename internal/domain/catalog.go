package domain

import "time"

// Placeholder content used whenever a book document is missing or sparse.
const (
	DefaultSynopsis   = "No synopsis available."
	DefaultCoverImage = "/static/images/default-cover.png"
)

// CatalogItem is a relational book joined with its document content.
type CatalogItem struct {
	BookID        int64      `json:"book_id"`
	Title         string     `json:"title"`
	ISBN          string     `json:"isbn"`
	Status        BookStatus `json:"status"`
	Synopsis      string     `json:"synopsis"`
	CoverImageURL string     `json:"cover_image_url"`
	Tags          []string   `json:"tags"`
	Inventory     Inventory  `json:"inventory"`
	// HasDocument is false when defaults were substituted for a missing document.
	HasDocument bool `json:"has_document"`
}

// BookActivity is one row of the merged analytics report.
type BookActivity struct {
	BookID        int64    `json:"book_id"`
	Title         string   `json:"title"`
	EventCount    int64    `json:"event_count"`
	BorrowCount   int64    `json:"borrow_count"`
	AvgReturnDays *float64 `json:"avg_return_days,omitempty"`
}

// ActivityReport is the merged per-book analytics report.
type ActivityReport struct {
	Books               []BookActivity `json:"books"`
	GlobalAvgReturnDays *float64       `json:"global_avg_return_days,omitempty"`
	GeneratedAt         time.Time      `json:"generated_at"`
}
