// Package reconcile detects and repairs drift between the relational store
// and the document store.
package reconcile

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// BookOrphan is a relational book with no content document.
type BookOrphan struct {
	BookID int64  `json:"book_id"`
	Title  string `json:"title"`
}

// DocumentGhost is a content document whose book no longer exists.
type DocumentGhost struct {
	ID          string `json:"_id"`
	MySQLBookID int64  `json:"mysql_book_id"`
}

// CounterOrphan is a content document of a live book that has no counter
// document.
type CounterOrphan struct {
	DocumentID  string `json:"_id"`
	MySQLBookID int64  `json:"mysql_book_id"`
}

// MemberOrphan is a relational member whose profile_ref names a missing
// profile.
type MemberOrphan struct {
	MemberID   int64  `json:"member_id"`
	Username   string `json:"username"`
	ProfileRef string `json:"profile_ref"`
}

// ProfileGhost is a profile no member refers to.
type ProfileGhost struct {
	ID string `json:"_id"`
}

// Report is the result of one scan. The JSON keys are the ones operators'
// tooling already parses.
type Report struct {
	IsHealthy      bool            `json:"isHealthy"`
	MySQLOrphans   []BookOrphan    `json:"mysqlOrphans"`
	MongoOrphans   []DocumentGhost `json:"mongoOrphans"`
	CounterOrphans []CounterOrphan `json:"counterOrphans"`
	MemberOrphans  []MemberOrphan  `json:"memberOrphans"`
	ProfileGhosts  []ProfileGhost  `json:"profileGhosts"`
	ScannedAt      time.Time       `json:"scannedAt"`
}

// DriftCount is the total number of findings.
func (r *Report) DriftCount() int {
	return len(r.MySQLOrphans) + len(r.MongoOrphans) + len(r.CounterOrphans) +
		len(r.MemberOrphans) + len(r.ProfileGhosts)
}

// WriteText renders the report for a terminal.
func (r *Report) WriteText(w io.Writer) error {
	status := "healthy"
	if !r.IsHealthy {
		status = fmt.Sprintf("UNHEALTHY (%d findings)", r.DriftCount())
	}
	if _, err := fmt.Fprintf(w, "Consistency scan at %s: %s\n", r.ScannedAt.Format(time.RFC3339), status); err != nil {
		return err
	}
	if r.IsHealthy {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	section := func(title string, n int) {
		if n > 0 {
			fmt.Fprintf(tw, "\n%s (%d)\n", title, n)
		}
	}

	section("Books without a document", len(r.MySQLOrphans))
	for _, o := range r.MySQLOrphans {
		fmt.Fprintf(tw, "  book_id=%d\t%s\n", o.BookID, o.Title)
	}
	section("Documents without a book", len(r.MongoOrphans))
	for _, g := range r.MongoOrphans {
		fmt.Fprintf(tw, "  _id=%s\tmysql_book_id=%d\n", g.ID, g.MySQLBookID)
	}
	section("Documents without counters", len(r.CounterOrphans))
	for _, o := range r.CounterOrphans {
		fmt.Fprintf(tw, "  _id=%s\tmysql_book_id=%d\n", o.DocumentID, o.MySQLBookID)
	}
	section("Members without a profile", len(r.MemberOrphans))
	for _, o := range r.MemberOrphans {
		fmt.Fprintf(tw, "  member_id=%d\t%s\tprofile_ref=%s\n", o.MemberID, o.Username, o.ProfileRef)
	}
	section("Profiles without a member", len(r.ProfileGhosts))
	for _, g := range r.ProfileGhosts {
		fmt.Fprintf(tw, "  _id=%s\n", g.ID)
	}
	return tw.Flush()
}
