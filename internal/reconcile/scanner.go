package reconcile

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/listenupapp/libris/internal/domain"
	"github.com/listenupapp/libris/internal/store/sqlite"
)

// DefaultBatchSize is used when the scanner is given a non-positive size.
const DefaultBatchSize = 500

// RelationalKeys pages correlation keys out of the relational store.
type RelationalKeys interface {
	PageBookRefs(ctx context.Context, afterID int64, limit int) ([]sqlite.BookRef, error)
	PageMemberRefs(ctx context.Context, afterID int64, limit int) ([]sqlite.MemberRef, error)
}

// DocumentKeys pages documents out of the document store.
type DocumentKeys interface {
	PageBookDocuments(ctx context.Context, after string, limit int) ([]*domain.BookDocument, string, error)
	GetAnalyticsByBookDocuments(ctx context.Context, bookDocumentIDs []string) (map[string]*domain.BookAnalytics, error)
	PageProfiles(ctx context.Context, after string, limit int) ([]*domain.MemberProfile, string, error)
}

// Scanner compares correlation keys across both stores. It only reads.
type Scanner struct {
	relational RelationalKeys
	documents  DocumentKeys
	batchSize  int
	logger     *slog.Logger
}

// NewScanner creates a scanner that reads batchSize keys per round trip.
func NewScanner(relational RelationalKeys, documents DocumentKeys, batchSize int, logger *slog.Logger) *Scanner {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Scanner{
		relational: relational,
		documents:  documents,
		batchSize:  batchSize,
		logger:     logger,
	}
}

// Scan builds a drift report. Findings are sorted by key so that two scans
// of unchanged stores produce the same lists.
func (s *Scanner) Scan(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{
		MySQLOrphans:   []BookOrphan{},
		MongoOrphans:   []DocumentGhost{},
		CounterOrphans: []CounterOrphan{},
		MemberOrphans:  []MemberOrphan{},
		ProfileGhosts:  []ProfileGhost{},
	}

	if err := s.scanBooks(ctx, report); err != nil {
		return nil, err
	}
	if err := s.scanMembers(ctx, report); err != nil {
		return nil, err
	}

	report.IsHealthy = report.DriftCount() == 0
	report.ScannedAt = time.Now().UTC()

	s.logger.Info("consistency scan complete",
		"healthy", report.IsHealthy,
		"mysql_orphans", len(report.MySQLOrphans),
		"mongo_orphans", len(report.MongoOrphans),
		"counter_orphans", len(report.CounterOrphans),
		"member_orphans", len(report.MemberOrphans),
		"profile_ghosts", len(report.ProfileGhosts),
		"duration", time.Since(start),
	)
	return report, nil
}

func (s *Scanner) scanBooks(ctx context.Context, report *Report) error {
	books := make(map[int64]string)
	var after int64
	for {
		refs, err := s.relational.PageBookRefs(ctx, after, s.batchSize)
		if err != nil {
			return fmt.Errorf("page books: %w", err)
		}
		for _, r := range refs {
			books[r.ID] = r.Title
		}
		if len(refs) < s.batchSize {
			break
		}
		after = refs[len(refs)-1].ID
	}

	documented := make(map[int64]struct{}, len(books))
	cursor := ""
	for {
		docs, next, err := s.documents.PageBookDocuments(ctx, cursor, s.batchSize)
		if err != nil {
			return fmt.Errorf("page book documents: %w", err)
		}
		live := make([]*domain.BookDocument, 0, len(docs))
		for _, d := range docs {
			documented[d.MySQLBookID] = struct{}{}
			if _, ok := books[d.MySQLBookID]; !ok {
				report.MongoOrphans = append(report.MongoOrphans, DocumentGhost{ID: d.ID, MySQLBookID: d.MySQLBookID})
				continue
			}
			live = append(live, d)
		}
		if err := s.checkCounters(ctx, live, report); err != nil {
			return err
		}
		if next == "" {
			break
		}
		cursor = next
	}

	for id, title := range books {
		if _, ok := documented[id]; !ok {
			report.MySQLOrphans = append(report.MySQLOrphans, BookOrphan{BookID: id, Title: title})
		}
	}

	slices.SortFunc(report.MySQLOrphans, func(a, b BookOrphan) int { return cmp.Compare(a.BookID, b.BookID) })
	slices.SortFunc(report.MongoOrphans, func(a, b DocumentGhost) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(report.CounterOrphans, func(a, b CounterOrphan) int { return cmp.Compare(a.DocumentID, b.DocumentID) })
	return nil
}

// checkCounters reports documents in one page that have no counter
// document. Ghost documents are left out since repair deletes them.
func (s *Scanner) checkCounters(ctx context.Context, docs []*domain.BookDocument, report *Report) error {
	if len(docs) == 0 {
		return nil
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	counters, err := s.documents.GetAnalyticsByBookDocuments(ctx, ids)
	if err != nil {
		return fmt.Errorf("load counters: %w", err)
	}
	for _, d := range docs {
		if _, ok := counters[d.ID]; !ok {
			report.CounterOrphans = append(report.CounterOrphans, CounterOrphan{DocumentID: d.ID, MySQLBookID: d.MySQLBookID})
		}
	}
	return nil
}

func (s *Scanner) scanMembers(ctx context.Context, report *Report) error {
	members := make(map[string]sqlite.MemberRef)
	var after int64
	for {
		refs, err := s.relational.PageMemberRefs(ctx, after, s.batchSize)
		if err != nil {
			return fmt.Errorf("page members: %w", err)
		}
		for _, r := range refs {
			members[r.ProfileRef] = r
		}
		if len(refs) < s.batchSize {
			break
		}
		after = refs[len(refs)-1].ID
	}

	profiled := make(map[string]struct{}, len(members))
	cursor := ""
	for {
		profiles, next, err := s.documents.PageProfiles(ctx, cursor, s.batchSize)
		if err != nil {
			return fmt.Errorf("page profiles: %w", err)
		}
		for _, p := range profiles {
			profiled[p.ID] = struct{}{}
			if _, ok := members[p.ID]; !ok {
				report.ProfileGhosts = append(report.ProfileGhosts, ProfileGhost{ID: p.ID})
			}
		}
		if next == "" {
			break
		}
		cursor = next
	}

	for ref, m := range members {
		if _, ok := profiled[ref]; !ok {
			report.MemberOrphans = append(report.MemberOrphans, MemberOrphan{MemberID: m.ID, Username: m.Username, ProfileRef: m.ProfileRef})
		}
	}

	slices.SortFunc(report.MemberOrphans, func(a, b MemberOrphan) int { return cmp.Compare(a.MemberID, b.MemberID) })
	slices.SortFunc(report.ProfileGhosts, func(a, b ProfileGhost) int { return cmp.Compare(a.ID, b.ID) })
	return nil
}
