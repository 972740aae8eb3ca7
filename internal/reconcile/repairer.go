package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/listenupapp/libris/internal/domain"
	"github.com/listenupapp/libris/internal/store"
)

// DocumentWriter is the subset of the document store the repairer writes to.
type DocumentWriter interface {
	CreateBookDocument(ctx context.Context, doc *domain.BookDocument) (string, error)
	EnsureAnalytics(ctx context.Context, bookDocumentID string) (*domain.BookAnalytics, error)
	DeleteBookDocument(ctx context.Context, id string) error
	DeleteAnalyticsByBookDocument(ctx context.Context, bookDocumentID string) error
	CreateProfile(ctx context.Context, p *domain.MemberProfile) error
	DeleteProfile(ctx context.Context, profileID string) error
}

// RepairResult counts what a repair pass did.
type RepairResult struct {
	DocumentsCreated int  `json:"documentsCreated"`
	DocumentsDeleted int  `json:"documentsDeleted"`
	CountersCreated  int  `json:"countersCreated"`
	ProfilesCreated  int  `json:"profilesCreated"`
	ProfilesDeleted  int  `json:"profilesDeleted"`
	Skipped          int  `json:"skipped"`
	Failed           int  `json:"failed"`
	DryRun           bool `json:"dryRun"`
}

// Total is the number of corrective writes applied.
func (r *RepairResult) Total() int {
	return r.DocumentsCreated + r.DocumentsDeleted + r.CountersCreated + r.ProfilesCreated + r.ProfilesDeleted
}

// RepairOptions tunes a Repairer.
type RepairOptions struct {
	Rate   float64 // corrective writes per second
	Burst  int
	DryRun bool // log the plan, write nothing
}

// Repairer restores the one-to-one pairing between stores. It only creates
// placeholders for orphans and deletes ghosts; it never moves a correlation
// key from one record to another.
type Repairer struct {
	scanner *Scanner
	docs    DocumentWriter
	limiter *rate.Limiter
	dryRun  bool
	logger  *slog.Logger
}

// NewRepairer creates a repairer. A non-positive rate disables pacing.
func NewRepairer(scanner *Scanner, docs DocumentWriter, opts RepairOptions, logger *slog.Logger) *Repairer {
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	burst := max(opts.Burst, 1)
	return &Repairer{
		scanner: scanner,
		docs:    docs,
		limiter: rate.NewLimiter(limit, burst),
		dryRun:  opts.DryRun,
		logger:  logger,
	}
}

// ScanAndRepair runs a fresh scan and repairs what it finds.
func (r *Repairer) ScanAndRepair(ctx context.Context) (*RepairResult, error) {
	report, err := r.scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return r.Repair(ctx, report)
}

// Repair applies corrective writes for every finding in report. A failed
// item does not stop the pass; all item errors are returned joined.
func (r *Repairer) Repair(ctx context.Context, report *Report) (*RepairResult, error) {
	result := &RepairResult{DryRun: r.dryRun}
	if report == nil || report.IsHealthy {
		return result, nil
	}

	var errs []error
	record := func(err error, applied *int) error {
		switch {
		case err == nil:
			*applied++
		case errors.Is(err, errSkipped):
			result.Skipped++
		default:
			result.Failed++
			errs = append(errs, err)
		}
		// Cancellation ends the pass.
		return ctx.Err()
	}

	for _, o := range report.MySQLOrphans {
		if err := record(r.createPlaceholderDocument(ctx, o), &result.DocumentsCreated); err != nil {
			return result, err
		}
	}
	for _, g := range report.MongoOrphans {
		if err := record(r.deleteGhostDocument(ctx, g), &result.DocumentsDeleted); err != nil {
			return result, err
		}
	}
	for _, o := range report.CounterOrphans {
		if err := record(r.createCounters(ctx, o), &result.CountersCreated); err != nil {
			return result, err
		}
	}
	for _, o := range report.MemberOrphans {
		if err := record(r.createPlaceholderProfile(ctx, o), &result.ProfilesCreated); err != nil {
			return result, err
		}
	}
	for _, g := range report.ProfileGhosts {
		if err := record(r.deleteGhostProfile(ctx, g), &result.ProfilesDeleted); err != nil {
			return result, err
		}
	}

	r.logger.Info("repair pass complete",
		"dry_run", r.dryRun,
		"documents_created", result.DocumentsCreated,
		"documents_deleted", result.DocumentsDeleted,
		"counters_created", result.CountersCreated,
		"profiles_created", result.ProfilesCreated,
		"profiles_deleted", result.ProfilesDeleted,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, errors.Join(errs...)
}

// errSkipped marks an item another writer fixed between scan and repair.
var errSkipped = errors.New("already repaired")

func (r *Repairer) wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

func (r *Repairer) createPlaceholderDocument(ctx context.Context, o BookOrphan) error {
	r.logger.Info("creating placeholder document", "book_id", o.BookID, "dry_run", r.dryRun)
	if r.dryRun {
		return nil
	}
	if err := r.wait(ctx); err != nil {
		return err
	}

	doc := &domain.BookDocument{
		MySQLBookID:   o.BookID,
		CoverImageURL: domain.DefaultCoverImage,
		Tags:          []string{},
		Placeholder:   true,
	}
	id, err := r.docs.CreateBookDocument(ctx, doc)
	if errors.Is(err, store.ErrAlreadyExists) {
		return errSkipped
	}
	if err != nil {
		return fmt.Errorf("book %d: create document: %w", o.BookID, err)
	}
	if _, err := r.docs.EnsureAnalytics(ctx, id); err != nil {
		return fmt.Errorf("book %d: create counters for %s: %w", o.BookID, id, err)
	}
	return nil
}

func (r *Repairer) deleteGhostDocument(ctx context.Context, g DocumentGhost) error {
	r.logger.Info("deleting ghost document", "document_id", g.ID, "mysql_book_id", g.MySQLBookID, "dry_run", r.dryRun)
	if r.dryRun {
		return nil
	}
	if err := r.wait(ctx); err != nil {
		return err
	}

	// Counters before their parent document.
	if err := r.docs.DeleteAnalyticsByBookDocument(ctx, g.ID); err != nil {
		return fmt.Errorf("document %s: delete counters: %w", g.ID, err)
	}
	if err := r.docs.DeleteBookDocument(ctx, g.ID); err != nil {
		return fmt.Errorf("document %s: delete: %w", g.ID, err)
	}
	return nil
}

func (r *Repairer) createCounters(ctx context.Context, o CounterOrphan) error {
	r.logger.Info("creating missing counters", "document_id", o.DocumentID, "mysql_book_id", o.MySQLBookID, "dry_run", r.dryRun)
	if r.dryRun {
		return nil
	}
	if err := r.wait(ctx); err != nil {
		return err
	}
	if _, err := r.docs.EnsureAnalytics(ctx, o.DocumentID); err != nil {
		return fmt.Errorf("document %s: create counters: %w", o.DocumentID, err)
	}
	return nil
}

func (r *Repairer) createPlaceholderProfile(ctx context.Context, o MemberOrphan) error {
	r.logger.Info("creating placeholder profile", "member_id", o.MemberID, "profile_ref", o.ProfileRef, "dry_run", r.dryRun)
	if r.dryRun {
		return nil
	}
	if err := r.wait(ctx); err != nil {
		return err
	}

	err := r.docs.CreateProfile(ctx, &domain.MemberProfile{
		ID:          o.ProfileRef,
		DisplayName: o.Username,
		Preferences: domain.DefaultPreferences(),
		Placeholder: true,
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return errSkipped
	}
	if err != nil {
		return fmt.Errorf("member %d: create profile %s: %w", o.MemberID, o.ProfileRef, err)
	}
	return nil
}

func (r *Repairer) deleteGhostProfile(ctx context.Context, g ProfileGhost) error {
	r.logger.Info("deleting ghost profile", "profile_id", g.ID, "dry_run", r.dryRun)
	if r.dryRun {
		return nil
	}
	if err := r.wait(ctx); err != nil {
		return err
	}
	if err := r.docs.DeleteProfile(ctx, g.ID); err != nil {
		return fmt.Errorf("profile %s: delete: %w", g.ID, err)
	}
	return nil
}
