package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/codereg/internal/common"
	"github.com/dmitrijs2005/codereg/internal/dbx"
	"github.com/dmitrijs2005/codereg/internal/logging"
	"github.com/dmitrijs2005/codereg/internal/server/changelog"
	"github.com/dmitrijs2005/codereg/internal/server/config"
	"github.com/dmitrijs2005/codereg/internal/server/merge"
	"github.com/dmitrijs2005/codereg/internal/server/metrics"
	"github.com/dmitrijs2005/codereg/internal/server/models"
	"github.com/dmitrijs2005/codereg/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/codereg/internal/server/syncx"
	"github.com/dmitrijs2005/codereg/internal/server/validation"
)

// Sync targets reported in SyncErrors and metrics.
const (
	TargetArchive  = "archive"
	TargetRegistry = "doi registration"
	TargetMirror   = "mirror"
	TargetIndex    = "index"
	TargetNotify   = "notification"
)

// TransitionResult describes a committed transition. SyncErrors lists the
// post-commit calls that failed; the transition itself stands regardless.
type TransitionResult struct {
	Record     *models.Record
	ChangeNote string
	SyncErrors []error
}

// Partial reports whether the transition committed but some external system
// was not brought up to date.
func (r *TransitionResult) Partial() bool {
	return len(r.SyncErrors) > 0
}

type doiAllocator interface {
	AllocateTx(ctx context.Context, tx dbx.DBTX) (string, error)
}

// WorkflowService moves records through Saved, Submitted, Announced and
// Approved. Each transition loads, checks, merges, validates and writes in
// one transaction, then calls the external collaborators.
type WorkflowService struct {
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	allocator   doiAllocator
	collab      syncx.Collaborators
	syncTimeout time.Duration
	now         func() time.Time
	log         logging.Logger
	metrics     *metrics.Metrics
}

func NewWorkflowService(tx dbx.Transactor, m repomanager.RepositoryManager, allocator *IdentifierAllocator,
	collab syncx.Collaborators, cfg *config.Config, log logging.Logger, mx *metrics.Metrics) *WorkflowService {
	return &WorkflowService{
		tx:          tx,
		repomanager: m,
		allocator:   allocator,
		collab:      collab,
		syncTimeout: cfg.SyncTimeout,
		now:         time.Now,
		log:         log.With("module", "workflow"),
		metrics:     mx,
	}
}

// Save stores the patch without validation. Only new and Saved records may be
// saved.
func (s *WorkflowService) Save(ctx context.Context, p models.Principal, patch models.RecordPatch) (*TransitionResult, error) {
	return s.edit(ctx, p, patch, models.StatusSaved)
}

// Submit validates the merged record against the Submit rules and moves it to
// Submitted. Records in any status may be resubmitted.
func (s *WorkflowService) Submit(ctx context.Context, p models.Principal, patch models.RecordPatch) (*TransitionResult, error) {
	return s.edit(ctx, p, patch, models.StatusSubmitted)
}

// Announce validates against the Announce rules, assigns a DOI if the record
// has none, and moves it to Announced.
func (s *WorkflowService) Announce(ctx context.Context, p models.Principal, patch models.RecordPatch) (*TransitionResult, error) {
	return s.edit(ctx, p, patch, models.StatusAnnounced)
}

// Approve moves an Announced record to Approved. Only administrators may
// approve.
func (s *WorkflowService) Approve(ctx context.Context, p models.Principal, codeID int64) (*TransitionResult, error) {
	if !s.collab.Authorizer.HasRole(p, common.RoleAdmin) {
		s.metrics.ObserveTransition(string(models.StatusApproved), metrics.OutcomeRejected)
		return nil, common.ErrorUnauthorized
	}
	return s.edit(ctx, p, models.RecordPatch{CodeID: codeID}, models.StatusApproved)
}

// Get returns the record if p may see it.
func (s *WorkflowService) Get(ctx context.Context, p models.Principal, codeID int64) (*models.Record, error) {
	conn := s.tx.Conn()
	rec, err := s.repomanager.Records(conn).Get(ctx, codeID)
	if err != nil {
		return nil, asPersistence("load record", err)
	}
	if err := s.ensureCirculating(ctx, conn, codeID); err != nil {
		return nil, err
	}
	if !s.mayEdit(p, rec) {
		return nil, common.ErrorUnauthorized
	}
	return rec, nil
}

// ReindexApproved pushes every Approved snapshot of a record still in
// circulation to the search index. It returns how many were indexed and the
// failures joined together.
func (s *WorkflowService) ReindexApproved(ctx context.Context) (int, error) {
	conn := s.tx.Conn()
	snaps, err := s.repomanager.Snapshots(conn).ListByStatus(ctx, models.StatusApproved)
	if err != nil {
		return 0, asPersistence("list approved snapshots", err)
	}

	var (
		indexed int
		errs    []error
	)
	for _, snap := range snaps {
		if err := s.ensureCirculating(ctx, conn, snap.CodeID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		rec, err := models.UnmarshalRecord(snap.JSON)
		if err != nil {
			errs = append(errs, fmt.Errorf("snapshot %d: %w", snap.CodeID, err))
			continue
		}
		if err := s.call(ctx, TargetIndex, func(ctx context.Context) error { return s.collab.Indexer.Index(ctx, rec) }); err != nil {
			errs = append(errs, err)
			continue
		}
		indexed++
	}
	s.log.Info(ctx, "reindex finished", "indexed", indexed, "failed", len(errs))
	return indexed, errors.Join(errs...)
}

// legalFrom lists the statuses a target may be entered from.
var legalFrom = map[models.Status][]models.Status{
	models.StatusSaved:     {models.StatusNone, models.StatusSaved},
	models.StatusSubmitted: {models.StatusNone, models.StatusSaved, models.StatusSubmitted, models.StatusAnnounced, models.StatusApproved},
	models.StatusAnnounced: {models.StatusSubmitted, models.StatusAnnounced},
	models.StatusApproved:  {models.StatusAnnounced},
}

func legal(from, to models.Status) bool {
	for _, s := range legalFrom[to] {
		if s == from {
			return true
		}
	}
	return false
}

func (s *WorkflowService) edit(ctx context.Context, p models.Principal, patch models.RecordPatch, target models.Status) (*TransitionResult, error) {
	var (
		before models.Record
		after  models.Record
	)

	err := s.tx.WithTx(ctx, nil, func(ctx context.Context, tx dbx.DBTX) error {
		records := s.repomanager.Records(tx)
		creating := patch.CodeID == 0

		from := models.StatusNone
		if !creating {
			// the row lock orders this edit against other transitions and
			// tombstone events on the same record
			canonical, err := records.GetForUpdate(ctx, patch.CodeID)
			if err != nil {
				return asPersistence("load record", err)
			}
			if err := s.ensureCirculating(ctx, tx, patch.CodeID); err != nil {
				return err
			}
			if !s.mayEdit(p, canonical) {
				return common.ErrorUnauthorized
			}
			before = *canonical
			from = canonical.WorkflowStatus
		}

		if !legal(from, target) {
			return fmt.Errorf("%w: %s record cannot move to %s", common.ErrInvalidTransition, describeStatus(from), target)
		}

		if creating {
			after = merge.NewRecord(patch, p.UserID, p.Site)
		} else {
			after = merge.Apply(before, patch)
		}

		if msgs := validation.For(target, &after); len(msgs) > 0 {
			return common.NewValidationError(msgs)
		}

		if target == models.StatusAnnounced && after.DOI == "" {
			doi, err := s.allocator.AllocateTx(ctx, tx)
			if err != nil {
				return err
			}
			after.DOI = doi
		}

		now := s.now().UTC()
		after.WorkflowStatus = target
		after.DateRecordUpdated = now
		if creating {
			after.DateRecordAdded = now
			if err := records.Create(ctx, &after); err != nil {
				return asPersistence("create record", err)
			}
		} else if err := records.Update(ctx, &after); err != nil {
			return asPersistence("update record", err)
		}

		state, err := after.MarshalState()
		if err != nil {
			return asPersistence("serialize record", err)
		}
		snap := &models.Snapshot{CodeID: after.CodeID, Status: target, JSON: state, UpdatedAt: now}
		if err := s.repomanager.Snapshots(tx).Put(ctx, snap); err != nil {
			return asPersistence("write snapshot", err)
		}
		return nil
	})
	if err != nil {
		err = asPersistence("commit transition", err)
		s.metrics.ObserveTransition(string(target), outcomeOf(err))
		s.log.Warn(ctx, "transition failed", "code_id", patch.CodeID, "target", target, "user", p.UserID, "error", err)
		return nil, err
	}

	res := &TransitionResult{Record: &after, ChangeNote: changelog.Describe(before, after)}
	s.log.Info(ctx, "record transitioned",
		"code_id", after.CodeID,
		"from", describeStatus(before.WorkflowStatus),
		"to", target,
		"user", p.UserID,
		"changes", res.ChangeNote,
	)

	res.SyncErrors = s.afterCommit(ctx, target, &after)

	outcome := metrics.OutcomeOK
	if res.Partial() {
		outcome = metrics.OutcomePartial
	}
	s.metrics.ObserveTransition(string(target), outcome)
	return res, nil
}

// afterCommit runs the best-effort calls for target and returns the failures
// the caller should see. Notification and index failures are only logged.
func (s *WorkflowService) afterCommit(ctx context.Context, target models.Status, r *models.Record) []error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	switch target {
	case models.StatusSubmitted, models.StatusAnnounced:
		if r.Accessibility == models.AccessHostedLocally {
			collect(s.call(ctx, TargetMirror, func(ctx context.Context) error { return s.collab.Mirror.Mirror(ctx, r) }))
		} else if src := archiveSource(r); src != "" {
			collect(s.call(ctx, TargetArchive, func(ctx context.Context) error { return s.collab.Archiver.Archive(ctx, r.CodeID, src) }))
		}
		if target == models.StatusAnnounced {
			collect(s.register(ctx, r))
		}
		s.notify(ctx, r, s.collab.Notifier.NotifyStatusChange)
		s.notify(ctx, r, s.collab.Notifier.NotifyPointOfContact)

	case models.StatusApproved:
		if err := s.call(ctx, TargetIndex, func(ctx context.Context) error { return s.collab.Indexer.Index(ctx, r) }); err != nil {
			s.log.Error(ctx, "approved record not indexed", "code_id", r.CodeID, "error", err)
		}
		collect(s.register(ctx, r))
		s.notify(ctx, r, s.collab.Notifier.NotifyApproval)
	}
	return errs
}

func (s *WorkflowService) register(ctx context.Context, r *models.Record) error {
	if r.DOI == "" || r.ReleaseDate == nil {
		return nil
	}
	return s.call(ctx, TargetRegistry, func(ctx context.Context) error { return s.collab.Registrar.Register(ctx, r) })
}

func (s *WorkflowService) notify(ctx context.Context, r *models.Record, send func(context.Context, *models.Record) error) {
	if err := s.call(ctx, TargetNotify, func(ctx context.Context) error { return send(ctx, r) }); err != nil {
		s.log.Warn(ctx, "notification not sent", "code_id", r.CodeID, "error", err)
	}
}

// call runs fn under the sync timeout. The committed transition must not be
// abandoned when the caller goes away, so cancellation of ctx is ignored.
func (s *WorkflowService) call(ctx context.Context, target string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.syncTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		s.metrics.SyncFailed(target)
		return &common.SyncError{Target: target, Err: err}
	}
	return nil
}

func (s *WorkflowService) mayEdit(p models.Principal, r *models.Record) bool {
	return s.collab.Authorizer.IsOwner(p, r) || s.collab.Authorizer.HasRole(p, common.RoleAdmin)
}

// ensureCirculating hides hidden and deleted records behind NotFound.
func (s *WorkflowService) ensureCirculating(ctx context.Context, db dbx.DBTX, codeID int64) error {
	_, err := s.repomanager.Tombstones(db).LatestActive(ctx, codeID)
	switch {
	case err == nil:
		return common.ErrorNotFound
	case errors.Is(err, common.ErrorNotFound):
		return nil
	default:
		return asPersistence("load tombstone", err)
	}
}

func archiveSource(r *models.Record) string {
	if r.RepositoryLink != "" {
		return r.RepositoryLink
	}
	return r.FileName
}

func describeStatus(s models.Status) string {
	if s == models.StatusNone {
		return "new"
	}
	return string(s)
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidTransition),
		errors.Is(err, common.ErrorNotFound):
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeError
}
