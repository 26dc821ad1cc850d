package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/codereg/internal/common"
	"github.com/dmitrijs2005/codereg/internal/dbx"
	"github.com/dmitrijs2005/codereg/internal/logging"
	"github.com/dmitrijs2005/codereg/internal/server/config"
	"github.com/dmitrijs2005/codereg/internal/server/models"
	"github.com/dmitrijs2005/codereg/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/codereg/internal/server/syncx"
)

// TombstoneService takes records out of circulation and brings them back.
// Every call appends an event; earlier events are never changed.
type TombstoneService struct {
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	authz       syncx.Authorizer
	indexer     syncx.Indexer
	syncTimeout time.Duration
	now         func() time.Time
	log         logging.Logger
}

func NewTombstoneService(tx dbx.Transactor, m repomanager.RepositoryManager, collab syncx.Collaborators,
	cfg *config.Config, log logging.Logger) *TombstoneService {
	return &TombstoneService{
		tx:          tx,
		repomanager: m,
		authz:       collab.Authorizer,
		indexer:     collab.Indexer,
		syncTimeout: cfg.SyncTimeout,
		now:         time.Now,
		log:         log.With("module", "tombstone"),
	}
}

// Hide withdraws a circulating record.
func (s *TombstoneService) Hide(ctx context.Context, p models.Principal, codeID int64, reason string) (*models.Tombstone, error) {
	return s.append(ctx, p, codeID, reason, models.TombstoneHidden, func(cur *models.Tombstone) bool {
		return cur == nil
	})
}

// Unhide returns a hidden record to circulation. An Approved record is pushed
// to the index again; a failure there is logged only.
func (s *TombstoneService) Unhide(ctx context.Context, p models.Principal, codeID int64, reason string) (*models.Tombstone, error) {
	t, err := s.append(ctx, p, codeID, reason, models.TombstoneUnhidden, func(cur *models.Tombstone) bool {
		return cur != nil && cur.Status == models.TombstoneHidden
	})
	if err != nil {
		return nil, err
	}

	rec, err := models.UnmarshalRecord(t.JSON)
	if err == nil && rec.WorkflowStatus == models.StatusApproved {
		ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.syncTimeout)
		defer cancel()
		if err := s.indexer.Index(ictx, rec); err != nil {
			s.log.Error(ctx, "restored record not indexed", "code_id", codeID, "error", err)
		}
	}
	return t, nil
}

// Delete removes a record from circulation for good. Hidden records may be
// deleted.
func (s *TombstoneService) Delete(ctx context.Context, p models.Principal, codeID int64, reason string) (*models.Tombstone, error) {
	return s.append(ctx, p, codeID, reason, models.TombstoneDeleted, func(cur *models.Tombstone) bool {
		return cur == nil || cur.Status != models.TombstoneDeleted
	})
}

// History lists every event for the record, oldest first.
func (s *TombstoneService) History(ctx context.Context, p models.Principal, codeID int64) ([]*models.Tombstone, error) {
	if !s.authz.HasRole(p, common.RoleAdmin) {
		return nil, common.ErrorUnauthorized
	}
	events, err := s.repomanager.Tombstones(s.tx.Conn()).History(ctx, codeID)
	if err != nil {
		return nil, asPersistence("list tombstones", err)
	}
	return events, nil
}

func (s *TombstoneService) append(ctx context.Context, p models.Principal, codeID int64, reason string,
	status models.TombstoneStatus, allowed func(cur *models.Tombstone) bool) (*models.Tombstone, error) {
	if !s.authz.HasRole(p, common.RoleAdmin) {
		return nil, common.ErrorUnauthorized
	}

	var event *models.Tombstone
	err := s.tx.WithTx(ctx, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// held until commit so the guard below cannot be raced by another
		// event or a workflow edit on the same record
		rec, err := s.repomanager.Records(tx).GetForUpdate(ctx, codeID)
		if err != nil {
			return asPersistence("load record", err)
		}

		tombstones := s.repomanager.Tombstones(tx)
		cur, err := tombstones.LatestActive(ctx, codeID)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return asPersistence("load tombstone", err)
		}
		if !allowed(cur) {
			return fmt.Errorf("%w: record %d is %s, cannot mark %s", common.ErrInvalidTransition, codeID, circulation(cur), status)
		}

		state, err := rec.MarshalState()
		if err != nil {
			return asPersistence("serialize record", err)
		}
		var approved []byte
		snap, err := s.repomanager.Snapshots(tx).Get(ctx, codeID, models.StatusApproved)
		switch {
		case err == nil:
			approved = snap.JSON
		case !errors.Is(err, common.ErrorNotFound):
			return asPersistence("load approved snapshot", err)
		}

		event = &models.Tombstone{
			CodeID:             codeID,
			Status:             status,
			JSON:               state,
			ApprovedJSON:       approved,
			RestrictedMetadata: rec.RestrictedMetadata(),
			Reason:             reason,
			CreatedBy:          p.UserID,
			CreatedAt:          s.now().UTC(),
		}
		if err := tombstones.Append(ctx, event); err != nil {
			return asPersistence("append tombstone", err)
		}
		return nil
	})
	if err != nil {
		return nil, asPersistence("commit tombstone", err)
	}

	s.log.Info(ctx, "record circulation changed", "code_id", codeID, "status", status, "user", p.UserID, "reason", reason)
	return event, nil
}

func circulation(cur *models.Tombstone) string {
	if cur == nil {
		return "in circulation"
	}
	return string(cur.Status)
}
