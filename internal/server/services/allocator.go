// Package services contains the registry's business logic: identifier
// allocation, the record workflow and the tombstone lifecycle. Services
// depend on a dbx.Transactor and a RepositoryManager so that every store
// touched by one operation shares a single transaction.
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
	"github.com/dmitrijs2005/codereg/internal/server/metrics"
	"github.com/dmitrijs2005/codereg/internal/server/models"
	"github.com/dmitrijs2005/codereg/internal/server/repositories/repomanager"
)

const dateBucketLayout = "20060102"

// IdentifierAllocator hands out DOIs of the form <prefix>/dc.<YYYYMMDD>.<n>.
// The sequence lives in the DOI reservation ticket row; every allocation
// holds that row's lock, so callers in different processes serialize on it.
type IdentifierAllocator struct {
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	prefix      string
	lockTimeout time.Duration
	now         func() time.Time
	log         logging.Logger
	metrics     *metrics.Metrics
}

func NewIdentifierAllocator(tx dbx.Transactor, m repomanager.RepositoryManager, cfg *config.Config,
	log logging.Logger, mx *metrics.Metrics) *IdentifierAllocator {
	return &IdentifierAllocator{
		tx:          tx,
		repomanager: m,
		prefix:      cfg.DOIPrefix,
		lockTimeout: cfg.LockTimeout,
		now:         time.Now,
		log:         log.With("module", "allocator"),
		metrics:     mx,
	}
}

// Allocate reserves the next identifier in its own transaction.
func (a *IdentifierAllocator) Allocate(ctx context.Context) (string, error) {
	var doi string
	err := a.tx.WithTx(ctx, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		doi, err = a.AllocateTx(ctx, tx)
		return err
	})
	if err != nil {
		return "", asPersistence("commit doi allocation", err)
	}
	return doi, nil
}

// AllocateTx reserves the next identifier inside the caller's transaction.
// The ticket stays locked until that transaction ends, and a rollback
// returns the identifier to the pool.
//
// A lock that cannot be taken within the configured timeout yields a
// *common.ResourceContentionError and leaves the ticket untouched.
func (a *IdentifierAllocator) AllocateTx(ctx context.Context, tx dbx.DBTX) (doi string, err error) {
	start := time.Now()
	defer func() {
		outcome := metrics.OutcomeOK
		if errors.Is(err, common.ErrResourceContention) {
			outcome = metrics.OutcomeRejected
		} else if err != nil {
			outcome = metrics.OutcomeError
		}
		a.metrics.ObserveAllocation(time.Since(start), outcome)
	}()

	repo := a.repomanager.Tickets(tx)

	if err := repo.SetLockTimeout(ctx, a.lockTimeout); err != nil {
		return "", a.classify(ctx, "set lock timeout", err)
	}
	ticket, err := repo.LockForUpdate(ctx, models.DOITicketType)
	if err != nil {
		return "", a.classify(ctx, "lock doi ticket", err)
	}

	advance(ticket, a.now().UTC().Format(dateBucketLayout))

	if err := repo.Update(ctx, ticket); err != nil {
		return "", a.classify(ctx, "update doi ticket", err)
	}

	doi = fmt.Sprintf("%s/dc.%s.%d", a.prefix, ticket.DateBucket, ticket.SequenceIndex)
	a.log.Debug(ctx, "doi allocated", "doi", doi)
	return doi, nil
}

// advance moves t to the next free (bucket, index) pair for today. A stored
// bucket later than today (clock skew between instances) keeps counting in
// that bucket so no pair is ever handed out twice.
func advance(t *models.ReservationTicket, today string) {
	if today > t.DateBucket {
		t.DateBucket = today
		t.SequenceIndex = 1
		return
	}
	t.SequenceIndex++
}

// classify reports a failed ticket step. The only wait in these steps is the
// ticket row lock, so running out of deadline there is contention too.
func (a *IdentifierAllocator) classify(ctx context.Context, op string, err error) error {
	if dbx.IsLockNotAvailable(err) || errors.Is(err, context.DeadlineExceeded) {
		a.log.Warn(ctx, "doi ticket busy", "op", op, "error", err)
		return &common.ResourceContentionError{Resource: "doi reservation ticket", Err: err}
	}
	return &common.PersistenceError{Op: op, Err: err}
}

// asPersistence leaves classified errors alone and reports anything else
// (typically a failed commit) as a persistence failure.
func asPersistence(op string, err error) error {
	for _, known := range []error{
		common.ErrorNotFound,
		common.ErrorUnauthorized,
		common.ErrValidation,
		common.ErrInvalidTransition,
		common.ErrVersionConflict,
		common.ErrResourceContention,
		common.ErrPersistence,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	if dbx.IsLockNotAvailable(err) {
		return &common.ResourceContentionError{Resource: op, Err: err}
	}
	return &common.PersistenceError{Op: op, Err: err}
}
