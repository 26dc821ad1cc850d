package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/codereg/internal/logging"
	"github.com/dmitrijs2005/codereg/internal/server/auth"
	"github.com/dmitrijs2005/codereg/internal/server/config"
	"github.com/dmitrijs2005/codereg/internal/server/metrics"
	"github.com/dmitrijs2005/codereg/internal/server/models"
	"github.com/dmitrijs2005/codereg/internal/server/syncx"
)

// recorder implements every outbound collaborator and remembers the calls.
type recorder struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error

	archived []string
	indexed  []int64
}

func newRecorder() *recorder {
	return &recorder{fail: map[string]error{}}
}

func (r *recorder) hit(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
	return r.fail[name]
}

func (r *recorder) called() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) Register(context.Context, *models.Record) error { return r.hit("register") }

func (r *recorder) Archive(_ context.Context, _ int64, source string) error {
	r.mu.Lock()
	r.archived = append(r.archived, source)
	r.mu.Unlock()
	return r.hit("archive")
}

func (r *recorder) Index(_ context.Context, rec *models.Record) error {
	r.mu.Lock()
	r.indexed = append(r.indexed, rec.CodeID)
	r.mu.Unlock()
	return r.hit("index")
}

func (r *recorder) Mirror(context.Context, *models.Record) error { return r.hit("mirror") }

func (r *recorder) NotifyStatusChange(context.Context, *models.Record) error {
	return r.hit("notify status")
}

func (r *recorder) NotifyApproval(context.Context, *models.Record) error {
	return r.hit("notify approval")
}

func (r *recorder) NotifyPointOfContact(context.Context, *models.Record) error {
	return r.hit("notify contact")
}

func (r *recorder) collaborators() syncx.Collaborators {
	return syncx.Collaborators{
		Authorizer: auth.NewRoleAuthorizer(),
		Registrar:  r,
		Archiver:   r,
		Indexer:    r,
		Mirror:     r,
		Notifier:   r,
	}
}

var fixedNow = time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		DOIPrefix:   "10.11578",
		LockTimeout: 2 * time.Second,
		SyncTimeout: time.Second,
	}
}

type harness struct {
	store     *memStore
	collab    *recorder
	allocator *IdentifierAllocator
	workflow  *WorkflowService
	tombstone *TombstoneService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := newMemStore()
	rec := newRecorder()
	cfg := testConfig()
	tx := memTransactor{store}
	rm := memRepoManager{store}
	log := logging.Nop()
	mx := metrics.New()

	alloc := NewIdentifierAllocator(tx, rm, cfg, log, mx)
	alloc.now = func() time.Time { return fixedNow }

	wf := NewWorkflowService(tx, rm, alloc, rec.collaborators(), cfg, log, mx)
	wf.now = func() time.Time { return fixedNow }

	ts := NewTombstoneService(tx, rm, rec.collaborators(), cfg, log)
	ts.now = func() time.Time { return fixedNow }

	return &harness{store: store, collab: rec, allocator: alloc, workflow: wf, tombstone: ts}
}
