package services

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/codereg/internal/common"
	"github.com/dmitrijs2005/codereg/internal/dbx"
	"github.com/dmitrijs2005/codereg/internal/server/models"
	"github.com/dmitrijs2005/codereg/internal/server/repositories/records"
	"github.com/dmitrijs2005/codereg/internal/server/repositories/snapshots"
	"github.com/dmitrijs2005/codereg/internal/server/repositories/tickets"
	"github.com/dmitrijs2005/codereg/internal/server/repositories/tombstones"
)

type snapKey struct {
	codeID int64
	status models.Status
}

// memStore is an in-memory database for service tests. By default
// transactions are serialized and a failed transaction restores the state it
// started from. With rowLocking set, transactions run concurrently and only
// GetForUpdate and LockForUpdate block, as row locks do; rollback is not
// modelled in that mode.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	rowLocking bool
	rows       map[string]*sync.Mutex

	nextID     int64
	records    map[int64]models.Record
	ticket     models.ReservationTicket
	snapshots  map[snapKey]models.Snapshot
	tombstones []models.Tombstone

	lockTimeouts []time.Duration

	lockErr        error
	putSnapshotErr error
	beforeUpdate   func(s *memStore, r *models.Record)
	// beforeGuard runs at the start of every tombstone LatestActive read.
	beforeGuard func()
}

func newMemStore() *memStore {
	return &memStore{
		records:   map[int64]models.Record{},
		ticket:    models.ReservationTicket{Type: models.DOITicketType},
		snapshots: map[snapKey]models.Snapshot{},
		rows:      map[string]*sync.Mutex{},
	}
}

type memState struct {
	nextID     int64
	records    map[int64]models.Record
	ticket     models.ReservationTicket
	snapshots  map[snapKey]models.Snapshot
	tombstones []models.Tombstone
}

func (s *memStore) save() memState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memState{
		nextID:     s.nextID,
		records:    maps.Clone(s.records),
		ticket:     s.ticket,
		snapshots:  maps.Clone(s.snapshots),
		tombstones: slices.Clone(s.tombstones),
	}
}

func (s *memStore) restore(st memState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = st.nextID
	s.records = st.records
	s.ticket = st.ticket
	s.snapshots = st.snapshots
	s.tombstones = st.tombstones
}

func (s *memStore) record(codeID int64) (models.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[codeID]
	return r.Clone(), ok
}

func (s *memStore) snapshot(codeID int64, status models.Status) (models.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[snapKey{codeID, status}]
	return snap, ok
}

func (s *memStore) currentTicket() models.ReservationTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticket
}

// pauseFirstGuard makes the first tombstone guard read wait until a second
// one starts or wait elapses. The returned channel is closed once the first
// read has begun.
func (s *memStore) pauseFirstGuard(wait time.Duration) <-chan struct{} {
	var calls atomic.Int32
	first := make(chan struct{})
	second := make(chan struct{})
	s.beforeGuard = func() {
		switch calls.Add(1) {
		case 1:
			close(first)
			select {
			case <-second:
			case <-time.After(wait):
			}
		case 2:
			close(second)
		}
	}
	return first
}

// --- dbx.Transactor ---

type memTransactor struct{ s *memStore }

func (t memTransactor) Conn() dbx.DBTX { return nil }

func (t memTransactor) WithTx(ctx context.Context, _ *sql.TxOptions, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	if t.s.rowLocking {
		tx := &memTx{s: t.s}
		defer tx.release()
		return fn(ctx, tx)
	}

	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	saved := t.s.save()
	if err := fn(ctx, nil); err != nil {
		t.s.restore(saved)
		return err
	}
	return nil
}

// memTx is the transaction handle in row-locking mode. It remembers the row
// locks taken so they are released when the transaction ends.
type memTx struct {
	s    *memStore
	held []*sync.Mutex
}

func (tx *memTx) lock(key string) {
	tx.s.mu.Lock()
	m, ok := tx.s.rows[key]
	if !ok {
		m = &sync.Mutex{}
		tx.s.rows[key] = m
	}
	tx.s.mu.Unlock()

	m.Lock()
	tx.held = append(tx.held, m)
}

func (tx *memTx) release() {
	for _, m := range tx.held {
		m.Unlock()
	}
}

func (tx *memTx) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	panic("memTx: no SQL")
}

func (tx *memTx) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	panic("memTx: no SQL")
}

func (tx *memTx) QueryRowContext(context.Context, string, ...any) *sql.Row {
	panic("memTx: no SQL")
}

// lockRow takes the row lock when db is a row-locking transaction.
func lockRow(db dbx.DBTX, key string) {
	if tx, ok := db.(*memTx); ok {
		tx.lock(key)
	}
}

// --- repomanager.RepositoryManager ---

type memRepoManager struct{ s *memStore }

func (m memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m memRepoManager) Records(db dbx.DBTX) records.Repository    { return memRecords{m.s, db} }
func (m memRepoManager) Tickets(db dbx.DBTX) tickets.Repository    { return memTickets{m.s, db} }
func (m memRepoManager) Snapshots(dbx.DBTX) snapshots.Repository   { return memSnapshots{m.s} }
func (m memRepoManager) Tombstones(dbx.DBTX) tombstones.Repository { return memTombstones{m.s} }

type memRecords struct {
	s  *memStore
	db dbx.DBTX
}

func (r memRecords) Create(_ context.Context, rec *models.Record) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextID++
	rec.CodeID = r.s.nextID
	rec.Version = 1
	r.s.records[rec.CodeID] = rec.Clone()
	return nil
}

func (r memRecords) Get(_ context.Context, codeID int64) (*models.Record, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.records[codeID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := rec.Clone()
	return &out, nil
}

func (r memRecords) GetForUpdate(ctx context.Context, codeID int64) (*models.Record, error) {
	lockRow(r.db, fmt.Sprintf("records/%d", codeID))
	return r.Get(ctx, codeID)
}

func (r memRecords) Update(_ context.Context, rec *models.Record) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.beforeUpdate != nil {
		r.s.beforeUpdate(r.s, rec)
	}
	stored, ok := r.s.records[rec.CodeID]
	if !ok || stored.Version != rec.Version {
		return common.ErrVersionConflict
	}
	rec.Version++
	r.s.records[rec.CodeID] = rec.Clone()
	return nil
}

type memTickets struct {
	s  *memStore
	db dbx.DBTX
}

func (t memTickets) SetLockTimeout(_ context.Context, d time.Duration) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.lockTimeouts = append(t.s.lockTimeouts, d)
	return nil
}

func (t memTickets) LockForUpdate(_ context.Context, ticketType string) (*models.ReservationTicket, error) {
	lockRow(t.db, "tickets/"+ticketType)
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.lockErr != nil {
		return nil, t.s.lockErr
	}
	if ticketType != t.s.ticket.Type {
		return nil, common.ErrorNotFound
	}
	out := t.s.ticket
	return &out, nil
}

func (t memTickets) Update(_ context.Context, ticket *models.ReservationTicket) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.ticket = *ticket
	return nil
}

type memSnapshots struct{ s *memStore }

func (m memSnapshots) Put(_ context.Context, snap *models.Snapshot) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.putSnapshotErr != nil {
		return m.s.putSnapshotErr
	}
	m.s.snapshots[snapKey{snap.CodeID, snap.Status}] = *snap
	return nil
}

func (m memSnapshots) Get(_ context.Context, codeID int64, status models.Status) (*models.Snapshot, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	snap, ok := m.s.snapshots[snapKey{codeID, status}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &snap, nil
}

func (m memSnapshots) ListByStatus(_ context.Context, status models.Status) ([]*models.Snapshot, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.Snapshot
	for k, snap := range m.s.snapshots {
		if k.status == status {
			out = append(out, &snap)
		}
	}
	slices.SortFunc(out, func(a, b *models.Snapshot) int { return int(a.CodeID - b.CodeID) })
	return out, nil
}

type memTombstones struct{ s *memStore }

func (m memTombstones) Append(_ context.Context, t *models.Tombstone) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	t.ID = int64(len(m.s.tombstones) + 1)
	m.s.tombstones = append(m.s.tombstones, *t)
	return nil
}

func (m memTombstones) LatestActive(ctx context.Context, codeID int64) (*models.Tombstone, error) {
	if m.s.beforeGuard != nil {
		m.s.beforeGuard()
	}
	events, _ := m.History(ctx, codeID)
	if len(events) == 0 || events[len(events)-1].Status == models.TombstoneUnhidden {
		return nil, common.ErrorNotFound
	}
	return events[len(events)-1], nil
}

func (m memTombstones) History(_ context.Context, codeID int64) ([]*models.Tombstone, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.Tombstone
	for _, t := range m.s.tombstones {
		if t.CodeID == codeID {
			out = append(out, &t)
		}
	}
	slices.SortStableFunc(out, func(a, b *models.Tombstone) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return int(a.ID - b.ID)
	})
	return out, nil
}
