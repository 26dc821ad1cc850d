// Package records persists canonical records. The JSON state column carries
// the descriptive fields; the workflow columns are authoritative and are
// copied back onto the record on read.
package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/codereg/internal/common"
	"github.com/dmitrijs2005/codereg/internal/dbx"
	"github.com/dmitrijs2005/codereg/internal/server/models"
)

// PostgresRepository implements record storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts r and fills in its CodeID and Version.
func (p *PostgresRepository) Create(ctx context.Context, r *models.Record) error {
	state, err := r.MarshalState()
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	query := `
		INSERT INTO records (workflow_status, owner, site_ownership_code, doi, state, date_record_added, date_record_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING code_id, version
	`
	err = p.db.QueryRowContext(ctx, query,
		string(r.WorkflowStatus), r.Owner, r.SiteOwnershipCode, r.DOI, state,
		r.DateRecordAdded, r.DateRecordUpdated,
	).Scan(&r.CodeID, &r.Version)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const selectRecord = `
		SELECT code_id, workflow_status, owner, site_ownership_code, doi, state, version, date_record_added, date_record_updated
		FROM records
		WHERE code_id = $1
	`

// Get loads the record with codeID or returns common.ErrorNotFound.
func (p *PostgresRepository) Get(ctx context.Context, codeID int64) (*models.Record, error) {
	return p.get(ctx, selectRecord, codeID)
}

// GetForUpdate is Get that also holds the row lock until the transaction
// ends. Every per-record change takes it first, so transitions and tombstone
// events on one record run one at a time.
func (p *PostgresRepository) GetForUpdate(ctx context.Context, codeID int64) (*models.Record, error) {
	return p.get(ctx, selectRecord+"FOR UPDATE", codeID)
}

func (p *PostgresRepository) get(ctx context.Context, query string, codeID int64) (*models.Record, error) {
	var (
		row    models.Record
		status string
		state  []byte
	)
	err := p.db.QueryRowContext(ctx, query, codeID).Scan(
		&row.CodeID, &status, &row.Owner, &row.SiteOwnershipCode, &row.DOI, &state,
		&row.Version, &row.DateRecordAdded, &row.DateRecordUpdated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	rec, err := models.UnmarshalRecord(state)
	if err != nil {
		return nil, fmt.Errorf("unmarshal state of record %d: %w", codeID, err)
	}
	rec.CodeID = row.CodeID
	rec.WorkflowStatus = models.Status(status)
	rec.Owner = row.Owner
	rec.SiteOwnershipCode = row.SiteOwnershipCode
	rec.DOI = row.DOI
	rec.Version = row.Version
	rec.DateRecordAdded = row.DateRecordAdded.UTC()
	rec.DateRecordUpdated = row.DateRecordUpdated.UTC()
	return rec, nil
}

// Update writes r if the stored version still equals r.Version, then bumps
// r.Version. A stale version yields common.ErrVersionConflict.
func (p *PostgresRepository) Update(ctx context.Context, r *models.Record) error {
	state, err := r.MarshalState()
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	query := `
		UPDATE records
		SET workflow_status = $3, doi = $4, state = $5, date_record_updated = $6, version = version + 1
		WHERE code_id = $1 AND version = $2
		RETURNING version
	`
	err = p.db.QueryRowContext(ctx, query,
		r.CodeID, r.Version, string(r.WorkflowStatus), r.DOI, state, r.DateRecordUpdated,
	).Scan(&r.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrVersionConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
