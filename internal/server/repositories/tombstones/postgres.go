// Package tombstones stores the append-only trail of hide, unhide and delete
// events for records.
package tombstones

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/codereg/internal/common"
	"github.com/dmitrijs2005/codereg/internal/dbx"
	"github.com/dmitrijs2005/codereg/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const columns = `id, code_id, status, state, approved_state, restricted_metadata, reason, created_by, created_at`

// Append inserts t and sets its ID. Existing events are never updated.
func (r *PostgresRepository) Append(ctx context.Context, t *models.Tombstone) error {
	query := `
		INSERT INTO tombstones (code_id, status, state, approved_state, restricted_metadata, reason, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	var approved any
	if len(t.ApprovedJSON) > 0 {
		approved = t.ApprovedJSON
	}
	err := r.db.QueryRowContext(ctx, query,
		t.CodeID, string(t.Status), t.JSON, approved, t.RestrictedMetadata, t.Reason, t.CreatedBy, t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// LatestActive returns the newest event for codeID. When there is none, or
// the newest one is an unhide, the record is in circulation and
// common.ErrorNotFound is returned.
func (r *PostgresRepository) LatestActive(ctx context.Context, codeID int64) (*models.Tombstone, error) {
	query := `
		SELECT ` + columns + ` FROM (
			SELECT ` + columns + ` FROM tombstones
			WHERE code_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) latest
		WHERE status <> $2
	`
	t, err := scan(r.db.QueryRowContext(ctx, query, codeID, string(models.TombstoneUnhidden)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// History lists every event for codeID, oldest first.
func (r *PostgresRepository) History(ctx context.Context, codeID int64) ([]*models.Tombstone, error) {
	query := `
		SELECT ` + columns + ` FROM tombstones
		WHERE code_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, codeID)
	if err != nil {
		return nil, fmt.Errorf("failed to select tombstones: %w", err)
	}
	defer rows.Close()

	var result []*models.Tombstone
	for rows.Next() {
		t, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*models.Tombstone, error) {
	var (
		t      models.Tombstone
		status string
	)
	err := row.Scan(&t.ID, &t.CodeID, &status, &t.JSON, &t.ApprovedJSON,
		&t.RestrictedMetadata, &t.Reason, &t.CreatedBy, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Status = models.TombstoneStatus(status)
	return &t, nil
}
