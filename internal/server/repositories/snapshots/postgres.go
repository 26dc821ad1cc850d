// Package snapshots keeps one serialized copy of a record per workflow status.
// Writing a status that already has a snapshot replaces it.
package snapshots

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

// Put upserts the snapshot keyed by (code_id, status).
func (r *PostgresRepository) Put(ctx context.Context, s *models.Snapshot) error {
	query := `
		INSERT INTO snapshots (code_id, status, state, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code_id, status)
		DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, s.CodeID, string(s.Status), s.JSON, s.UpdatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, codeID int64, status models.Status) (*models.Snapshot, error) {
	query := `
		SELECT code_id, status, state, updated_at FROM snapshots
		WHERE code_id = $1 AND status = $2
	`
	s, err := scan(r.db.QueryRowContext(ctx, query, codeID, string(status)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

// ListByStatus returns every snapshot taken at status, ordered by code_id.
func (r *PostgresRepository) ListByStatus(ctx context.Context, status models.Status) ([]*models.Snapshot, error) {
	query := `
		SELECT code_id, status, state, updated_at FROM snapshots
		WHERE status = $1
		ORDER BY code_id
	`
	rows, err := r.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to select snapshots: %w", err)
	}
	defer rows.Close()

	var result []*models.Snapshot
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*models.Snapshot, error) {
	var (
		s      models.Snapshot
		status string
	)
	if err := row.Scan(&s.CodeID, &status, &s.JSON, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Status = models.Status(status)
	return &s, nil
}
