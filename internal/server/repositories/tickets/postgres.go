// Package tickets stores the reservation ticket rows that back identifier
// allocation. Every method must run inside the caller's transaction.
package tickets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

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

// SetLockTimeout bounds row lock waits for the rest of the current
// transaction. Durations under 1ms are raised to 1ms since PostgreSQL reads
// 0 as no limit.
func (r *PostgresRepository) SetLockTimeout(ctx context.Context, d time.Duration) error {
	ms := strconv.FormatInt(max(d.Milliseconds(), 1), 10)
	if _, err := r.db.ExecContext(ctx, `SELECT set_config('lock_timeout', $1, true)`, ms); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// LockForUpdate reads the ticket and holds its row lock until the transaction
// ends. Driver errors stay in the chain for dbx.IsLockNotAvailable.
func (r *PostgresRepository) LockForUpdate(ctx context.Context, ticketType string) (*models.ReservationTicket, error) {
	query := `
		SELECT type, date_bucket, sequence_index FROM reservation_tickets
		WHERE type = $1
		FOR UPDATE
	`
	t := &models.ReservationTicket{}
	err := r.db.QueryRowContext(ctx, query, ticketType).Scan(&t.Type, &t.DateBucket, &t.SequenceIndex)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) Update(ctx context.Context, t *models.ReservationTicket) error {
	query := `
		UPDATE reservation_tickets SET date_bucket = $2, sequence_index = $3
		WHERE type = $1
	`
	res, err := r.db.ExecContext(ctx, query, t.Type, t.DateBucket, t.SequenceIndex)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}
