package tickets

import (
	"context"
	"time"

	"github.com/dmitrijs2005/codereg/internal/server/models"
)

type Repository interface {
	SetLockTimeout(ctx context.Context, d time.Duration) error
	LockForUpdate(ctx context.Context, ticketType string) (*models.ReservationTicket, error)
	Update(ctx context.Context, t *models.ReservationTicket) error
}
