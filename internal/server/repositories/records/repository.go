package records

import (
	"context"

	"github.com/dmitrijs2005/codereg/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, r *models.Record) error
	Get(ctx context.Context, codeID int64) (*models.Record, error)
	GetForUpdate(ctx context.Context, codeID int64) (*models.Record, error)
	Update(ctx context.Context, r *models.Record) error
}
