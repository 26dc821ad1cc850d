package snapshots

import (
	"context"

	"github.com/dmitrijs2005/codereg/internal/server/models"
)

type Repository interface {
	Put(ctx context.Context, s *models.Snapshot) error
	Get(ctx context.Context, codeID int64, status models.Status) (*models.Snapshot, error)
	ListByStatus(ctx context.Context, status models.Status) ([]*models.Snapshot, error)
}
