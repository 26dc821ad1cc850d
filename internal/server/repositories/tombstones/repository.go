package tombstones

import (
	"context"

	"github.com/dmitrijs2005/codereg/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, t *models.Tombstone) error
	LatestActive(ctx context.Context, codeID int64) (*models.Tombstone, error)
	History(ctx context.Context, codeID int64) ([]*models.Tombstone, error)
}
