package tasks

import (
	"context"

	"github.com/dmitrijs2005/stackpad/internal/client/models"
)

// Repository describes CRUD and query operations for Task objects.
type Repository interface {
	// CreateOrUpdate upserts a task by id.
	CreateOrUpdate(ctx context.Context, t *models.Task) error

	// GetByID returns a task by its identifier.
	GetByID(ctx context.Context, id string) (*models.Task, error)

	// GetByStack lists non-deleted tasks of one stack ordered by sort order.
	GetByStack(ctx context.Context, stackID string) ([]*models.Task, error)
}
