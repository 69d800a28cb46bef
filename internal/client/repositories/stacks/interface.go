package stacks

import (
	"context"

	"github.com/dmitrijs2005/stackpad/internal/client/models"
)

// Repository describes CRUD and query operations for Stack objects.
// Implementations are typically backed by the local SQLite database.
type Repository interface {
	// CreateOrUpdate upserts a stack by id.
	CreateOrUpdate(ctx context.Context, s *models.Stack) error

	// GetByID returns a stack by its identifier, including soft-deleted ones.
	GetByID(ctx context.Context, id string) (*models.Stack, error)

	// GetAll lists all non-deleted stacks ordered by sort order.
	GetAll(ctx context.Context) ([]*models.Stack, error)

	// GetActive returns every stack with the active flag set regardless of
	// its status field; the two are allowed to disagree transiently.
	GetActive(ctx context.Context) ([]*models.Stack, error)

	// GetSiblings lists non-deleted stacks sharing the given status, ordered
	// by sort order.
	GetSiblings(ctx context.Context, status models.StackStatus) ([]*models.Stack, error)

	// SetSortOrder renumbers one stack.
	SetSortOrder(ctx context.Context, id string, order int) error
}
