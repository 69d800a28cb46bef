package users

import (
	"context"

	"github.com/dmitrijs2005/stackpad/internal/server/models"
)

// Repository describes persistence for user accounts.
type Repository interface {
	// Create inserts a new user. A duplicate username yields
	// common.ErrorAlreadyExists.
	Create(ctx context.Context, u *models.User) error

	// GetByUsername returns a user by login name.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}
