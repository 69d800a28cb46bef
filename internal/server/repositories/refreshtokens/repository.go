package refreshtokens

import (
	"context"

	"github.com/dmitrijs2005/stackpad/internal/server/models"
)

// Repository describes persistence for refresh tokens.
type Repository interface {
	// Add stores a freshly minted token.
	Add(ctx context.Context, t *models.RefreshToken) error

	// Find returns a token by its value.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a token; rotation deletes the old one in the same
	// transaction that mints a replacement.
	Delete(ctx context.Context, token string) error
}
