package metadata

import "context"

// Repository is a small key-value store for client-side bookkeeping such as
// the remote pull cursor and the device id.
type Repository interface {
	// Get returns the value for name, or common.ErrorNotFound.
	Get(ctx context.Context, name string) (string, error)

	// Set upserts the value for name.
	Set(ctx context.Context, name, value string) error
}
