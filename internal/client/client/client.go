// Package client talks to the StackPad sync server over HTTP/JSON and owns
// the access/refresh token pair for the session.
package client

import (
	"context"

	"github.com/dmitrijs2005/stackpad/internal/api"
)

// Client is the transport surface the sync core depends on. The push worker,
// the transfer coordinator and the CLI all consume this interface; tests
// substitute fakes.
type Client interface {
	// Register creates an account.
	Register(ctx context.Context, username, password string) error

	// Login authenticates and stores the session's token pair.
	Login(ctx context.Context, username, password string) error

	// Ping checks end-to-end server availability.
	Ping(ctx context.Context) error

	// PushEvents sends a batch of pending events to the ingestion endpoint
	// and returns the acknowledged event ids.
	PushEvents(ctx context.Context, events []api.WireEvent) ([]string, error)

	// PullEvents fetches remote events recorded after the cursor.
	PullEvents(ctx context.Context, cursor int64) ([]api.WireEvent, int64, error)

	// RequestUploadTarget asks for an attachment destination: an opaque
	// upload URL plus the retrieval reference to persist.
	RequestUploadTarget(ctx context.Context, filename, mimeType string, sizeBytes int64) (*api.UploadTargetResponse, error)

	// ResolveDownloadURL turns a retrieval reference into a fetchable URL.
	ResolveDownloadURL(ctx context.Context, storageKey string) (string, error)
}
