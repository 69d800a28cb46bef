// Package api defines the JSON wire types shared by the StackPad client and
// the sync server.
package api

import "time"

// WireEvent is the push/pull representation of one mutation event. Payload is
// carried opaquely: the server stores and relays it, only the client
// interprets snapshots.
type WireEvent struct {
	EventID        string          `json:"eventId"`
	Type           string          `json:"type"`
	EntityID       string          `json:"entityId,omitempty"`
	Payload        map[string]any  `json:"payload"`
	PayloadVersion int             `json:"payloadVersion"`
	OriginUserID   string          `json:"originUserId"`
	OriginDeviceID string          `json:"originDeviceId"`
	Timestamp      time.Time       `json:"timestamp"`
}

// PushEventsRequest is a batch of pending events.
type PushEventsRequest struct {
	Events []WireEvent `json:"events"`
}

// PushEventsResponse acknowledges ingested event ids.
type PushEventsResponse struct {
	Accepted []string `json:"accepted"`
}

// PullEventsResponse returns remote events after a cursor, oldest first.
type PullEventsResponse struct {
	Events []WireEvent `json:"events"`
	Cursor int64       `json:"cursor"`
}

// UploadTargetRequest asks for an attachment destination.
type UploadTargetRequest struct {
	Filename  string `json:"filename"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}

// UploadTargetResponse carries the opaque upload target and the retrieval
// reference to persist.
type UploadTargetResponse struct {
	UploadURL  string `json:"uploadUrl"`
	StorageKey string `json:"storageKey"`
}

// DownloadURLResponse resolves a retrieval reference into a fetchable URL.
type DownloadURLResponse struct {
	DownloadURL string `json:"downloadUrl"`
}

// Credentials is the register/login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshRequest exchanges a refresh token for a new pair.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
