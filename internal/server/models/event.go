package models

import "time"

// StoredEvent is one ingested client event. ServerSeq is the per-instance
// total order that pull cursors index into; Payload is relayed opaquely
// as the JSON bytes the client sent.
type StoredEvent struct {
	ServerSeq      int64
	EventID        string
	UserID         string
	Type           string
	EntityID       string
	Payload        []byte
	PayloadVersion int
	OriginDeviceID string
	Timestamp      time.Time
	ReceivedAt     time.Time
}
