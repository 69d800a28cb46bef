package models

import "time"

// TransferJob is the ephemeral retry-tracking state for one failing transfer.
// It lives only in the retry scheduler's map and is never persisted: a process
// restart drops the timers and leaves the item in its last recorded failed
// state for the user to retry manually.
type TransferJob struct {
	ItemID        string
	Attempt       int
	LastAttemptAt time.Time

	// NextRetryAt is nil when no retry is scheduled (exhausted, succeeded,
	// or waiting for connectivity to return).
	NextRetryAt *time.Time
}

// Progress is one progress tick of an in-flight download.
type Progress struct {
	BytesDownloaded int64
	TotalBytes      int64 // -1 when the remote did not announce a length
}
