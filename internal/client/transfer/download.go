package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmitrijs2005/stackpad/internal/client/models"
	"github.com/dmitrijs2005/stackpad/internal/common"
	"github.com/dmitrijs2005/stackpad/internal/filex"
	"github.com/dmitrijs2005/stackpad/internal/logging"
	"github.com/google/uuid"
)

// DownloadManager runs concurrent, cancellable downloads keyed by item id.
// All transfers share one HTTP client (one connection pool); each logical
// download is tracked by a correlation id removed when it settles.
type DownloadManager struct {
	http   *http.Client
	dir    string
	logger logging.Logger

	mu       sync.Mutex
	inflight map[string]*download
	settled  map[string]*download
}

type download struct {
	corrID    string
	dest      string
	cancel    context.CancelFunc
	cancelled bool

	progress chan models.Progress
	done     chan struct{}

	// set before done is closed
	err error
}

// NewDownloadManager returns a manager writing completed files under dir.
func NewDownloadManager(dir string, logger logging.Logger) *DownloadManager {
	return &DownloadManager{
		http:     &http.Client{Timeout: 30 * time.Minute},
		dir:      dir,
		logger:   logger,
		inflight: make(map[string]*download),
		settled:  make(map[string]*download),
	}
}

// Start begins downloading remoteURL for the item and returns immediately
// with a progress stream and the final destination path. A second Start for
// an item already in flight fails with ErrDownloadInProgress and does not
// affect the first. The stream yields progress tuples until the transfer
// settles, then closes.
func (m *DownloadManager) Start(remoteURL, itemID, filename string) (<-chan models.Progress, string, error) {
	dest := filepath.Join(m.dir, itemID+"_"+filepath.Base(filename))

	ctx, cancel := context.WithCancel(context.Background())
	d := &download{
		corrID:   uuid.NewString(),
		dest:     dest,
		cancel:   cancel,
		progress: make(chan models.Progress, 16),
		done:     make(chan struct{}),
	}

	m.mu.Lock()
	if _, busy := m.inflight[itemID]; busy {
		m.mu.Unlock()
		cancel()
		return nil, "", common.ErrDownloadInProgress
	}
	delete(m.settled, itemID)
	m.inflight[itemID] = d
	m.mu.Unlock()

	go m.run(ctx, itemID, d, remoteURL)

	return d.progress, dest, nil
}

// Await suspends the caller until the transfer for the item settles,
// returning the destination path. Multiple independent waiters may await the
// same id, and a waiter arriving after settlement still observes the final
// outcome. Only items the manager has never seen report ErrorNotFound.
func (m *DownloadManager) Await(ctx context.Context, itemID string) (string, error) {
	m.mu.Lock()
	d, ok := m.inflight[itemID]
	if !ok {
		d, ok = m.settled[itemID]
	}
	m.mu.Unlock()
	if !ok {
		return "", common.ErrorNotFound
	}

	select {
	case <-d.done:
		return d.dest, d.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Cancel aborts the item's transfer, best effort. Partial bytes are cleaned
// up and all waiters resolve with ErrDownloadCancelled.
func (m *DownloadManager) Cancel(itemID string) {
	m.mu.Lock()
	d, ok := m.inflight[itemID]
	if ok {
		d.cancelled = true
	}
	m.mu.Unlock()
	if ok {
		d.cancel()
	}
}

// InFlight reports whether the item currently has an active transfer.
func (m *DownloadManager) InFlight(itemID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inflight[itemID]
	return ok
}

func (m *DownloadManager) run(ctx context.Context, itemID string, d *download, remoteURL string) {
	err := m.fetch(ctx, d, remoteURL)
	if err != nil && errors.Is(err, context.Canceled) {
		err = common.ErrDownloadCancelled
	}

	// The record moves to settled before done closes, so a waiter can never
	// miss the outcome.
	m.mu.Lock()
	if d.cancelled {
		err = common.ErrDownloadCancelled
	}
	d.err = err
	delete(m.inflight, itemID)
	m.settled[itemID] = d
	m.mu.Unlock()

	close(d.progress)
	close(d.done)

	if err != nil {
		m.logger.Warn(ctx, "download failed", "item", itemID, "corr", d.corrID, "error", err)
	} else {
		m.logger.Info(ctx, "download completed", "item", itemID, "corr", d.corrID, "dest", d.dest)
	}
}

// fetch streams the body into a temp file next to the destination and moves
// it into place only on full, verified completion. A partial failure never
// leaves bytes at the canonical path.
func (m *DownloadManager) fetch(ctx context.Context, d *download, remoteURL string) error {
	if err := os.MkdirAll(m.dir, 0o770); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return err
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}

	tmp := d.dest + ".partial-" + d.corrID[:8]
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	total := resp.ContentLength // -1 when unknown
	written, copyErr := m.copyWithProgress(f, resp.Body, total, d)
	closeErr := f.Close()

	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr == nil && total >= 0 && written != total {
		copyErr = fmt.Errorf("short body: got %d of %d bytes", written, total)
	}
	if copyErr != nil {
		_ = filex.RemoveIfExists(tmp)
		return copyErr
	}

	return filex.ReplaceAtomic(tmp, d.dest)
}

func (m *DownloadManager) copyWithProgress(dst io.Writer, src io.Reader, total int64, d *download) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)

			// Drop ticks rather than block the transfer on a slow consumer.
			select {
			case d.progress <- models.Progress{BytesDownloaded: written, TotalBytes: total}:
			default:
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
