package transfer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/stackpad/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload_HappyPath(t *testing.T) {
	body := strings.Repeat("x", 100_000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	dir := t.TempDir()
	m := NewDownloadManager(dir, testLogger())

	progress, dest, err := m.Start(srv.URL, "att1", "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "att1_report.pdf"), dest)

	var last int64
	for p := range progress {
		assert.GreaterOrEqual(t, p.BytesDownloaded, last)
		last = p.BytesDownloaded
	}

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
	assert.False(t, m.InFlight("att1"))
}

func TestDownload_AwaitBlocksUntilSettled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte("data"))
	}))
	defer srv.Close()

	m := NewDownloadManager(t.TempDir(), testLogger())
	_, dest, err := m.Start(srv.URL, "att1", "f.bin")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		got, aerr := m.Await(context.Background(), "att1")
		assert.Equal(t, dest, got)
		done <- aerr
	}()

	select {
	case <-done:
		t.Fatal("Await returned before the transfer settled")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-done)
}

func TestDownload_AwaitAfterSettlement(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	m := NewDownloadManager(t.TempDir(), testLogger())
	progress, dest, err := m.Start(srv.URL, "att1", "f.bin")
	require.NoError(t, err)
	for range progress {
	}

	// The transfer has settled; a waiter arriving now still observes the
	// outcome instead of ErrorNotFound.
	got, err := m.Await(context.Background(), "att1")
	require.NoError(t, err)
	assert.Equal(t, dest, got)

	_, err = m.Await(context.Background(), "never-started")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDownload_SecondStartRejected(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte("data"))
	}))
	defer srv.Close()

	m := NewDownloadManager(t.TempDir(), testLogger())
	progress, _, err := m.Start(srv.URL, "att1", "f.bin")
	require.NoError(t, err)

	_, _, err = m.Start(srv.URL, "att1", "f.bin")
	assert.ErrorIs(t, err, common.ErrDownloadInProgress)

	// A different item is unaffected by the rejection.
	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("other"))
	}))
	defer srv2.Close()
	p2, _, err := m.Start(srv2.URL, "att2", "g.bin")
	require.NoError(t, err)
	for range p2 {
	}

	close(release)
	for range progress {
	}
}

func TestDownload_CancelLeavesNoFile(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000000")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		close(started)
		// Hold the body open until the client goes away.
		<-r.Context().Done()
	}))
	defer srv.Close()

	dir := t.TempDir()
	m := NewDownloadManager(dir, testLogger())

	progress, dest, err := m.Start(srv.URL, "att1", "big.bin")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, aerr := m.Await(context.Background(), "att1")
		done <- aerr
	}()

	<-started
	m.Cancel("att1")

	assert.ErrorIs(t, <-done, common.ErrDownloadCancelled)
	for range progress {
	}

	// Neither the final file nor the partial temp file survives.
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownload_ShortBodyDiscarded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("too short"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	m := NewDownloadManager(dir, testLogger())

	progress, dest, err := m.Start(srv.URL, "att1", "f.bin")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, aerr := m.Await(context.Background(), "att1")
		done <- aerr
	}()
	require.Error(t, <-done)
	for range progress {
	}

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownload_RemoteErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	m := NewDownloadManager(t.TempDir(), testLogger())
	progress, _, err := m.Start(srv.URL, "att1", "f.bin")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, aerr := m.Await(context.Background(), "att1")
		done <- aerr
	}()
	assert.Error(t, <-done)
	for range progress {
	}
}
