// Package cli wires the sync core together and exposes it through an
// interactive prompt.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/stackpad/internal/client/client"
	"github.com/dmitrijs2005/stackpad/internal/client/config"
	"github.com/dmitrijs2005/stackpad/internal/client/eventlog"
	"github.com/dmitrijs2005/stackpad/internal/client/netx"
	"github.com/dmitrijs2005/stackpad/internal/client/push"
	"github.com/dmitrijs2005/stackpad/internal/client/reconcile"
	"github.com/dmitrijs2005/stackpad/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/stackpad/internal/client/retry"
	"github.com/dmitrijs2005/stackpad/internal/client/services"
	"github.com/dmitrijs2005/stackpad/internal/client/transfer"
	"github.com/dmitrijs2005/stackpad/internal/common"
	"github.com/dmitrijs2005/stackpad/internal/logging"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Mode reflects the watcher's view of connectivity, shown in the prompt.
type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// App owns the client's long-lived components and the REPL session state.
type App struct {
	config *config.Config
	logger logging.Logger

	db        *sql.DB
	apiClient client.Client
	meta      metadata.Repository

	eventLog    *eventlog.Log
	reconciler  *reconcile.Reconciler
	checker     *netx.Checker
	watcher     *netx.Watcher
	scheduler   *retry.Scheduler
	uploader    *transfer.Uploader
	downloads   *transfer.DownloadManager
	pusher      *push.Pusher
	stacks      services.StackService
	tasks       services.TaskService
	attachments services.AttachmentService
	sync        services.SyncService

	userName string
	Mode     Mode
	reader   *bufio.Reader
}

// NewApp builds the full component graph from the configuration.
func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	logger := logging.NewFileLogger(c.LogFile, slog.LevelInfo)

	repos, err := client.InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	deviceID, err := loadDeviceID(ctx, repos.Metadata)
	if err != nil {
		return nil, err
	}
	userName := loadUserName(ctx, repos.Metadata)

	apiClient := client.NewHTTPClient(c.ServerEndpointAddr)

	checkerOpts := []netx.CheckerOption{
		netx.WithProbeTimeout(c.ProbeTimeout),
		netx.WithCacheTTL(c.ReachabilityTTL),
	}
	if c.ProbeURL != "" {
		checkerOpts = append(checkerOpts, netx.WithProbeURL(c.ProbeURL))
	}
	checker := netx.NewChecker(checkerOpts...)

	evlog := eventlog.New(repos.DB, eventlog.Origin{UserID: userName, DeviceID: deviceID})
	reconciler := reconcile.New(repos.DB, evlog, logger)
	pusher := push.New(evlog, apiClient, checker, logger)

	uploader := transfer.NewUploader(apiClient, repos.Attachments, logger)
	downloads := transfer.NewDownloadManager(c.DownloadDir, logger)

	attachmentSvc := services.NewAttachmentService(repos.DB, evlog)
	uploader.OnCompleted(attachmentSvc.RecordUploaded)

	app := &App{
		config:      c,
		logger:      logger,
		db:          repos.DB,
		apiClient:   apiClient,
		meta:        repos.Metadata,
		eventLog:    evlog,
		reconciler:  reconciler,
		checker:     checker,
		uploader:    uploader,
		downloads:   downloads,
		pusher:      pusher,
		stacks:      services.NewStackService(repos.DB, evlog, reconciler),
		tasks:       services.NewTaskService(repos.DB, evlog),
		attachments: attachmentSvc,
		sync:        services.NewSyncService(repos.DB, evlog, apiClient, pusher, reconciler),
		userName:    userName,
		reader:      bufio.NewReader(os.Stdin),
	}

	schedCfg := retry.Config{
		BaseDelay:   c.RetryBaseDelay,
		MaxDelay:    c.RetryMaxDelay,
		MaxAttempts: c.RetryMaxAttempts,
	}
	app.scheduler = retry.New(schedCfg, checker.IsReachable, app.retryUpload, logger)

	app.watcher = netx.NewWatcher(checker, c.OnlineCheckInterval, logger)
	app.watcher.OnRestore(app.scheduler.NetworkRestored)
	app.watcher.OnRestore(func() { app.setMode(ModeOnline) })
	app.watcher.OnLost(func() { app.setMode(ModeOffline) })

	return app, nil
}

// Run repairs invariants, starts the background workers and enters the REPL.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.reconciler.StartupRepair(ctx); err != nil {
		a.logger.Error(ctx, "startup repair failed", "error", err)
	}

	if a.checker.IsReachable(ctx) {
		a.Mode = ModeOnline
	} else {
		a.Mode = ModeOffline
	}

	go a.watcher.Run(ctx)
	go a.pusher.Run(ctx, a.config.PushInterval)

	a.Root(ctx)
}

func (a *App) setMode(mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		fmt.Printf("Switched to %s mode\n", mode)
	}
}

// retryUpload is the scheduler's fire callback: re-run the upload protocol
// and settle the scheduler state from the outcome.
func (a *App) retryUpload(attachmentID string) {
	ctx := context.Background()

	err := a.uploader.Retry(ctx, attachmentID)
	if err == nil {
		a.scheduler.Clear(attachmentID)
		return
	}
	if errors.Is(err, common.ErrNotRetryable) || errors.Is(err, common.ErrSourceNotFound) {
		a.scheduler.Clear(attachmentID)
		a.logger.Warn(ctx, "upload retry aborted", "attachment", attachmentID, "error", err)
		return
	}
	a.logger.Warn(ctx, "upload retry failed", "attachment", attachmentID, "error", err,
		"category", a.checker.Classify(ctx, err).String())
	a.scheduler.RegisterFailure(attachmentID)
}

func loadDeviceID(ctx context.Context, meta metadata.Repository) (string, error) {
	id, err := meta.Get(ctx, metadata.KeyDeviceID)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return "", err
	}
	id = uuid.NewString()
	if err := meta.Set(ctx, metadata.KeyDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

func loadUserName(ctx context.Context, meta metadata.Repository) string {
	name, err := meta.Get(ctx, "username")
	if err != nil {
		return "local"
	}
	return name
}
