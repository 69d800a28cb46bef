// Package server initializes and runs the dev sync server: it migrates the
// SQLite store, wires the services and serves the JSON API until a shutdown
// signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pressly/goose/v3"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/stackpad/internal/logging"
	"github.com/dmitrijs2005/stackpad/internal/server/config"
	"github.com/dmitrijs2005/stackpad/internal/server/httpapi"
	"github.com/dmitrijs2005/stackpad/internal/server/migrations"
	"github.com/dmitrijs2005/stackpad/internal/server/repositories/events"
	"github.com/dmitrijs2005/stackpad/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/stackpad/internal/server/repositories/users"
	"github.com/dmitrijs2005/stackpad/internal/server/services"

	_ "modernc.org/sqlite"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler *httpapi.Handler
}

// RunMigrations applies the embedded schema migrations. Safe to run on every
// process start.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("sqlite", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	userService := services.NewUserService(db,
		users.NewSQLiteRepository(db), refreshtokens.NewSQLiteRepository(db), c)
	eventService := services.NewEventService(db, events.NewSQLiteRepository(db))
	storageService := services.NewStorageService(c)

	handler := httpapi.NewHandler(userService, eventService, storageService, logger)

	return &App{config: c, logger: logger, db: db, handler: handler}, nil
}

func (app *App) Run(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "starting server", "addr", app.config.EndpointAddr)

	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.handler.Routes(),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		app.logger.Error(ctx, "server stopped with error", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing database", "error", err)
	}

	app.logger.Info(ctx, "server stopped")
}
