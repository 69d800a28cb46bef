package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/stackpad/internal/client/migrations"
	"github.com/dmitrijs2005/stackpad/internal/client/repositories/attachments"
	"github.com/dmitrijs2005/stackpad/internal/client/repositories/events"
	"github.com/dmitrijs2005/stackpad/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/stackpad/internal/client/repositories/stacks"
	"github.com/dmitrijs2005/stackpad/internal/client/repositories/tasks"
	"github.com/pressly/goose/v3"
)

// Repositories bundles the local store handle with repositories bound to it.
type Repositories struct {
	DB          *sql.DB
	Stacks      stacks.Repository
	Tasks       tasks.Repository
	Attachments attachments.Repository
	Events      events.Repository
	Metadata    metadata.Repository
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

// InitDatabase opens the SQLite store, migrates it, and returns repositories.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		return nil, err
	}

	return &Repositories{
		DB:          db,
		Stacks:      stacks.NewSQLiteRepository(db),
		Tasks:       tasks.NewSQLiteRepository(db),
		Attachments: attachments.NewSQLiteRepository(db),
		Events:      events.NewSQLiteRepository(db),
		Metadata:    metadata.NewSQLiteRepository(db),
	}, nil
}
