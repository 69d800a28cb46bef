// Package services implements the domain operations of the client. Every
// mutation batches its field changes and event appends into one transaction:
// a failed append means the mutation did not happen.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/stackpad/internal/client/eventlog"
	"github.com/dmitrijs2005/stackpad/internal/client/models"
	"github.com/dmitrijs2005/stackpad/internal/client/reconcile"
	"github.com/dmitrijs2005/stackpad/internal/client/repositories/stacks"
	"github.com/dmitrijs2005/stackpad/internal/common"
	"github.com/dmitrijs2005/stackpad/internal/dbx"
	"github.com/google/uuid"
)

// StackService manages stacks and their single-active invariant.
type StackService interface {
	// Create inserts a new stack, optionally as a draft.
	Create(ctx context.Context, title string, draft bool) (*models.Stack, error)

	// Rename changes the title.
	Rename(ctx context.Context, id, title string) error

	// Promote publishes a draft.
	Promote(ctx context.Context, id string) error

	// Activate makes the stack the single active one via the reconciler.
	Activate(ctx context.Context, id string) error

	// Complete closes the stack (terminal).
	Complete(ctx context.Context, id string) error

	// Delete soft-deletes the stack.
	Delete(ctx context.Context, id string) error

	// List returns all non-deleted stacks in sort order.
	List(ctx context.Context) ([]*models.Stack, error)

	// Get returns one stack.
	Get(ctx context.Context, id string) (*models.Stack, error)
}

type stackService struct {
	db         *sql.DB
	log        *eventlog.Log
	reconciler *reconcile.Reconciler
	now        func() time.Time
}

// NewStackService returns the production StackService.
func NewStackService(db *sql.DB, log *eventlog.Log, reconciler *reconcile.Reconciler) StackService {
	return &stackService{
		db:         db,
		log:        log,
		reconciler: reconciler,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *stackService) Create(ctx context.Context, title string, draft bool) (*models.Stack, error) {
	now := s.now()
	st := &models.Stack{
		ID:        uuid.NewString(),
		Title:     title,
		Status:    models.StackStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if draft {
		st.Status = models.StackStatusDraft
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		p := models.Payload{Kind: models.SnapshotStack, Stack: models.StackSnapshot(st)}
		if _, err := s.log.Append(ctx, tx, models.EventStackCreated, st.ID, p); err != nil {
			return err
		}
		return stacks.NewSQLiteRepository(tx).CreateOrUpdate(ctx, st)
	})
	if err != nil {
		return nil, fmt.Errorf("error creating stack: %w", err)
	}
	return st, nil
}

func (s *stackService) Rename(ctx context.Context, id, title string) error {
	return s.mutate(ctx, id, models.EventStackUpdated, func(st *models.Stack) (map[string]any, error) {
		old := st.Title
		st.Title = title
		return map[string]any{"title": map[string]any{"from": old, "to": title}}, nil
	})
}

func (s *stackService) Promote(ctx context.Context, id string) error {
	return s.mutate(ctx, id, models.EventStackUpdated, func(st *models.Stack) (map[string]any, error) {
		if st.Status != models.StackStatusDraft {
			return nil, fmt.Errorf("stack %s is not a draft", id)
		}
		st.Status = models.StackStatusOpen
		return map[string]any{"status": string(st.Status)}, nil
	})
}

func (s *stackService) Activate(ctx context.Context, id string) error {
	return s.reconciler.Activate(ctx, id)
}

func (s *stackService) Complete(ctx context.Context, id string) error {
	return s.mutate(ctx, id, models.EventStackCompleted, func(st *models.Stack) (map[string]any, error) {
		st.Status = models.StackStatusDone
		st.IsActive = false
		return map[string]any{"status": string(st.Status)}, nil
	})
}

func (s *stackService) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, id, models.EventStackDeleted, func(st *models.Stack) (map[string]any, error) {
		if st.Deleted {
			return nil, common.ErrStackDeleted
		}
		st.Deleted = true
		st.IsActive = false
		return map[string]any{"deleted": true}, nil
	})
}

func (s *stackService) List(ctx context.Context) ([]*models.Stack, error) {
	return stacks.NewSQLiteRepository(s.db).GetAll(ctx)
}

func (s *stackService) Get(ctx context.Context, id string) (*models.Stack, error) {
	return stacks.NewSQLiteRepository(s.db).GetByID(ctx, id)
}

// mutate loads the stack, applies fn, and commits the event plus the row
// update together. fn returns the best-effort changes map for the event.
func (s *stackService) mutate(ctx context.Context, id string, typ models.EventType, fn func(*models.Stack) (map[string]any, error)) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := stacks.NewSQLiteRepository(tx)
		st, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		changes, err := fn(st)
		if err != nil {
			return err
		}
		st.UpdatedAt = s.now()

		p := models.Payload{Kind: models.SnapshotStack, Stack: models.StackSnapshot(st), Changes: changes}
		if _, err := s.log.Append(ctx, tx, typ, st.ID, p); err != nil {
			return err
		}
		return repo.CreateOrUpdate(ctx, st)
	})
	if err != nil {
		return fmt.Errorf("error updating stack: %w", err)
	}
	return nil
}
