package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/stackpad/internal/client/eventlog"
	"github.com/dmitrijs2005/stackpad/internal/client/models"
	"github.com/dmitrijs2005/stackpad/internal/client/repositories/tasks"
	"github.com/dmitrijs2005/stackpad/internal/dbx"
	"github.com/google/uuid"
)

// TaskService manages the to-do items inside stacks.
type TaskService interface {
	Add(ctx context.Context, stackID, title string) (*models.Task, error)
	Rename(ctx context.Context, id, title string) error
	SetDone(ctx context.Context, id string, done bool) error
	Delete(ctx context.Context, id string) error
	ListByStack(ctx context.Context, stackID string) ([]*models.Task, error)
	Get(ctx context.Context, id string) (*models.Task, error)
}

type taskService struct {
	db  *sql.DB
	log *eventlog.Log
	now func() time.Time
}

// NewTaskService returns the production TaskService.
func NewTaskService(db *sql.DB, log *eventlog.Log) TaskService {
	return &taskService{
		db:  db,
		log: log,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *taskService) Add(ctx context.Context, stackID, title string) (*models.Task, error) {
	now := s.now()
	t := &models.Task{
		ID:        uuid.NewString(),
		StackID:   stackID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := tasks.NewSQLiteRepository(tx)

		siblings, err := repo.GetByStack(ctx, stackID)
		if err != nil {
			return err
		}
		t.SortOrder = len(siblings)

		p := models.Payload{Kind: models.SnapshotTask, Task: models.TaskSnapshot(t)}
		if _, err := s.log.Append(ctx, tx, models.EventTaskCreated, t.ID, p); err != nil {
			return err
		}
		return repo.CreateOrUpdate(ctx, t)
	})
	if err != nil {
		return nil, fmt.Errorf("error creating task: %w", err)
	}
	return t, nil
}

func (s *taskService) Rename(ctx context.Context, id, title string) error {
	return s.mutate(ctx, id, models.EventTaskUpdated, func(t *models.Task) map[string]any {
		old := t.Title
		t.Title = title
		return map[string]any{"title": map[string]any{"from": old, "to": title}}
	})
}

func (s *taskService) SetDone(ctx context.Context, id string, done bool) error {
	return s.mutate(ctx, id, models.EventTaskUpdated, func(t *models.Task) map[string]any {
		t.Done = done
		return map[string]any{"done": done}
	})
}

func (s *taskService) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, id, models.EventTaskDeleted, func(t *models.Task) map[string]any {
		t.Deleted = true
		return map[string]any{"deleted": true}
	})
}

func (s *taskService) ListByStack(ctx context.Context, stackID string) ([]*models.Task, error) {
	return tasks.NewSQLiteRepository(s.db).GetByStack(ctx, stackID)
}

func (s *taskService) Get(ctx context.Context, id string) (*models.Task, error) {
	return tasks.NewSQLiteRepository(s.db).GetByID(ctx, id)
}

func (s *taskService) mutate(ctx context.Context, id string, typ models.EventType, fn func(*models.Task) map[string]any) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := tasks.NewSQLiteRepository(tx)
		t, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		changes := fn(t)
		t.UpdatedAt = s.now()

		p := models.Payload{Kind: models.SnapshotTask, Task: models.TaskSnapshot(t), Changes: changes}
		if _, err := s.log.Append(ctx, tx, typ, t.ID, p); err != nil {
			return err
		}
		return repo.CreateOrUpdate(ctx, t)
	})
	if err != nil {
		return fmt.Errorf("error updating task: %w", err)
	}
	return nil
}
