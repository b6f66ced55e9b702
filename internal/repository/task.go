package repository

import (
	"context"

	"tasktracker/internal/domain"
)

// TaskRepository exposes persistence operations for tasks. Every method takes
// the authenticated owner id as its own argument and filters on it; a task
// owned by someone else is reported as ErrNotFound.
type TaskRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, ownerID int64, task *domain.Task) (int64, error)
	GetForOwner(ctx context.Context, ownerID, id int64) (*domain.Task, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Task, error)
	Update(ctx context.Context, ownerID int64, task *domain.Task) error
	Delete(ctx context.Context, ownerID, id int64) (*domain.Task, error)
}
