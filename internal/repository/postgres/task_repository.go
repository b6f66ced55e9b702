package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tasktracker/internal/domain"
	"tasktracker/internal/repository"
)

const createTasksTable = `
CREATE TABLE IF NOT EXISTS tasks (
	id BIGSERIAL PRIMARY KEY,
	owner_id BIGINT NOT NULL REFERENCES users(id),
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed')),
	priority TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('high', 'medium', 'low')),
	start_date DATE NULL,
	due_date DATE NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_owner_created ON tasks (owner_id, created_at DESC, id DESC)`

const selectTask = `
SELECT id, owner_id, name, description, status, priority, start_date, due_date, created_at, updated_at
FROM tasks`

// TaskRepository implements repository.TaskRepository using PostgreSQL.
type TaskRepository struct {
	db Querier
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db Querier) *TaskRepository {
	return &TaskRepository{db: db}
}

var _ repository.TaskRepository = (*TaskRepository)(nil)

// Init creates the tasks table and its owner index when missing.
func (r *TaskRepository) Init(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createTasksTable); err != nil {
		return fmt.Errorf("create tasks table: %w", err)
	}
	return nil
}

// Create inserts the task under ownerID.
func (r *TaskRepository) Create(ctx context.Context, ownerID int64, task *domain.Task) (int64, error) {
	task.OwnerID = ownerID
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	task.UpdatedAt = task.CreatedAt

	var id int64
	err := r.db.QueryRow(ctx, `
INSERT INTO tasks (owner_id, name, description, status, priority, start_date, due_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`,
		ownerID,
		task.Name,
		task.Description,
		string(task.Status),
		string(task.Priority),
		task.StartDate,
		task.DueDate,
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	task.ID = id
	return id, nil
}

// GetForOwner returns the task only when ownerID owns it.
func (r *TaskRepository) GetForOwner(ctx context.Context, ownerID, id int64) (*domain.Task, error) {
	return scanTask(r.db.QueryRow(ctx, selectTask+`
WHERE id=$1 AND owner_id=$2`, id, ownerID))
}

// ListByOwner returns the owner's tasks, newest first.
func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Task, error) {
	rows, err := r.db.Query(ctx, selectTask+`
WHERE owner_id=$1
ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// Update rewrites the mutable task columns; the owner column is only a filter.
func (r *TaskRepository) Update(ctx context.Context, ownerID int64, task *domain.Task) error {
	task.UpdatedAt = time.Now().UTC()
	tag, err := r.db.Exec(ctx, `
UPDATE tasks
SET name=$1, description=$2, status=$3, priority=$4, start_date=$5, due_date=$6, updated_at=$7
WHERE id=$8 AND owner_id=$9`,
		task.Name,
		task.Description,
		string(task.Status),
		string(task.Priority),
		task.StartDate,
		task.DueDate,
		task.UpdatedAt,
		task.ID,
		ownerID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes the task and returns the deleted row.
func (r *TaskRepository) Delete(ctx context.Context, ownerID, id int64) (*domain.Task, error) {
	return scanTask(r.db.QueryRow(ctx, `
DELETE FROM tasks
WHERE id=$1 AND owner_id=$2
RETURNING id, owner_id, name, description, status, priority, start_date, due_date, created_at, updated_at`,
		id, ownerID))
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		task     domain.Task
		status   string
		priority string
	)
	if err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Name,
		&task.Description,
		&status,
		&priority,
		&task.StartDate,
		&task.DueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	task.Status = domain.TaskStatus(status)
	task.Priority = domain.TaskPriority(priority)
	return &task, nil
}
