package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tasktracker/internal/domain"
	"tasktracker/internal/repository"
)

const (
	createTasksTable = `
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed')),
	priority TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('high', 'medium', 'low')),
	start_date DATETIME NULL,
	due_date DATETIME NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY(owner_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_tasks_owner_created ON tasks(owner_id, created_at DESC, id DESC);
`

	selectTask = `
SELECT id, owner_id, name, description, status, priority, start_date, due_date, created_at, updated_at
FROM tasks`
)

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) repository.TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTasksTable); err != nil {
		return fmt.Errorf("create tasks table: %w", err)
	}
	return nil
}

func (r *TaskRepository) Create(ctx context.Context, ownerID int64, task *domain.Task) (int64, error) {
	task.OwnerID = ownerID
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	task.UpdatedAt = task.CreatedAt

	res, err := r.db.ExecContext(ctx, `
INSERT INTO tasks (owner_id, name, description, status, priority, start_date, due_date, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ownerID,
		task.Name,
		task.Description,
		string(task.Status),
		string(task.Priority),
		nullTime(task.StartDate),
		nullTime(task.DueDate),
		task.CreatedAt.UTC(),
		task.UpdatedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	task.ID = id
	return id, nil
}

func (r *TaskRepository) GetForOwner(ctx context.Context, ownerID, id int64) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx, selectTask+`
WHERE id=? AND owner_id=?`,
		id,
		ownerID,
	)
	return scanTask(row)
}

func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, selectTask+`
WHERE owner_id=?
ORDER BY created_at DESC, id DESC`,
		ownerID,
	)
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

func (r *TaskRepository) Update(ctx context.Context, ownerID int64, task *domain.Task) error {
	task.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
UPDATE tasks
SET name=?, description=?, status=?, priority=?, start_date=?, due_date=?, updated_at=?
WHERE id=? AND owner_id=?`,
		task.Name,
		task.Description,
		string(task.Status),
		string(task.Priority),
		nullTime(task.StartDate),
		nullTime(task.DueDate),
		task.UpdatedAt,
		task.ID,
		ownerID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("task update rows affected: %w", err)
	}
	if aff == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, ownerID, id int64) (*domain.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	task, err := scanTask(tx.QueryRowContext(ctx, selectTask+`
WHERE id=? AND owner_id=?`,
		id,
		ownerID,
	))
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=? AND owner_id=?`, id, ownerID); err != nil {
		return nil, fmt.Errorf("delete task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit task delete: %w", err)
	}
	return task, nil
}

func scanTask(scanner interface {
	Scan(dest ...any) error
}) (*domain.Task, error) {
	var (
		task      domain.Task
		status    string
		priority  string
		startDate sql.NullTime
		dueDate   sql.NullTime
	)

	if err := scanner.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Name,
		&task.Description,
		&status,
		&priority,
		&startDate,
		&dueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	task.Status = domain.TaskStatus(status)
	task.Priority = domain.TaskPriority(priority)
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	if startDate.Valid {
		t := startDate.Time.UTC()
		task.StartDate = &t
	}
	if dueDate.Valid {
		t := dueDate.Time.UTC()
		task.DueDate = &t
	}

	return &task, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
