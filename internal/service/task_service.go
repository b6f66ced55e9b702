package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"tasktracker/internal/domain"
	"tasktracker/internal/repository"
)

// TaskService applies task rules on top of the repository. Every operation
// is scoped to ownerID, which must come from the authenticated identity.
type TaskService interface {
	CreateTask(ctx context.Context, ownerID int64, in domain.TaskInput) (*domain.Task, error)
	GetTask(ctx context.Context, ownerID, id int64) (*domain.Task, error)
	ListTasks(ctx context.Context, ownerID int64) ([]domain.Task, error)
	UpdateTask(ctx context.Context, ownerID, id int64, patch domain.TaskPatch) (*domain.Task, error)
	DeleteTask(ctx context.Context, ownerID, id int64) (*domain.Task, error)
}

type taskService struct {
	tasks repository.TaskRepository
}

func NewTaskService(tasks repository.TaskRepository) TaskService {
	return &taskService{tasks: tasks}
}

func (s *taskService) CreateTask(ctx context.Context, ownerID int64, in domain.TaskInput) (*domain.Task, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validationError("task name required")
	}
	status, err := domain.ParseTaskStatus(in.Status)
	if err != nil {
		return nil, validationError("%v", err)
	}
	priority, err := domain.ParseTaskPriority(in.Priority)
	if err != nil {
		return nil, validationError("%v", err)
	}
	startDate, err := parseDate(in.StartDate)
	if err != nil {
		return nil, err
	}
	dueDate, err := parseDate(in.DueDate)
	if err != nil {
		return nil, err
	}

	task := &domain.Task{
		Name:        name,
		Description: in.Description,
		Status:      status,
		Priority:    priority,
		StartDate:   startDate,
		DueDate:     dueDate,
	}
	if _, err := s.tasks.Create(ctx, ownerID, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) GetTask(ctx context.Context, ownerID, id int64) (*domain.Task, error) {
	task, err := s.tasks.GetForOwner(ctx, ownerID, id)
	if err != nil {
		return nil, mapTaskRepoError(err)
	}
	return task, nil
}

func (s *taskService) ListTasks(ctx context.Context, ownerID int64) ([]domain.Task, error) {
	tasks, err := s.tasks.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

func (s *taskService) UpdateTask(ctx context.Context, ownerID, id int64, patch domain.TaskPatch) (*domain.Task, error) {
	changes, err := parsePatch(patch)
	if err != nil {
		return nil, err
	}

	task, err := s.tasks.GetForOwner(ctx, ownerID, id)
	if err != nil {
		return nil, mapTaskRepoError(err)
	}
	if patch.Empty() {
		return task, nil
	}

	changes.apply(task)
	if err := s.tasks.Update(ctx, ownerID, task); err != nil {
		return nil, mapTaskRepoError(err)
	}
	return task, nil
}

func (s *taskService) DeleteTask(ctx context.Context, ownerID, id int64) (*domain.Task, error) {
	task, err := s.tasks.Delete(ctx, ownerID, id)
	if err != nil {
		return nil, mapTaskRepoError(err)
	}
	return task, nil
}

// taskChanges is a validated TaskPatch.
type taskChanges struct {
	name        *string
	description *string
	status      *domain.TaskStatus
	priority    *domain.TaskPriority
	setStart    bool
	startDate   *time.Time
	setDue      bool
	dueDate     *time.Time
}

func parsePatch(patch domain.TaskPatch) (taskChanges, error) {
	var c taskChanges
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return c, validationError("task name cannot be empty")
		}
		c.name = &name
	}
	c.description = patch.Description
	if patch.Status != nil {
		if strings.TrimSpace(*patch.Status) == "" {
			return c, validationError("task status cannot be empty")
		}
		status, err := domain.ParseTaskStatus(*patch.Status)
		if err != nil {
			return c, validationError("%v", err)
		}
		c.status = &status
	}
	if patch.Priority != nil {
		if strings.TrimSpace(*patch.Priority) == "" {
			return c, validationError("task priority cannot be empty")
		}
		priority, err := domain.ParseTaskPriority(*patch.Priority)
		if err != nil {
			return c, validationError("%v", err)
		}
		c.priority = &priority
	}
	if patch.StartDate != nil {
		d, err := parseDate(*patch.StartDate)
		if err != nil {
			return c, err
		}
		c.setStart, c.startDate = true, d
	}
	if patch.DueDate != nil {
		d, err := parseDate(*patch.DueDate)
		if err != nil {
			return c, err
		}
		c.setDue, c.dueDate = true, d
	}
	return c, nil
}

func (c taskChanges) apply(task *domain.Task) {
	if c.name != nil {
		task.Name = *c.name
	}
	if c.description != nil {
		task.Description = *c.description
	}
	if c.status != nil {
		task.Status = *c.status
	}
	if c.priority != nil {
		task.Priority = *c.priority
	}
	if c.setStart {
		task.StartDate = c.startDate
	}
	if c.setDue {
		task.DueDate = c.dueDate
	}
}

func parseDate(raw string) (*time.Time, error) {
	d, err := domain.ParseDate(raw)
	if err != nil {
		return nil, validationError("%v", err)
	}
	return d, nil
}

func mapTaskRepoError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return errTaskNotFound
	}
	return err
}
