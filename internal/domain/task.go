package domain

import (
	"fmt"
	"strings"
	"time"
)

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

type TaskPriority string

const (
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityLow    TaskPriority = "low"
)

// DateLayout is the wire and storage layout for task start and due dates.
const DateLayout = "2006-01-02"

// Task is a unit of work owned by exactly one user.
type Task struct {
	ID          int64
	OwnerID     int64
	Name        string
	Description string
	Status      TaskStatus
	Priority    TaskPriority
	StartDate   *time.Time
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskInput carries the caller supplied fields of a new task. Empty strings
// mean "not provided".
type TaskInput struct {
	Name        string
	Description string
	Status      string
	Priority    string
	StartDate   string
	DueDate     string
}

// TaskPatch lists the fields to replace on an existing task. A nil field is
// left untouched. For dates, a pointer to "" clears the value.
type TaskPatch struct {
	Name        *string
	Description *string
	Status      *string
	Priority    *string
	StartDate   *string
	DueDate     *string
}

// Empty reports whether the patch carries no field at all.
func (p TaskPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.StartDate == nil && p.DueDate == nil
}

// ParseTaskStatus maps user input to a TaskStatus. An empty value yields the
// pending default; "done" is accepted as an alias of completed.
func ParseTaskStatus(raw string) (TaskStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return TaskStatusPending, nil
	case string(TaskStatusPending):
		return TaskStatusPending, nil
	case string(TaskStatusCompleted), "done":
		return TaskStatusCompleted, nil
	default:
		return "", fmt.Errorf("unknown task status %q", raw)
	}
}

// ParseTaskPriority maps user input to a TaskPriority, defaulting to medium.
func ParseTaskPriority(raw string) (TaskPriority, error) {
	switch p := TaskPriority(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return TaskPriorityMedium, nil
	case TaskPriorityHigh, TaskPriorityMedium, TaskPriorityLow:
		return p, nil
	default:
		return "", fmt.Errorf("unknown task priority %q", raw)
	}
}

// ParseDate accepts YYYY-MM-DD or RFC 3339 input and returns the calendar
// date at UTC midnight. An empty value yields nil.
func ParseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		ts, rfcErr := time.Parse(time.RFC3339, raw)
		if rfcErr != nil {
			return nil, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
		}
		ts = ts.UTC()
		t = time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	}
	return &t, nil
}

// FormatDate renders a task date, or nil when unset.
func FormatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.UTC().Format(DateLayout)
	return &v
}
