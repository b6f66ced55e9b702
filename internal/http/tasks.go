package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/domain"
)

// createTaskRequest accepts both snake_case and the browser client's
// camelCase date keys.
type createTaskRequest struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Status       string  `json:"status"`
	Priority     string  `json:"priority"`
	StartDate    *string `json:"start_date"`
	DueDate      *string `json:"due_date"`
	StartDateAlt *string `json:"startDate"`
	DueDateAlt   *string `json:"dueDate"`
}

type TaskResponse struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Status      domain.TaskStatus   `json:"status"`
	Priority    domain.TaskPriority `json:"priority"`
	StartDate   *string             `json:"start_date,omitempty"`
	DueDate     *string             `json:"due_date,omitempty"`
	CreatedAt   string              `json:"created_at"`
	UpdatedAt   string              `json:"updated_at"`
}

// immutableTaskKeys may never appear in an update body.
var immutableTaskKeys = []string{"owner", "owner_id", "ownerId", "user", "user_id"}

func (h *Handler) createTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	identity, _ := identityFrom(c)
	task, err := h.tasks.CreateTask(c.Request.Context(), identity.UserID, domain.TaskInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		StartDate:   firstNonNil(req.StartDate, req.StartDateAlt),
		DueDate:     firstNonNil(req.DueDate, req.DueDateAlt),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, taskToResponse(*task))
}

func (h *Handler) listTasks(c *gin.Context) {
	identity, _ := identityFrom(c)
	tasks, err := h.tasks.ListTasks(c.Request.Context(), identity.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := make([]TaskResponse, len(tasks))
	for i := range tasks {
		resp[i] = taskToResponse(tasks[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	identity, _ := identityFrom(c)
	task, err := h.tasks.GetTask(c.Request.Context(), identity.UserID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskToResponse(*task))
}

func (h *Handler) updateTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	for _, key := range immutableTaskKeys {
		if _, present := body[key]; present {
			badRequest(c, "task owner cannot be changed")
			return
		}
	}

	patch, err := decodeTaskPatch(body)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	identity, _ := identityFrom(c)
	task, err := h.tasks.UpdateTask(c.Request.Context(), identity.UserID, id, patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskToResponse(*task))
}

func (h *Handler) deleteTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	identity, _ := identityFrom(c)
	task, err := h.tasks.DeleteTask(c.Request.Context(), identity.UserID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "task deleted",
		"task":    taskToResponse(*task),
	})
}

// taskID parses the :id path parameter. A malformed id is reported the same
// way as a task that does not exist.
func taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return 0, false
	}
	return id, true
}

// decodeTaskPatch keeps only the keys present in the body. JSON null is
// treated as an empty string, which clears dates and descriptions.
func decodeTaskPatch(body map[string]json.RawMessage) (domain.TaskPatch, error) {
	var (
		patch domain.TaskPatch
		err   error
	)
	fields := []struct {
		keys []string
		dst  **string
	}{
		{[]string{"name"}, &patch.Name},
		{[]string{"description"}, &patch.Description},
		{[]string{"status"}, &patch.Status},
		{[]string{"priority"}, &patch.Priority},
		{[]string{"start_date", "startDate"}, &patch.StartDate},
		{[]string{"due_date", "dueDate"}, &patch.DueDate},
	}
	for _, f := range fields {
		for _, key := range f.keys {
			raw, present := body[key]
			if !present {
				continue
			}
			if *f.dst, err = decodeOptionalString(key, raw); err != nil {
				return domain.TaskPatch{}, err
			}
			break
		}
	}
	return patch, nil
}

func decodeOptionalString(key string, raw json.RawMessage) (*string, error) {
	var v *string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, &fieldError{field: key}
	}
	if v == nil {
		empty := ""
		return &empty, nil
	}
	return v, nil
}

type fieldError struct {
	field string
}

func (e *fieldError) Error() string {
	return e.field + " must be a string"
}

func firstNonNil(values ...*string) string {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return ""
}

func taskToResponse(task domain.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		Name:        task.Name,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		StartDate:   domain.FormatDate(task.StartDate),
		DueDate:     domain.FormatDate(task.DueDate),
		CreatedAt:   task.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   task.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
