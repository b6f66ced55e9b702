package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/domain"
	"tasktracker/internal/repository"
)

func newTestTask(name string) *domain.Task {
	return &domain.Task{
		Name:     name,
		Status:   domain.TaskStatusPending,
		Priority: domain.TaskPriorityMedium,
	}
}

func TestTaskRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")

	due := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	task := newTestTask("Write report")
	task.Description = "quarterly"
	task.Priority = domain.TaskPriorityHigh
	task.DueDate = &due

	id, err := repo.Create(ctx, alice.ID, task)
	require.NoError(t, err)
	assert.Equal(t, id, task.ID)
	assert.Equal(t, alice.ID, task.OwnerID)

	got, err := repo.GetForOwner(ctx, alice.ID, id)
	require.NoError(t, err)
	assert.Equal(t, "Write report", got.Name)
	assert.Equal(t, "quarterly", got.Description)
	assert.Equal(t, domain.TaskPriorityHigh, got.Priority)
	assert.Equal(t, domain.TaskStatusPending, got.Status)
	assert.Nil(t, got.StartDate)
	require.NotNil(t, got.DueDate)
	assert.True(t, due.Equal(*got.DueDate))
	assert.Equal(t, time.UTC, got.CreatedAt.Location())
}

func TestTaskRepository_OwnerScoping(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	task := newTestTask("alice's task")
	_, err := repo.Create(ctx, alice.ID, task)
	require.NoError(t, err)

	t.Run("get", func(t *testing.T) {
		_, err := repo.GetForOwner(ctx, bob.ID, task.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("list", func(t *testing.T) {
		tasks, err := repo.ListByOwner(ctx, bob.ID)
		require.NoError(t, err)
		assert.NotNil(t, tasks)
		assert.Empty(t, tasks)
	})

	t.Run("update", func(t *testing.T) {
		hijacked := *task
		hijacked.Name = "mine now"
		assert.ErrorIs(t, repo.Update(ctx, bob.ID, &hijacked), repository.ErrNotFound)

		got, err := repo.GetForOwner(ctx, alice.ID, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice's task", got.Name)
	})

	t.Run("delete", func(t *testing.T) {
		_, err := repo.Delete(ctx, bob.ID, task.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)

		_, err = repo.GetForOwner(ctx, alice.ID, task.ID)
		assert.NoError(t, err)
	})
}

func TestTaskRepository_ListNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")

	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		task := newTestTask(name)
		task.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		_, err := repo.Create(ctx, alice.ID, task)
		require.NoError(t, err)
	}

	tasks, err := repo.ListByOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "third", tasks[0].Name)
	assert.Equal(t, "second", tasks[1].Name)
	assert.Equal(t, "first", tasks[2].Name)
}

func TestTaskRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	task := newTestTask("Write report")
	task.StartDate = &start
	_, err := repo.Create(ctx, alice.ID, task)
	require.NoError(t, err)

	task.Status = domain.TaskStatusCompleted
	task.StartDate = nil
	require.NoError(t, repo.Update(ctx, alice.ID, task))

	got, err := repo.GetForOwner(ctx, alice.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	assert.Nil(t, got.StartDate)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestTaskRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")

	task := newTestTask("Write report")
	_, err := repo.Create(ctx, alice.ID, task)
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, alice.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write report", deleted.Name)

	_, err = repo.GetForOwner(ctx, alice.ID, task.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.Delete(ctx, alice.ID, task.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTaskRepository_RejectsUnknownOwner(t *testing.T) {
	db := setupTestDB(t)
	_, err := NewTaskRepository(db).Create(context.Background(), 404, newTestTask("orphan"))
	assert.Error(t, err)
}
