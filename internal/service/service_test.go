package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tasktracker/internal/auth"
	"tasktracker/internal/domain"
	"tasktracker/internal/repository/sqlite"
)

type testEnv struct {
	users  UserService
	tasks  TaskService
	tokens *auth.TokenService
	cache  *memoryCache
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	userRepo := sqlite.NewUserRepository(db)
	taskRepo := sqlite.NewTaskRepository(db)
	require.NoError(t, userRepo.Init(ctx))
	require.NoError(t, taskRepo.Init(ctx))

	tokens := auth.NewTokenService([]byte("service-test-secret"), "tasktracker")
	cache := newMemoryCache()
	return &testEnv{
		users:  NewUserService(userRepo, auth.NewPasswordHasher(bcrypt.MinCost), tokens, cache),
		tasks:  NewTaskService(taskRepo),
		tokens: tokens,
		cache:  cache,
	}
}

func (e *testEnv) register(t *testing.T, username, password string) *domain.User {
	t.Helper()

	user, err := e.users.Register(context.Background(), RegisterInput{Username: username, Password: password})
	require.NoError(t, err)
	return user
}

// memoryCache is a ProfileCache that counts hits.
type memoryCache struct {
	mu      sync.Mutex
	entries map[int64]domain.User
	hits    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[int64]domain.User)}
}

func (c *memoryCache) Get(_ context.Context, id int64) (*domain.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	c.hits++
	return &u, true
}

func (c *memoryCache) Set(_ context.Context, user *domain.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[user.ID] = *user
}

func (c *memoryCache) Invalidate(_ context.Context, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

func ptr(s string) *string { return &s }
