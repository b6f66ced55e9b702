package repository

import (
	"context"

	"tasktracker/internal/domain"
)

// UserRepository defines persistence operations for User entities.
// Username and email uniqueness is enforced by the store itself.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}
