package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"tasktracker/internal/domain"
	"tasktracker/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL,
	email TEXT NULL,
	name TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT users_username_key UNIQUE (username),
	CONSTRAINT users_email_key UNIQUE (email)
)`

const selectUser = `
SELECT id, username, email, name, password_hash, created_at, updated_at
FROM users`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db Querier
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db Querier) *UserRepository {
	return &UserRepository{db: db}
}

var _ repository.UserRepository = (*UserRepository)(nil)

// Init creates the users table when missing.
func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

// Create inserts the user and assigns its id.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	var id int64
	err := r.db.QueryRow(ctx, `
INSERT INTO users (username, email, name, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`,
		user.Username,
		nullString(user.Email),
		user.Name,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&id)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return 0, duplicateUserError(constraint)
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	user.ID = id
	return id, nil
}

// GetByUsername looks a user up by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, selectUser+`
WHERE username = $1`, username))
}

// GetByEmail looks a user up by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, selectUser+`
WHERE email = $1`, email))
}

// GetByID looks a user up by id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, selectUser+`
WHERE id = $1`, id))
}

// Update rewrites the mutable user columns.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()
	tag, err := r.db.Exec(ctx, `
UPDATE users
SET username=$1, email=$2, name=$3, password_hash=$4, updated_at=$5
WHERE id=$6`,
		user.Username,
		nullString(user.Email),
		user.Name,
		user.PasswordHash,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return duplicateUserError(constraint)
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func duplicateUserError(constraint string) error {
	field := "username"
	if strings.Contains(constraint, "email") {
		field = "email"
	}
	return &repository.DuplicateError{Field: field}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user  domain.User
		email *string
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&email,
		&user.Name,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if email != nil {
		user.Email = *email
	}
	return &user, nil
}
