package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/domain"
	"tasktracker/internal/repository"
)

var userColumns = []string{"id", "username", "email", "name", "password_hash", "created_at", "updated_at"}

func TestUserRepository_Create(t *testing.T) {
	tests := []struct {
		name      string
		user      domain.User
		setupMock func(mock pgxmock.PgxPoolIface)
		wantID    int64
		wantErr   error
		wantField string
	}{
		{
			name: "assigns id",
			user: domain.User{Username: "alice", Email: "alice@example.com", Name: "Alice", PasswordHash: "hash"},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				email := "alice@example.com"
				mock.ExpectQuery("INSERT INTO users").
					WithArgs("alice", &email, "Alice", "hash", pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(5)))
			},
			wantID: 5,
		},
		{
			name: "stores missing email as null",
			user: domain.User{Username: "bob", PasswordHash: "hash"},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("INSERT INTO users").
					WithArgs("bob", (*string)(nil), "", "hash", pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(6)))
			},
			wantID: 6,
		},
		{
			name: "duplicate username",
			user: domain.User{Username: "alice", PasswordHash: "hash"},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("INSERT INTO users").
					WithArgs("alice", (*string)(nil), "", "hash", pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_username_key"})
			},
			wantErr:   repository.ErrDuplicate,
			wantField: "username",
		},
		{
			name: "duplicate email",
			user: domain.User{Username: "carol", Email: "alice@example.com", PasswordHash: "hash"},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("INSERT INTO users").
					WithArgs("carol", pgxmock.AnyArg(), "", "hash", pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"})
			},
			wantErr:   repository.ErrDuplicate,
			wantField: "email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()
			tt.setupMock(mock)

			repo := NewUserRepository(mock)
			user := tt.user
			id, err := repo.Create(context.Background(), &user)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				var dup *repository.DuplicateError
				require.ErrorAs(t, err, &dup)
				assert.Equal(t, tt.wantField, dup.Field)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, id)
				assert.Equal(t, tt.wantID, user.ID)
				assert.False(t, user.CreatedAt.IsZero())
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByUsername(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		email := "alice@example.com"
		mock.ExpectQuery("FROM users").
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows(userColumns).
				AddRow(int64(1), "alice", &email, "Alice", "hash", created, created))

		user, err := NewUserRepository(mock).GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Equal(t, "hash", user.PasswordHash)
		assert.Equal(t, created, user.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("null email", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("FROM users").
			WithArgs("bob").
			WillReturnRows(pgxmock.NewRows(userColumns).
				AddRow(int64(2), "bob", nil, "", "hash", created, created))

		user, err := NewUserRepository(mock).GetByUsername(ctx, "bob")
		require.NoError(t, err)
		assert.Empty(t, user.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("FROM users").
			WithArgs("nobody").
			WillReturnRows(pgxmock.NewRows(userColumns))

		_, err = NewUserRepository(mock).GetByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("missing row", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec("UPDATE users").
			WithArgs("alice", (*string)(nil), "", "hash", pgxmock.AnyArg(), int64(9)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err = NewUserRepository(mock).Update(ctx, &domain.User{ID: 9, Username: "alice", PasswordHash: "hash"})
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("email taken", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec("UPDATE users").
			WithArgs("alice", pgxmock.AnyArg(), "", "hash", pgxmock.AnyArg(), int64(1)).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"})

		err = NewUserRepository(mock).Update(ctx, &domain.User{ID: 1, Username: "alice", Email: "bob@example.com", PasswordHash: "hash"})
		var dup *repository.DuplicateError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "email", dup.Field)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ok", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec("UPDATE users").
			WithArgs("alice", (*string)(nil), "Alice A.", "hash", pgxmock.AnyArg(), int64(1)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		user := &domain.User{ID: 1, Username: "alice", Name: "Alice A.", PasswordHash: "hash"}
		require.NoError(t, NewUserRepository(mock).Update(ctx, user))
		assert.False(t, user.UpdatedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
