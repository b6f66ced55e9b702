package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"tasktracker/internal/auth"
	"tasktracker/internal/domain"
	"tasktracker/internal/repository"
)

// ProfileCache keeps sanitized user profiles keyed by id. Implementations
// report failures themselves and behave as a miss.
type ProfileCache interface {
	Get(ctx context.Context, id int64) (*domain.User, bool)
	Set(ctx context.Context, user *domain.User)
	Invalidate(ctx context.Context, id int64)
}

// TokenIssuer issues session tokens.
type TokenIssuer interface {
	Issue(userID int64, username string) (string, time.Time, error)
}

type RegisterInput struct {
	Username string
	Name     string
	Email    string
	Password string
}

// ProfileUpdate lists the profile fields to replace. A nil field is left
// untouched; an empty Email removes the address.
type ProfileUpdate struct {
	Username *string
	Email    *string
	Name     *string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	GetProfile(ctx context.Context, userID int64) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID int64, update ProfileUpdate) (*domain.User, error)
	ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error
}

type userService struct {
	users  repository.UserRepository
	hasher *auth.PasswordHasher
	tokens TokenIssuer
	cache  ProfileCache
}

func NewUserService(users repository.UserRepository, hasher *auth.PasswordHasher, tokens TokenIssuer, cache ProfileCache) UserService {
	return &userService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		cache:  cache,
	}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, validationError("username and password required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		return nil, mapUserRepoError(err)
	}

	return user.Sanitized(), nil
}

func (s *userService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, validationError("username and password are required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredential
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.Sanitized(),
	}, nil
}

func (s *userService) GetProfile(ctx context.Context, userID int64) (*domain.User, error) {
	if cached, ok := s.cache.Get(ctx, userID); ok {
		return cached, nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapUserRepoError(err)
	}

	clean := user.Sanitized()
	s.cache.Set(ctx, clean)
	return clean, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID int64, update ProfileUpdate) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapUserRepoError(err)
	}

	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if username == "" {
			return nil, validationError("username cannot be empty")
		}
		user.Username = username
	}
	if update.Email != nil {
		email, err := normalizeEmail(*update.Email)
		if err != nil {
			return nil, err
		}
		user.Email = email
	}
	if update.Name != nil {
		user.Name = strings.TrimSpace(*update.Name)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapUserRepoError(err)
	}
	s.cache.Invalidate(ctx, userID)

	return user.Sanitized(), nil
}

func (s *userService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return validationError("current and new password are required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return mapUserRepoError(err)
	}
	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return ErrInvalidCredential
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash

	if err := s.users.Update(ctx, user); err != nil {
		return mapUserRepoError(err)
	}
	s.cache.Invalidate(ctx, userID)
	return nil
}

func (s *userService) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) || errors.Is(err, auth.ErrEmptyPassword) {
			return "", validationError("%v", err)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", nil
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", validationError("invalid email address")
	}
	return email, nil
}

func mapUserRepoError(err error) error {
	var dup *repository.DuplicateError
	switch {
	case errors.As(err, &dup):
		return fmt.Errorf("%w: %s", ErrDuplicateIdentity, dup.Error())
	case errors.Is(err, repository.ErrNotFound):
		return errUserNotFound
	default:
		return err
	}
}
