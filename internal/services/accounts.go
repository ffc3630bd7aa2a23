package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"fintrack/internal/auth"
	"fintrack/internal/core"
)

// Register creates a user with a bcrypt-hashed password.
func (s *FinanceService) Register(ctx context.Context, username, password string) (core.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return core.User{}, core.ErrEmptyUsername
	}
	if password == "" {
		return core.User{}, core.ErrEmptyPassword
	}
	if utf8.RuneCountInString(username) > core.MaxUsernameLength {
		return core.User{}, core.ErrUsernameTooLong
	}
	if len(password) > core.MaxPasswordBytes {
		return core.User{}, core.ErrPasswordTooLong
	}

	if _, err := s.store.GetUserByUsername(ctx, username); err == nil {
		return core.User{}, core.ErrUsernameTaken
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.User{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, err
	}

	u, err := s.store.CreateUser(ctx, username, hash)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// Authenticate returns the user when the credentials match. Unknown users and
// wrong passwords both yield core.ErrInvalidCredentials.
func (s *FinanceService) Authenticate(ctx context.Context, username, password string) (core.User, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		slog.WarnContext(ctx, "Failed login attempt", "username", u.Username)
		return core.User{}, err
	}
	return u, nil
}
