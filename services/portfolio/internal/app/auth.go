package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"portfolioai/pkg/auth"
	"portfolioai/pkg/domain"
	"portfolioai/pkg/store"
)

// SignUp registers a user and returns a session token for them.
func (a *App) SignUp(ctx context.Context, name, email, password string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if strings.TrimSpace(name) == "" || email == "" || password == "" {
		return "", ErrMissingFields
	}
	if err := auth.ValidatePassword(password); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}
	exists, err := a.store.HasUserEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return "", ErrEmailExists
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	user, err := domain.NewUser(name, email, hash)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingFields, err)
	}
	user, err = a.store.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return "", ErrEmailExists
		}
		return "", fmt.Errorf("create user: %w", err)
	}
	token, err := a.sessions.NewSession(user.Email)
	if err != nil {
		return "", fmt.Errorf("issue session: %w", err)
	}
	return token, nil
}

// Login validates credentials and issues a session token.
func (a *App) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", ErrMissingFields
	}
	user, ok, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.Email)
	if err != nil {
		return "", fmt.Errorf("issue session: %w", err)
	}
	return token, nil
}

// UserFromToken resolves the bearer token subject to a stored user.
func (a *App) UserFromToken(ctx context.Context, token string) (domain.User, error) {
	email, ok, err := a.sessions.GetSubjectByToken(token)
	if err != nil || !ok {
		return domain.User{}, ErrInvalidToken
	}
	return a.CurrentUser(ctx, email)
}

// CurrentUser loads the user identified by email.
func (a *App) CurrentUser(ctx context.Context, email string) (domain.User, error) {
	user, ok, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}
