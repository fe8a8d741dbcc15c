package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"chantierpro/internal/domain"
	"chantierpro/internal/repo"
)

// UserCreateOptions seed a user record. Registration proper lives in the
// identity subsystem; this path backs the admin CLI.
type UserCreateOptions struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Role      domain.Role
}

func (e Engine) CreateUser(ctx context.Context, opts UserCreateOptions) (domain.User, error) {
	if !opts.Role.Valid() {
		return domain.User{}, fmt.Errorf("role %s: %w", opts.Role, ErrInvalidInput)
	}
	if strings.TrimSpace(opts.Email) == "" || strings.TrimSpace(opts.FirstName) == "" || strings.TrimSpace(opts.LastName) == "" {
		return domain.User{}, fmt.Errorf("first name, last name and email are required: %w", ErrInvalidInput)
	}
	u := domain.User{
		ID:        uuid.NewString(),
		FirstName: opts.FirstName,
		LastName:  opts.LastName,
		Email:     strings.ToLower(strings.TrimSpace(opts.Email)),
		Phone:     opts.Phone,
		Role:      opts.Role,
		IsActive:  true,
		CreatedAt: e.nowRFC3339(),
	}
	if err := e.Repo.InsertUser(ctx, u); err != nil {
		if repo.IsUniqueViolation(err) {
			return domain.User{}, fmt.Errorf("email %s taken: %w", u.Email, ErrConflict)
		}
		return domain.User{}, err
	}
	return u, nil
}

// Identity resolves a user id into the caller identity used by every policy
// check. Role and activity always come from storage.
func (e Engine) Identity(ctx context.Context, userID string) (domain.Identity, error) {
	u, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{ID: u.ID, Role: u.Role, Active: u.IsActive}, nil
}

// CreateAPIKey mints a raw key, stores only its hash and returns the raw
// value once.
func (e Engine) CreateAPIKey(ctx context.Context, userID, name string) (domain.APIKey, string, error) {
	if _, err := e.Repo.GetUser(ctx, userID); err != nil {
		if err == repo.ErrNotFound {
			return domain.APIKey{}, "", fmt.Errorf("user %s not found: %w", userID, ErrInvalidInput)
		}
		return domain.APIKey{}, "", err
	}
	raw := uuid.NewString() + uuid.NewString()
	key := domain.APIKey{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		KeyHash:   repo.HashAPIKey(raw),
		CreatedAt: e.nowRFC3339(),
	}
	if err := e.Repo.InsertAPIKey(ctx, nil, key); err != nil {
		return domain.APIKey{}, "", err
	}
	return key, raw, nil
}
