package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/rentdesk/internal/domain/user"
	"github.com/geocoder89/rentdesk/internal/security"
)

type SuperuserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, nu user.NewUser, actor *int64) (user.User, error)
}

// EnsureSuperuser creates an active staff superuser unless one with the same
// email already exists. created reports whether a row was inserted.
func EnsureSuperuser(ctx context.Context, store SuperuserStore, email, password string) (created bool, err error) {
	if email == "" || password == "" {
		return false, nil
	}

	email = user.NormalizeEmail(email)

	_, err = store.GetByEmail(ctx, email)

	if err == nil {
		return false, nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return false, err
	}

	hash, err := security.HashPassword(password)

	if err != nil {
		return false, fmt.Errorf("hash superuser password: %w", err)
	}

	_, err = store.Create(ctx, user.NewUser{
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      true,
		IsSuperuser:  true,
	}, nil)

	if err != nil {
		return false, err
	}

	return true, nil
}
