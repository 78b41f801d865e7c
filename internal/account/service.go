// Package account implements registration, login, logout and password
// changes. Token issuance is delegated to the external authorization server.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/rentdesk/internal/domain/user"
	"github.com/geocoder89/rentdesk/internal/oauth"
	"github.com/geocoder89/rentdesk/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrPasswordMismatch   = errors.New("old password does not match")
)

type UserStore interface {
	Create(ctx context.Context, nu user.NewUser, actor *int64) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	SetPassword(ctx context.Context, id int64, hash string, actor *int64) error
	RecordLogin(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

type TokenIssuer interface {
	PasswordGrant(ctx context.Context, username, password string) (oauth.TokenResponse, error)
	Revoke(ctx context.Context, token string) error
}

// TokenForgetter drops cached verification state for a revoked token.
type TokenForgetter interface {
	Forget(ctx context.Context, token string)
}

type Service struct {
	users        UserStore
	tokens       TokenIssuer
	forget       TokenForgetter
	loginTimeout time.Duration
	log          *slog.Logger
}

func NewService(users UserStore, tokens TokenIssuer, forget TokenForgetter, loginTimeout time.Duration, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		users:        users,
		tokens:       tokens,
		forget:       forget,
		loginTimeout: loginTimeout,
		log:          log,
	}
}

// Register creates an active staff account and logs it in. If the token
// request fails the account is removed again so the email stays available.
func (s *Service) Register(ctx context.Context, req user.RegisterRequest) (oauth.TokenResponse, error) {
	email := user.NormalizeEmail(req.Email)

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(ctx, user.NewUser{
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      true,
	}, nil)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.PasswordGrant(ctx, email, req.Password)
	if err != nil {
		if delErr := s.users.Delete(ctx, u.ID); delErr != nil {
			s.log.ErrorContext(ctx, "register rollback failed", "user_id", u.ID, "err", delErr)
		}
		return nil, err
	}

	token["id"] = u.ID

	s.log.InfoContext(ctx, "user registered", "user_id", u.ID)

	return token, nil
}

// Login checks credentials locally before asking the authorization server
// for a token, bounded by the login timeout.
func (s *Service) Login(ctx context.Context, req user.LoginRequest) (oauth.TokenResponse, error) {
	email := user.NormalizeEmail(req.Email)

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !u.IsActive {
		return nil, ErrInvalidCredentials
	}

	if err := security.CheckPassword(u.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.users.RecordLogin(ctx, u.ID); err != nil {
		return nil, err
	}

	if s.loginTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.loginTimeout)
		defer cancel()
	}

	return s.tokens.PasswordGrant(ctx, email, req.Password)
}

// Logout revokes token. The revoke outcome is not reported to the caller.
func (s *Service) Logout(ctx context.Context, token string) {
	if s.forget != nil {
		s.forget.Forget(ctx, token)
	}

	if err := s.tokens.Revoke(ctx, token); err != nil {
		s.log.WarnContext(ctx, "token revoke failed", "err", err)
	}
}

// ResetPassword replaces the caller's password after checking the old one.
func (s *Service) ResetPassword(ctx context.Context, userID int64, req user.PasswordResetRequest) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := security.CheckPassword(u.PasswordHash, req.OldPassword); err != nil {
		return ErrPasswordMismatch
	}

	hash, err := security.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.users.SetPassword(ctx, userID, hash, &userID)
}
