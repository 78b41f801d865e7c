package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/rentdesk/internal/account"
	"github.com/geocoder89/rentdesk/internal/domain/user"
	"github.com/geocoder89/rentdesk/internal/http/middlewares"
	"github.com/geocoder89/rentdesk/internal/oauth"
	"github.com/geocoder89/rentdesk/internal/security"
	"github.com/gin-gonic/gin"
)

type AccountService interface {
	Register(ctx context.Context, req user.RegisterRequest) (oauth.TokenResponse, error)
	Login(ctx context.Context, req user.LoginRequest) (oauth.TokenResponse, error)
	Logout(ctx context.Context, token string)
	ResetPassword(ctx context.Context, userID int64, req user.PasswordResetRequest) error
}

// ProfileStore is what the caller's own profile endpoints need.
type ProfileStore interface {
	GetByID(ctx context.Context, id int64) (user.User, error)
	UpdateProfile(ctx context.Context, id int64, email, hash *string, actor *int64) (user.User, error)
}

type AuthHandler struct {
	accounts AccountService
	profiles ProfileStore
}

func NewAuthHandler(accounts AccountService, profiles ProfileStore) *AuthHandler {
	return &AuthHandler{accounts: accounts, profiles: profiles}
}

// POST /user/oauth/create/
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest
	if !BindJSON(ctx, &req) {
		return
	}

	res, err := h.accounts.Register(ctx.Request.Context(), req)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondFieldError(ctx, "email", "unique", "user with this email already exists")
			return
		}
		h.respondTokenError(ctx, "register failed", err)
		return
	}

	ctx.JSON(http.StatusOK, res)
}

// POST /user/oauth/login/
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest
	if !BindJSON(ctx, &req) {
		return
	}

	res, err := h.accounts.Login(ctx.Request.Context(), req)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			RespondError(ctx, http.StatusBadRequest, "invalid_credentials", "Incorrect ID or password", nil)
			return
		}
		h.respondTokenError(ctx, "login failed", err)
		return
	}

	ctx.JSON(http.StatusOK, res)
}

// POST /user/oauth/logout/
func (h *AuthHandler) Logout(ctx *gin.Context) {
	var req user.LogoutRequest
	if !BindJSON(ctx, &req) {
		return
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		RespondFieldError(ctx, "token", "required", validationMessage("required", ""))
		return
	}

	h.accounts.Logout(ctx.Request.Context(), token)

	RespondMessage(ctx, http.StatusOK, "Successfully logged out.")
}

// POST /user/password/reset/
func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Authentication credentials were not provided")
		return
	}

	var req user.PasswordResetRequest
	if !BindJSON(ctx, &req) {
		return
	}

	err := h.accounts.ResetPassword(ctx.Request.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrPasswordMismatch):
			RespondError(ctx, http.StatusBadRequest, "password_mismatch", "Password don't match", nil)
		case errors.Is(err, user.ErrNotFound):
			RespondBadRequest(ctx, "User not found", nil)
		default:
			slog.Default().ErrorContext(ctx.Request.Context(), "password reset failed", "err", err)
			RespondInternal(ctx, "Could not change password")
		}
		return
	}

	RespondMessage(ctx, http.StatusOK, "Password was changed successfully")
}

// GET /user/me/update/
func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Authentication credentials were not provided")
		return
	}

	u, err := h.profiles.GetByID(ctx.Request.Context(), userID)
	if err != nil {
		h.respondUserError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, u)
}

// PATCH /user/me/update/
func (h *AuthHandler) UpdateMe(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Authentication credentials were not provided")
		return
	}

	var req user.ProfileUpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	var email, hash *string
	if req.Email != nil {
		normalized := user.NormalizeEmail(*req.Email)
		email = &normalized
	}
	if req.Password != nil {
		hashed, err := security.HashPassword(*req.Password)
		if err != nil {
			RespondInternal(ctx, "Could not update password")
			return
		}
		hash = &hashed
	}

	u, err := h.profiles.UpdateProfile(ctx.Request.Context(), userID, email, hash, &userID)
	if err != nil {
		h.respondUserError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *AuthHandler) respondTokenError(ctx *gin.Context, msg string, err error) {
	var upErr *oauth.UpstreamError
	if errors.As(err, &upErr) {
		slog.Default().WarnContext(ctx.Request.Context(), msg, "err", err)
		RespondUpstream(ctx, err)
		return
	}

	slog.Default().ErrorContext(ctx.Request.Context(), msg, "err", err)
	RespondInternal(ctx, "Could not complete request")
}

func (h *AuthHandler) respondUserError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	case errors.Is(err, user.ErrEmailTaken):
		RespondFieldError(ctx, "email", "unique", "user with this email already exists")
	default:
		slog.Default().ErrorContext(ctx.Request.Context(), "user store failed", "err", err)
		RespondInternal(ctx, "Could not process user")
	}
}
