package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/rentdesk/internal/actorctx"
	"github.com/geocoder89/rentdesk/internal/auth"
	"github.com/geocoder89/rentdesk/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// UserLookup resolves a verified principal to a stored account.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type AuthMiddleware struct {
	verifier auth.Verifier
	users    UserLookup
}

func NewAuthMiddleware(verifier auth.Verifier, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, users: users}
}

// RequireAuth rejects requests without a valid bearer token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "Authentication credentials were not provided")
			return
		}

		if m.authenticate(c) {
			c.Next()
		}
	}
}

// OptionalAuth identifies the caller when a bearer token is sent and lets
// anonymous requests through. A token that fails verification is still 401.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}

		if m.authenticate(c) {
			c.Next()
		}
	}
}

func (m *AuthMiddleware) authenticate(c *gin.Context) bool {
	raw, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		abortJSON(c, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
		return false
	}

	reqCtx := c.Request.Context()

	principal, err := m.verifier.Verify(reqCtx, raw)
	if err != nil {
		if errors.Is(err, auth.ErrUnavailable) {
			slog.Default().WarnContext(reqCtx, "token verification unavailable", "err", err)
			abortJSON(c, http.StatusServiceUnavailable, "auth_unavailable", "Could not verify access token")
			return false
		}
		abortJSON(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired access token")
		return false
	}

	u, err := m.users.GetByEmail(reqCtx, user.NormalizeEmail(principal.Email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "User not found")
			return false
		}
		slog.Default().ErrorContext(reqCtx, "auth user lookup failed", "err", err)
		abortJSON(c, http.StatusInternalServerError, "internal_error", "Could not authenticate request")
		return false
	}

	if !u.IsActive {
		abortJSON(c, http.StatusUnauthorized, "unauthorized", "User inactive or deleted")
		return false
	}

	c.Set(CtxUserID, u.ID)
	c.Set(CtxEmail, u.Email)
	c.Request = c.Request.WithContext(actorctx.WithUserID(reqCtx, u.ID))

	return true
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}

// UserIDFromContext returns the authenticated caller's id.
func UserIDFromContext(c *gin.Context) (int64, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func abortJSON(c *gin.Context, status int, code, message string) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if id, ok := c.Get(CtxRequestID); ok {
		body["requestId"] = id
	}

	c.AbortWithStatusJSON(status, gin.H{"error": body})
}
