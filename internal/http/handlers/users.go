package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/rentdesk/internal/actorctx"
	"github.com/geocoder89/rentdesk/internal/domain/user"
	"github.com/geocoder89/rentdesk/internal/security"
	"github.com/gin-gonic/gin"
)

type UsersStore interface {
	Create(ctx context.Context, nu user.NewUser, actor *int64) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
	List(ctx context.Context, filter user.ListFilter) ([]user.User, int, error)
	Update(ctx context.Context, u user.User, actor *int64) (user.User, error)
	Delete(ctx context.Context, id int64) error
}

type UsersHandler struct {
	repo UsersStore
}

func NewUsersHandler(repo UsersStore) *UsersHandler {
	return &UsersHandler{repo: repo}
}

// GET /user/
func (h *UsersHandler) List(ctx *gin.Context) {
	limit, offset, ok := parsePaging(ctx)
	if !ok {
		return
	}

	filter := user.ListFilter{
		Search: optionalString(ctx, "search"),
		Limit:  limit,
		Offset: offset,
	}
	if filter.IsActive, ok = optionalBool(ctx, "is_active"); !ok {
		return
	}
	if filter.IsStaff, ok = optionalBool(ctx, "is_staff"); !ok {
		return
	}

	items, total, err := h.repo.List(ctx.Request.Context(), filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, newPage(items, total, limit, offset))
}

// POST /user/
func (h *UsersHandler) Create(ctx *gin.Context) {
	var req user.CreateUserRequest
	if !BindJSON(ctx, &req) {
		return
	}

	// no password leaves the account without a usable one
	hash := ""
	if req.Password != "" {
		var err error
		if hash, err = security.HashPassword(req.Password); err != nil {
			RespondInternal(ctx, "Could not create user")
			return
		}
	}

	cctx := ctx.Request.Context()

	u, err := h.repo.Create(cctx, req.ToNewUser(hash), actorctx.Actor(cctx))
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, u)
}

// GET /user/:id/
func (h *UsersHandler) Get(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	u, err := h.repo.GetByID(ctx.Request.Context(), id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	RespondWithETag(ctx, u)
}

// PUT /user/:id/
func (h *UsersHandler) Update(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req user.UpdateUserRequest
	if !BindJSON(ctx, &req) {
		return
	}

	h.save(ctx, id, func(u user.User) user.User { return u.ApplyUpdate(req) })
}

// PATCH /user/:id/
func (h *UsersHandler) Patch(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req user.PatchUserRequest
	if !BindJSON(ctx, &req) {
		return
	}

	h.save(ctx, id, func(u user.User) user.User { return u.ApplyPatch(req) })
}

// DELETE /user/:id/
func (h *UsersHandler) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	if err := h.repo.Delete(ctx.Request.Context(), id); err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *UsersHandler) save(ctx *gin.Context, id int64, apply func(user.User) user.User) {
	cctx := ctx.Request.Context()

	current, err := h.repo.GetByID(cctx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	updated, err := h.repo.Update(cctx, apply(current), actorctx.Actor(cctx))
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *UsersHandler) respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	case errors.Is(err, user.ErrEmailTaken):
		RespondFieldError(ctx, "email", "unique", "user with this email already exists")
	default:
		slog.Default().ErrorContext(ctx.Request.Context(), "users store failed", "err", err)
		RespondInternal(ctx, "Could not process user")
	}
}
