package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/rentdesk/internal/actorctx"
	"github.com/geocoder89/rentdesk/internal/domain/product"
	"github.com/gin-gonic/gin"
)

type ProductsStore interface {
	Create(ctx context.Context, p product.Product, actor *int64) (product.Product, error)
	GetByID(ctx context.Context, id int64) (product.Product, error)
	List(ctx context.Context, filter product.ListFilter) ([]product.Product, int, error)
	Update(ctx context.Context, p product.Product, actor *int64) (product.Product, error)
	Delete(ctx context.Context, id int64) error
}

type ProductsHandler struct {
	repo ProductsStore
}

func NewProductsHandler(repo ProductsStore) *ProductsHandler {
	return &ProductsHandler{repo: repo}
}

// GET /product/
func (h *ProductsHandler) List(ctx *gin.Context) {
	limit, offset, ok := parsePaging(ctx)
	if !ok {
		return
	}

	filter := product.ListFilter{
		Search:      optionalString(ctx, "search"),
		ProductType: optionalString(ctx, "product_type"),
		Limit:       limit,
		Offset:      offset,
	}
	if filter.Availability, ok = optionalBool(ctx, "availability"); !ok {
		return
	}
	if filter.NeedingRepair, ok = optionalBool(ctx, "needing_repair"); !ok {
		return
	}

	items, total, err := h.repo.List(ctx.Request.Context(), filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, newPage(items, total, limit, offset))
}

// POST /product/
func (h *ProductsHandler) Create(ctx *gin.Context) {
	var req product.CreateProductRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx := ctx.Request.Context()

	p, err := h.repo.Create(cctx, product.NewFromCreateRequest(req), actorctx.Actor(cctx))
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, p)
}

// GET /product/:id/
func (h *ProductsHandler) Get(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	p, err := h.repo.GetByID(ctx.Request.Context(), id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	RespondWithETag(ctx, p)
}

// PUT /product/:id/
func (h *ProductsHandler) Update(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req product.UpdateProductRequest
	if !BindJSON(ctx, &req) {
		return
	}

	h.save(ctx, id, func(p product.Product) product.Product { return p.ApplyUpdate(req) })
}

// PATCH /product/:id/
func (h *ProductsHandler) Patch(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req product.PatchProductRequest
	if !BindJSON(ctx, &req) {
		return
	}

	h.save(ctx, id, func(p product.Product) product.Product { return p.ApplyPatch(req) })
}

// DELETE /product/:id/
func (h *ProductsHandler) Delete(ctx *gin.Context) {
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

func (h *ProductsHandler) save(ctx *gin.Context, id int64, apply func(product.Product) product.Product) {
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

func (h *ProductsHandler) respondError(ctx *gin.Context, err error) {
	if errors.Is(err, product.ErrNotFound) {
		RespondNotFound(ctx, "Product not found")
		return
	}

	slog.Default().ErrorContext(ctx.Request.Context(), "products store failed", "err", err)
	RespondInternal(ctx, "Could not process product")
}
