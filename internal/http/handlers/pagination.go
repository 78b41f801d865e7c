package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// Page is the list envelope shared by every collection endpoint.
type Page[T any] struct {
	Items  []T `json:"items"`
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func newPage[T any](items []T, count, limit, offset int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Count: count, Limit: limit, Offset: offset}
}

// parsePaging reads limit and offset. Limits above the maximum are clamped;
// non-numeric or negative values are rejected.
func parsePaging(ctx *gin.Context) (limit, offset int, ok bool) {
	limit = defaultPageLimit

	if raw := strings.TrimSpace(ctx.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			RespondBadRequest(ctx, "limit must be a positive integer", nil)
			return 0, 0, false
		}
		limit = min(n, maxPageLimit)
	}

	if raw := strings.TrimSpace(ctx.Query("offset")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			RespondBadRequest(ctx, "offset must be a non-negative integer", nil)
			return 0, 0, false
		}
		offset = n
	}

	return limit, offset, true
}

func optionalString(ctx *gin.Context, name string) *string {
	v := strings.TrimSpace(ctx.Query(name))
	if v == "" {
		return nil
	}
	return &v
}

func optionalBool(ctx *gin.Context, name string) (*bool, bool) {
	raw := strings.TrimSpace(ctx.Query(name))
	if raw == "" {
		return nil, true
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		RespondBadRequest(ctx, name+" must be true or false", nil)
		return nil, false
	}

	return &v, true
}

func parseID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id < 1 {
		RespondBadRequest(ctx, "id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}
