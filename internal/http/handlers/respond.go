package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/geocoder89/rentdesk/internal/oauth"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

// MessageResponse is the body of endpoints that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

// RespondFieldError reports a single invalid field in the same shape as
// binding failures.
func RespondFieldError(ctx *gin.Context, field, rule, message string) {
	RespondBadRequest(ctx, "Invalid request body", gin.H{
		"fields": []FieldError{{Field: field, Rule: rule, Message: message}},
	})
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

func RespondMessage(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, MessageResponse{Message: message})
}

// RespondUpstream relays a failed authorization server call. A rejected call
// is passed through with the upstream status and body; a transport failure
// becomes 502.
func RespondUpstream(ctx *gin.Context, err error) {
	var upErr *oauth.UpstreamError
	if !errors.As(err, &upErr) {
		RespondInternal(ctx, "Authorization request failed")
		return
	}

	if upErr.Unreachable() {
		RespondError(ctx, http.StatusBadGateway, "upstream_unavailable", "Authorization server is unavailable", nil)
		return
	}

	if json.Valid(upErr.Body) {
		ctx.Data(upErr.StatusCode, "application/json; charset=utf-8", upErr.Body)
		return
	}

	RespondError(ctx, upErr.StatusCode, "upstream_error", string(upErr.Body), nil)
}
