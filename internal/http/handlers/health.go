package handlers

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is a dependency the readiness probe checks, such as the database
// pool or the token cache.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	checks   map[string]Pinger
	draining atomic.Bool
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Drain makes readiness fail so load balancers stop routing here before
// the server shuts down.
func (h *HealthHandler) Drain() {
	h.draining.Store(true)
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.draining.Load() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
	defer cancel()

	results := make(gin.H, len(h.checks))
	ready := true

	for name, ping := range h.checks {
		if ping == nil {
			continue
		}
		if err := ping(cctx); err != nil {
			results[name] = err.Error()
			ready = false
			continue
		}
		results[name] = "ok"
	}

	if !ready {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": results})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready", "checks": results})
}
