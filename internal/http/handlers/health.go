package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]Check
}

func NewHealthHandler(checks map[string]Check) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz pings every dependency and reports 503 while any of them fails.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	results := make(gin.H, len(h.checks))
	ready := true

	for name, check := range h.checks {
		cctx, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
		err := check(cctx)
		cancel()

		if err != nil {
			ready = false
			results[name] = "down"
			continue
		}
		results[name] = "up"
	}

	if !ready {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": results})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ready", "checks": results})
}
