package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const serviceName = "zora-api"

type HealthHandler struct {
	ping func(ctx context.Context) error
}

// NewHealthHandler takes the database ping. A nil ping means no database is
// in use (manifest-backed catalog).
func NewHealthHandler(ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{ping: ping}
}

func (h *HealthHandler) Health(ctx *gin.Context) {
	if h.ping == nil {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName, "database": "disabled"})
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
	defer cancel()

	if err := h.ping(cctx); err != nil {
		_ = ctx.Error(err)
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "service": serviceName, "database": "unavailable"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName, "database": "connected"})
}
