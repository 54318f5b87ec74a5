package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gridpreview/pkg/logger"
)

// Pinger is implemented by dependencies that can report readiness
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthController serves liveness and readiness probes
type HealthController struct {
	deps map[string]Pinger
	log  logger.Logger
}

// NewHealthController checks deps on /ready
func NewHealthController(deps map[string]Pinger, log logger.Logger) *HealthController {
	return &HealthController{deps: deps, log: log}
}

func (h *HealthController) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/ready", h.ready)
}

func (h *HealthController) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthController) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			h.log.WithError(err).WarnWithFields("Dependency not ready", map[string]interface{}{
				"dependency": name,
			})
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  name + " unavailable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
