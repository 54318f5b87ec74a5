package server

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"gridpreview/pkg/config"
	"gridpreview/pkg/logger"
)

// Controller registers its routes on the router
type Controller interface {
	RegisterRoutes(router *gin.Engine)
}

// NewRouter builds the gin engine with recovery, optional request logging and
// every controller's routes
func NewRouter(cfg config.ServerConfig, log logger.Logger, controllers ...Controller) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(RecoveryLogger(log))
	if cfg.RequestLogging {
		router.Use(RequestLogger())
	}

	for _, controller := range controllers {
		controller.RegisterRoutes(router)
	}
	return router
}

// NewHTTPServer wraps NewRouter in an http.Server using the configured timeouts
func NewHTTPServer(cfg config.ServerConfig, log logger.Logger, controllers ...Controller) *http.Server {
	return &http.Server{
		Handler:           NewRouter(cfg, log, controllers...),
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
