// Package server wires the kernel, console hub, and metrics into the HTTP
// control plane and owns the listener lifecycle.
package server

import (
	"context"
	nethttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	api "github.com/microframe-os/microframe/internal/api/http"
	"github.com/microframe-os/microframe/internal/api/middleware"
	"github.com/microframe-os/microframe/internal/api/ws"
	"github.com/microframe-os/microframe/internal/console"
	"github.com/microframe-os/microframe/internal/infrastructure/config"
	"github.com/microframe-os/microframe/internal/infrastructure/monitoring"
	"github.com/microframe-os/microframe/internal/kernel"
	"github.com/microframe-os/microframe/internal/logging"
)

// Server wraps the HTTP control plane and its dependencies.
type Server struct {
	router  *gin.Engine
	kernel  *kernel.Kernel
	hub     *console.Hub
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
	httpSrv *nethttp.Server
}

// New assembles the control plane around a booted kernel.
func New(k *kernel.Kernel, hub *console.Hub, metrics *monitoring.Metrics, logger *logging.Logger, cfg *config.Config) *Server {
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := api.NewHandlers(k, hub)
	wsHandler := ws.NewHandler(hub, metrics, logger.Logger)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Process management
	router.GET("/processes", handlers.ListProcesses)
	router.GET("/processes/:pid", handlers.GetProcess)
	router.POST("/processes", handlers.SpawnProcess)
	router.DELETE("/processes/:pid", handlers.KillProcess)

	// Kernel introspection
	router.GET("/memory", handlers.Memory)
	router.GET("/ipc", handlers.IPC)
	router.GET("/modules", handlers.Modules)
	router.GET("/console", handlers.Console)

	// Machine driving
	router.POST("/syscall", handlers.Syscall)
	router.POST("/tick", handlers.Tick)

	// Console stream
	router.GET("/stream", wsHandler.HandleConnection)

	// Metrics
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		metrics.Registry(), promhttp.HandlerOpts{},
	)))

	return &Server{
		router:  router,
		kernel:  k,
		hub:     hub,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}
}

// Router exposes the engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	s.httpSrv = &nethttp.Server{Addr: addr, Handler: s.router}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Shutdown(ctx)
	}
	s.logger.Sync()
	return err
}
