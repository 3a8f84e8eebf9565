package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/CodeShin/backend/internal/api/http"
	"github.com/GriffinCanCode/CodeShin/backend/internal/api/middleware"
	"github.com/GriffinCanCode/CodeShin/backend/internal/api/ws"
	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/layout"
	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/sandbox"
	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/workspace"
	"github.com/GriffinCanCode/CodeShin/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/CodeShin/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/CodeShin/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/CodeShin/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/CodeShin/backend/internal/providers/practice"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	manager  *workspace.Manager
	backend  *practice.Client
	tracer   *tracing.Tracer
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
	registry *prometheus.Registry
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing CodeShin workspace server",
		zap.String("port", cfg.Server.Port),
		zap.String("backend_url", cfg.Backend.URL),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetricsWithRegistry(registry)
	logger.Info("Performance monitoring initialized")

	tracer := tracing.New("workspace", logger.Logger, 256)
	logger.Info("Request tracing initialized")

	backendCfg := practice.DefaultConfig()
	backendCfg.BaseURL = cfg.Backend.URL
	backendCfg.Timeout = cfg.Backend.Timeout.Std()
	backendCfg.MaxRetries = cfg.Backend.MaxRetries
	backendCfg.RateLimit = cfg.Backend.RequestsPerSec
	backendCfg.BreakerFailures = cfg.Backend.BreakerFailures
	backendCfg.BreakerTimeout = cfg.Backend.BreakerTimeout.Std()
	backend := practice.NewClient(backendCfg, logger.Logger, metrics)
	logger.Info("Practice backend client ready", zap.String("url", cfg.Backend.URL))

	manager := workspace.NewManager(
		workspaceConfig(cfg),
		loaderFactory(cfg, backend),
		backend.Providers(),
		logger.Logger,
	).WithMetrics(metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(tracing.HTTPMiddleware(tracer, middleware.RequestIDKey))
	router.Use(logging.Middleware(logger.Logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig().WithOrigins(cfg.Server.AllowedOrigins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limits := middleware.DefaultRateLimitConfig()
		limits.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limits.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(limits))
	}
	if cfg.Server.Gzip {
		// promhttp negotiates its own compression.
		router.Use(middleware.Gzip(gzip.DefaultCompression, "/metrics"))
	}

	handlers := apihttp.NewHandlers(manager, metrics, backend, logger.Logger)
	handlers.Register(router)

	wsHandler := ws.NewHandler(manager, metrics, logger.Logger, cfg.Server.AllowedOrigins)
	wsHandler.Register(router)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))
	router.GET("/metrics/json", func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.Snapshot())
	})
	router.Any("/debug/log/level", gin.WrapH(logger.LevelHandler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		manager:  manager,
		backend:  backend,
		tracer:   tracer,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		registry: registry,
	}, nil
}

func workspaceConfig(cfg *config.Config) workspace.Config {
	wsCfg := workspace.DefaultConfig()
	wsCfg.IdleTimeout = cfg.Workspace.IdleTimeout.Std()
	wsCfg.Preload = cfg.Sandbox.Preload
	wsCfg.EventBuffer = cfg.Workspace.EventBuffer
	wsCfg.RunSamples = cfg.Workspace.RunSamples
	wsCfg.Sandbox = sandbox.Config{
		ExecTimeout: cfg.Sandbox.ExecTimeout.Std(),
		LoadTimeout: cfg.Sandbox.LoadTimeout.Std(),
	}
	wsCfg.Layout = layout.Config{
		DefaultSizes:      cfg.Layout.DefaultSizes,
		TerminalSizes:     cfg.Layout.TerminalSizes,
		MinPanePx:         cfg.Layout.MinPanePx,
		MinTerminalPx:     cfg.Layout.MinTerminalPx,
		ContainerWidthPx:  cfg.Layout.ContainerWidthPx,
		ContainerHeightPx: cfg.Layout.ContainerHeightPx,
	}
	return wsCfg
}

// loaderFactory gives every workspace its own goja loader. A remote prelude
// is fetched through the backend client so it shares retries and metrics.
func loaderFactory(cfg *config.Config, backend *practice.Client) workspace.LoaderFactory {
	engineCfg := sandbox.DefaultEngineConfig()
	if cfg.Sandbox.MaxCallStack > 0 {
		engineCfg.MaxCallStackSize = cfg.Sandbox.MaxCallStack
	}
	engineCfg.PreludeURL = cfg.Sandbox.PreludeURL
	engineCfg.LibraryDir = cfg.Sandbox.LibraryDir
	if cfg.Sandbox.LibraryPattern != "" {
		engineCfg.LibraryPattern = cfg.Sandbox.LibraryPattern
	}

	return func() sandbox.Loader {
		return sandbox.NewGojaLoader(engineCfg, backend.FetchScript)
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	bg, stop := context.WithCancel(context.Background())
	defer stop()
	go s.metrics.RunUptime(bg)
	s.manager.StartJanitor(bg, s.config.Workspace.JanitorInterval.Std())

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		_ = s.Close()
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout.Std())
	defer cancel()

	// Close workspaces first so open streams end and Shutdown is not held
	// up by hijacked connections.
	s.manager.Shutdown()
	err := srv.Shutdown(shutdownCtx)
	_ = s.Close()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases the workspace manager and flushes traces and logs.
func (s *Server) Close() error {
	s.manager.Shutdown()
	s.tracer.Close()
	s.logger.Info("Server stopped")
	_ = s.logger.Sync()
	return nil
}
