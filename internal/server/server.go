package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/GriffinCanCode/podshell/internal/app"
	"github.com/GriffinCanCode/podshell/internal/config"
	"github.com/GriffinCanCode/podshell/internal/events"
	handlers "github.com/GriffinCanCode/podshell/internal/http"
	"github.com/GriffinCanCode/podshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/podshell/internal/kube"
	"github.com/GriffinCanCode/podshell/internal/logging"
	"github.com/GriffinCanCode/podshell/internal/middleware"
	"github.com/GriffinCanCode/podshell/internal/session"
	"github.com/GriffinCanCode/podshell/internal/terminal"
	"github.com/GriffinCanCode/podshell/internal/ws"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// drainTimeout bounds how long shutdown waits for queued events
const drainTimeout = 2 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	http     *http.Server
	app      *app.Manager
	sessions *session.Manager
	bus      *events.Bus
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// Option overrides a dependency. Used by tests.
type Option func(*deps)

type deps struct {
	clusters app.Clusters
	spawner  terminal.Spawner
	registry *prometheus.Registry
}

// WithClusters replaces the kubeconfig-backed context provider
func WithClusters(c app.Clusters) Option {
	return func(d *deps) { d.clusters = c }
}

// WithSpawner replaces the PTY spawner
func WithSpawner(s terminal.Spawner) Option {
	return func(d *deps) { d.spawner = s }
}

// WithRegistry uses reg for metrics instead of a fresh registry
func WithRegistry(reg *prometheus.Registry) Option {
	return func(d *deps) { d.registry = reg }
}

// NewServer creates a new server instance. A kubeconfig that fails to load
// is not fatal: the server starts without contexts and reports the failure
// to every WebSocket client.
func NewServer(cfg *config.Config, logger *logging.Logger, opts ...Option) (*Server, error) {
	d := deps{}
	for _, opt := range opts {
		opt(&d)
	}

	logger.Info("Initializing podshell server",
		zap.String("port", cfg.Server.Port),
		zap.String("command", cfg.Terminal.Command),
	)

	// Initialize metrics first (needed by other components)
	reg := d.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	metrics := monitoring.NewMetrics(reg)

	var loadErr error
	clusters := d.clusters
	if clusters == nil {
		loaded, err := kube.Load(cfg.Kube.ConfigPath, logger)
		if err != nil {
			logger.Warn("Failed to load kubeconfig", zap.Error(err))
			loadErr = err
			loaded = kube.New(nil, logger)
		}
		clusters = loaded
	}

	spawner := d.spawner
	if spawner == nil {
		spawner = terminal.NewPTYSpawner(logger)
	}

	bus := events.NewBus(logger)
	sessions := session.NewManager(session.Config{
		Command:         cfg.Terminal.Command,
		Shell:           cfg.Terminal.Shell,
		Namespace:       cfg.Kube.DefaultNamespace,
		WorkingDir:      cfg.Terminal.WorkingDir,
		ScrollbackBytes: cfg.Terminal.ScrollbackBytes,
	}, spawner, clusters, bus, logger, metrics)

	appManager := app.NewManager(app.Options{
		Clusters:         clusters,
		LoadError:        loadErr,
		Sessions:         sessions,
		Bus:              bus,
		Metrics:          metrics,
		Logger:           logger,
		DefaultNamespace: cfg.Kube.DefaultNamespace,
	})
	if cfg.Kube.AutoSelect && loadErr == nil {
		if err := appManager.SelectInitial(); err != nil {
			logger.Warn("Failed to select initial context", zap.Error(err))
		}
	}

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowedOrigins...)))
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

	// Create handlers
	h := handlers.NewHandlers(appManager, metrics)
	wsCfg := ws.DefaultConfig()
	wsCfg.AllowedOrigins = cfg.Server.AllowedOrigins
	wsCfg.InputPerSecond = cfg.RateLimit.InputPerSecond
	wsCfg.InputBurst = cfg.RateLimit.InputBurst
	wsHandler := ws.NewHandler(appManager, metrics, logger, wsCfg)

	// Register routes
	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	// Cluster contexts
	router.GET("/contexts", h.ListContexts)
	router.PUT("/contexts/current", h.SwitchContext)
	router.GET("/pods", h.ListPods)

	// Terminal sessions
	router.GET("/sessions", h.ListSessions)
	router.POST("/sessions", h.CreateSession)
	router.GET("/sessions/:namespace/:pod", h.GetSession)
	router.DELETE("/sessions/:namespace/:pod", h.CloseSession)
	router.GET("/sessions/:namespace/:pod/scrollback", h.Scrollback)

	// WebSocket
	router.GET("/stream", wsHandler.HandleConnection)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		app:      appManager,
		sessions: sessions,
		bus:      bus,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the HTTP server and blocks until Shutdown
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes every terminal session, flushes their exit events to
// connected clients and stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	termCtx, cancel := context.WithTimeout(ctx, s.config.Terminal.ShutdownTimeout)
	sessErr := s.sessions.Shutdown(termCtx)
	cancel()
	if sessErr != nil {
		s.logger.Warn("Terminals did not exit in time", zap.Error(sessErr))
	}

	drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
	if err := s.bus.Drain(drainCtx); err != nil {
		s.logger.Warn("Undelivered events at shutdown", zap.Int("pending", s.bus.Pending()))
	}
	cancel()

	err := s.http.Shutdown(ctx)
	if err != nil {
		s.logger.Error("Failed to stop HTTP server", zap.Error(err))
	}

	// Sync logger before exit
	_ = s.logger.Sync()
	return errors.Join(sessErr, err)
}
