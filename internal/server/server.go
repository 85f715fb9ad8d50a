package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/airlock-sh/airlock/internal/audit"
	"github.com/airlock-sh/airlock/internal/engine/service"
	"github.com/airlock-sh/airlock/pkg/core/health"
	"github.com/airlock-sh/airlock/pkg/core/logging"
)

// Server is the HTTP/WebSocket gateway in front of the engine.
type Server struct {
	httpServer *http.Server
	handler    *Handler
	health     *health.Registry
	logger     *logging.Logger
	config     Config
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Version      string
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Host:         "127.0.0.1",
		Port:         8980,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		Version:      "dev",
	}
}

// New wires the gateway around an engine service and its trail.
func New(cfg Config, svc *service.Service) *Server {
	logger := logging.New("gateway")

	h := NewHandler(svc, logger.With("component", "api"))
	ws := NewAuditStreamHandler(svc.Trail(), logger.With("component", "audit-stream"))

	healthRegistry := health.NewRegistry("airlock", cfg.Version)
	healthRegistry.Register(health.AlwaysHealthy("http"))
	healthRegistry.RegisterFunc("trail", trailCheck(svc.Trail()))

	mux := http.NewServeMux()
	h.Routes(mux)
	mux.Handle("GET /ws/audit", ws)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		report := healthRegistry.Check(r.Context())
		status := http.StatusOK
		if report.Status != health.StatusHealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      loggingMiddleware(logger, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		httpServer: httpServer,
		handler:    h,
		health:     healthRegistry,
		logger:     logger,
		config:     cfg,
	}
}

// trailCheck verifies the audit trail answers queries.
func trailCheck(trail audit.Trail) func(context.Context) health.CheckResult {
	return func(ctx context.Context) health.CheckResult {
		if _, err := trail.Query(ctx, audit.Filter{Limit: 1}); err != nil {
			return health.CheckResult{
				Name:    "trail",
				Status:  health.StatusUnhealthy,
				Message: err.Error(),
			}
		}
		return health.CheckResult{
			Name:    "trail",
			Status:  health.StatusHealthy,
			Message: "audit trail reachable",
		}
	}
}

// loggingMiddleware adds request logging
func loggingMiddleware(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.statusCode,
			"duration", time.Since(start).String(),
		)
	})
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWrapper) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher for streaming responses
func (w *responseWrapper) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack implements http.Hijacker so the WebSocket upgrade on /ws/audit
// works behind the logging middleware.
func (w *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// Start starts the server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("starting gateway", "host", s.config.Host, "port", s.config.Port)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping gateway")
	return s.httpServer.Shutdown(ctx)
}

// Address returns the listen address.
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// HealthRegistry returns the health check registry.
func (s *Server) HealthRegistry() *health.Registry {
	return s.health
}
