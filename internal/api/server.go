package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/itz-ankit01/inbotiq-core/internal/audit"
	"github.com/itz-ankit01/inbotiq-core/internal/auth"
	"github.com/itz-ankit01/inbotiq-core/internal/infrastructure/config"
	"github.com/itz-ankit01/inbotiq-core/internal/infrastructure/logging"
	"github.com/itz-ankit01/inbotiq-core/internal/infrastructure/metrics"
	"github.com/itz-ankit01/inbotiq-core/internal/origin"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// readinessTimeout bounds each readiness check.
const readinessTimeout = 3 * time.Second

// HealthCheckFunc reports whether a dependency is usable.
type HealthCheckFunc func(ctx context.Context) error

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	Logger  *logging.Logger
	Auth    *auth.Service
	Origins *origin.Policy
	Metrics *metrics.Metrics // optional; /api/metrics is not mounted without it
	Audit   audit.Repository // optional; /api/audit is not mounted without it
	Version string

	// Checks are run by /api/health/ready, keyed by component name.
	Checks map[string]HealthCheckFunc
}

// Server is the HTTP API server for Inbotiq Core.
//
// The server is created with New() and started with Start() on a listener
// obtained from Listen().
type Server struct {
	cfg     config.APIConfig
	logger  *logging.Logger
	auth    *auth.Service
	origins *origin.Policy
	metrics *metrics.Metrics
	audit   audit.Repository
	version string
	checks  map[string]HealthCheckFunc

	server *http.Server
	addr   string
	errCh  chan error
	done   chan struct{}
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth service is required")
	}
	if deps.Origins == nil {
		return nil, fmt.Errorf("origin policy is required")
	}

	return &Server{
		cfg:     deps.Config,
		logger:  deps.Logger,
		auth:    deps.Auth,
		origins: deps.Origins,
		metrics: deps.Metrics,
		audit:   deps.Audit,
		version: deps.Version,
		checks:  deps.Checks,
		errCh:   make(chan error, 1),
	}, nil
}

// Handler returns the fully wired router. Start uses it; tests can drive it
// directly with httptest.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start serves HTTP on ln in a background goroutine. The listener is owned
// by the server from this point and closed by Close.
//
// Serve errors other than a normal shutdown are logged and delivered on Err.
func (s *Server) Start(ctx context.Context, ln net.Listener) error {
	if ln == nil {
		return fmt.Errorf("listener is required")
	}
	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}
	s.addr = ln.Addr().String()
	s.done = make(chan struct{})

	s.logger.Info("API server listening", "address", s.addr)

	go func() {
		defer close(s.done)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
			s.errCh <- err
		}
	}()

	return nil
}

// Err reports a fatal serve error. It never fires after a clean Close.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	return s.addr
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	err := s.server.Shutdown(ctx)
	<-s.done
	if err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
