package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-edge/internal/audit"
	"github.com/nerrad567/gray-logic-edge/internal/connection"
	"github.com/nerrad567/gray-logic-edge/internal/gateway"
	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-edge/internal/orchestrator"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Orchestrator is the set of operations the API exposes.
// *orchestrator.Orchestrator implements it.
type Orchestrator interface {
	ProvisionGateway(ctx context.Context, req orchestrator.ProvisionRequest) (*orchestrator.ProvisionResult, error)
	DeprovisionGateway(ctx context.Context, name string) (*orchestrator.DeprovisionResult, error)
	AvailableDevices(ctx context.Context) ([]orchestrator.FleetDevice, error)
	StaleRecords(ctx context.Context) ([]gateway.Gateway, error)
	GetGateway(ctx context.Context, name string) (*gateway.Gateway, error)
	ListGateways(ctx context.Context, pageToken string, limit int) (*gateway.Page, error)
	ListGatewayConnections(ctx context.Context, gatewayName, pageToken string, limit int) (*connection.Page, error)
	ControlConnection(ctx context.Context, req *connection.Connection) (*orchestrator.ControlResult, error)
	GetConnection(ctx context.Context, name string) (*connection.Connection, error)
	ListConnections(ctx context.Context, pageToken string, limit int) (*connection.Page, error)
}

// HealthChecker reports whether a dependency is usable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// AuditLog queries the operations audit trail.
type AuditLog interface {
	List(ctx context.Context, filter audit.Filter) (*audit.ListResult, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config       config.APIConfig
	Logger       *logging.Logger
	Orchestrator Orchestrator

	// AuditLog serves /audit. The route is not registered when nil.
	AuditLog AuditLog

	// HealthChecks are reported by /health, keyed by component name.
	HealthChecks map[string]HealthChecker

	Version string
}

// Server is the HTTP API server for Gray Logic Edge.
//
// The server is created with New() and started with Start().
type Server struct {
	cfg     config.APIConfig
	logger  *logging.Logger
	orch    Orchestrator
	audit   AuditLog
	health  map[string]HealthChecker
	version string
	server  *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (logger, orchestrator)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}

	return &Server{
		cfg:     deps.Config,
		logger:  deps.Logger,
		orch:    deps.Orchestrator,
		audit:   deps.AuditLog,
		health:  deps.HealthChecks,
		version: deps.Version,
	}, nil
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
//
// Returns:
//   - error: Always nil; listener errors are logged
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
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
	if err := s.server.Shutdown(ctx); err != nil {
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
