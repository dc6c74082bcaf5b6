package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-caseta/internal/audit"
	"github.com/nerrad567/gray-logic-caseta/internal/hub"
	"github.com/nerrad567/gray-logic-caseta/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-caseta/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Database is the part of the database the API reports on.
// Implemented by *database.DB.
type Database interface {
	HealthCheck(ctx context.Context) error
	Stats() sql.DBStats
}

// BrokerStatus reports the MQTT connection. Implemented by *mqtt.Client.
type BrokerStatus interface {
	IsConnected() bool
}

// BridgeCounter reports how many bridges are connected.
// Implemented by *caseta.BridgeRegistry.
type BridgeCounter interface {
	Len() int
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	Logger  *logging.Logger
	Hub     *hub.Hub
	DB      Database         // optional
	MQTT    BrokerStatus     // optional
	Bridges BridgeCounter    // optional
	Audit   audit.Repository // optional
	Version string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes and middleware.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	hub       *hub.Hub
	db        Database
	mqtt      BrokerStatus
	bridges   BridgeCounter
	version   string
	startTime time.Time
	server    *http.Server
	addr      string

	auditRepo audit.Repository
	auditCh   chan *audit.AuditLog
	auditWG   sync.WaitGroup
	stopAudit context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Hub == nil {
		return nil, fmt.Errorf("hub is required")
	}

	srv := &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		hub:       deps.Hub,
		db:        deps.DB,
		mqtt:      deps.MQTT,
		bridges:   deps.Bridges,
		version:   deps.Version,
		startTime: time.Now(),
		auditRepo: deps.Audit,
	}
	if deps.Audit != nil {
		srv.auditCh = make(chan *audit.AuditLog, auditChanSize)
	}
	return srv, nil
}

// Start begins listening for HTTP connections.
//
// The listener is bound before Start returns, so a port conflict is
// reported here rather than logged from the background goroutine.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}
	s.addr = ln.Addr().String()
	s.logger.Info("API server starting", "address", s.addr)

	s.startAuditDrain(ctx)

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the address the server listens on, once started.
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
	s.stopAuditDrain()
	if err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
