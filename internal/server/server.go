// Package server exposes the dashboard REST API.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"zapview/internal/analytics"
	"zapview/internal/config"
	"zapview/internal/db"
	"zapview/internal/ingest"
	"zapview/internal/insight"
)

// VersionInfo holds build-time version metadata.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// Server is the HTTP server behind the dashboard frontend.
type Server struct {
	mu      sync.RWMutex
	cfg     config.Config
	svc     *analytics.Service
	db      *db.DB
	engine  *ingest.Engine
	log     zerolog.Logger
	mux     *http.ServeMux
	httpSrv *http.Server
	version VersionInfo

	generateFunc insight.GenerateFunc

	// handlerDelay is injected before each timeout-wrapped
	// handler, used only by tests to guarantee handlers
	// exceed a short timeout. Zero in production.
	handlerDelay time.Duration
}

// New creates a new Server.
func New(
	cfg config.Config, svc *analytics.Service, database *db.DB,
	engine *ingest.Engine, log zerolog.Logger, opts ...Option,
) *Server {
	s := &Server{
		cfg:          cfg,
		svc:          svc,
		db:           database,
		engine:       engine,
		log:          log,
		mux:          http.NewServeMux(),
		generateFunc: insight.Generate,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the build-time version metadata.
func WithVersion(v VersionInfo) Option {
	return func(s *Server) { s.version = v }
}

// WithGenerateFunc overrides the insight responder, allowing
// tests to substitute a stub. Nil is ignored.
func WithGenerateFunc(f insight.GenerateFunc) Option {
	return func(s *Server) {
		if f != nil {
			s.generateFunc = f
		}
	}
}

func (s *Server) routes() {
	s.mux.Handle("GET /api/v1/conversations", s.withTimeout(s.handleListConversations))
	s.mux.Handle("GET /api/v1/conversations/{id}", s.withTimeout(s.handleGetConversation))

	s.mux.Handle("GET /api/v1/dashboard/overview", s.withTimeout(s.handleOverview))
	s.mux.Handle("GET /api/v1/dashboard/summary", s.withTimeout(s.handleSummary))
	s.mux.Handle("GET /api/v1/dashboard/daily", s.withTimeout(s.handleDaily))
	s.mux.Handle("GET /api/v1/dashboard/hourly", s.withTimeout(s.handleHourly))
	s.mux.Handle("GET /api/v1/dashboard/area-codes", s.withTimeout(s.handleAreaCodes))

	s.mux.Handle("GET /api/v1/insights", s.withTimeout(s.handleListInsights))
	s.mux.Handle("GET /api/v1/insights/{id}", s.withTimeout(s.handleGetInsight))
	s.mux.Handle("DELETE /api/v1/insights/{id}", s.withTimeout(s.handleDeleteInsight))
	s.mux.Handle("POST /api/v1/insights", s.withTimeout(s.handleCreateInsight))

	s.mux.Handle("GET /api/v1/contacts/{phone}", s.withTimeout(s.handleGetContact))

	s.mux.Handle("GET /api/v1/products", s.withTimeout(s.handleListProducts))
	s.mux.Handle("POST /api/v1/products", s.withTimeout(s.handleCreateProduct))
	s.mux.Handle("GET /api/v1/products/{id}", s.withTimeout(s.handleGetProduct))
	s.mux.Handle("PUT /api/v1/products/{id}", s.withTimeout(s.handleUpdateProduct))
	s.mux.Handle("DELETE /api/v1/products/{id}", s.withTimeout(s.handleDeleteProduct))

	s.mux.Handle("GET /api/v1/stats", s.withTimeout(s.handleGetStats))
	s.mux.Handle("GET /api/v1/version", s.withTimeout(s.handleGetVersion))
	s.mux.Handle("GET /api/v1/healthz", s.withTimeout(s.handleHealthz))
	s.mux.HandleFunc("POST /api/v1/sync", s.handleTriggerSync)
	s.mux.Handle("GET /api/v1/sync/status", s.withTimeout(s.handleSyncStatus))
}

func (s *Server) handleGetVersion(
	w http.ResponseWriter, _ *http.Request,
) {
	writeJSON(w, http.StatusOK, s.version)
}

func (s *Server) handleHealthz(
	w http.ResponseWriter, _ *http.Request,
) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SetPort updates the listen port (for testing).
func (s *Server) SetPort(port int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Port = port
}

// Handler returns the http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.logMiddleware(s.mux))
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()
	s.log.Info().Str("addr", addr).Msg("starting server")
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.httpSrv
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// FindAvailablePort finds an available port starting from the
// given port, binding to the specified host.
func FindAvailablePort(host string, start int) int {
	for port := start; port < start+100; port++ {
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			ln.Close()
			return port
		}
	}
	return start
}
