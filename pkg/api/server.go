package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Weynie/van-construction-web-sub000/pkg/engine"
	"github.com/Weynie/van-construction-web-sub000/pkg/log"
	"github.com/Weynie/van-construction-web-sub000/pkg/metrics"
)

// Server is the local bridge between the engine and a UI process. It
// serves read-only views of the tree and streams every engine event.
type Server struct {
	engine   *engine.Engine
	mux      *http.ServeMux
	server   *http.Server
	upgrader websocket.Upgrader
	logger   zerolog.Logger
	version  string
	guard    guard
}

// NewServer creates a bridge for eng
func NewServer(eng *engine.Engine, version string, opts ...Option) *Server {
	s := &Server{
		engine:  eng,
		mux:     http.NewServeMux(),
		logger:  log.WithComponent("api"),
		version: version,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 32 * 1024,
			CheckOrigin:     sameOrigin,
		},
	}

	s.mux.HandleFunc("/health", s.healthHandler)
	s.mux.HandleFunc("/ready", s.readyHandler)
	s.mux.Handle("/metrics", metrics.Handler())
	s.mux.HandleFunc("GET /workspace", s.workspaceHandler)
	s.mux.HandleFunc("GET /projects/{id}", s.projectHandler)
	s.mux.HandleFunc("GET /pages/{id}", s.pageHandler)
	s.mux.HandleFunc("GET /tabs/{id}", s.tabHandler)
	s.mux.HandleFunc("GET /events", s.eventsHandler)

	for _, opt := range opts {
		opt(s)
	}

	metrics.RegisterComponent(metrics.ComponentBridge, true, "")
	return s
}

// Handler returns the HTTP handler for embedding in other servers
func (s *Server) Handler() http.Handler {
	return s.middleware(s.mux)
}

// Start serves on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 5 * time.Second,
		// No WriteTimeout: /events connections are long-lived
		IdleTimeout: 60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("Bridge listening")
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	metrics.UpdateComponent(metrics.ComponentBridge, false, err.Error())
	return err
}

// Shutdown stops accepting connections and waits for handlers to return
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// sameOrigin accepts non-browser clients and pages served from the same host
func sameOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	return strings.HasSuffix(origin, "://"+r.Host)
}
