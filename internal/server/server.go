package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/lox/guessbot/internal/auth"
	"github.com/lox/guessbot/internal/game"
	"github.com/lox/guessbot/internal/metrics"
)

// Server is the websocket messaging gateway in front of a game.Controller.
type Server struct {
	controller  *game.Controller
	logger      zerolog.Logger
	upgrader    websocket.Upgrader
	limiter     *Limiter
	validator   auth.Validator
	registry    *prometheus.Registry
	connections map[*Connection]struct{}
	mu          sync.RWMutex
	httpServer  *http.Server
	httpMu      sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimit limits each user to eventsPerSecond game events with the
// given burst. A non-positive rate disables limiting.
func WithRateLimit(eventsPerSecond float64, burst int) Option {
	return func(s *Server) {
		if eventsPerSecond <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = NewLimiter(eventsPerSecond, burst)
	}
}

// WithAuth requires hello to carry a token accepted by v. The identity the
// token resolves to replaces the one the client claims.
func WithAuth(v auth.Validator) Option {
	return func(s *Server) { s.validator = v }
}

// WithRegistry serves reg on /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// NewServer creates a gateway for controller.
func NewServer(logger zerolog.Logger, controller *game.Controller, opts ...Option) *Server {
	s := &Server{
		controller: controller,
		logger:     logger.With().Str("component", "server").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		connections: make(map[*Connection]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes of the gateway.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.handleWebSocket)
	r.Get("/health", s.handleHealth)
	r.Get("/records", s.handleRecords)
	if s.registry != nil {
		r.Handle("/metrics", metrics.Handler(s.registry))
	}
	return r
}

// Start listens on addr and serves until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.httpMu.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.httpMu.Unlock()

	s.logger.Info().Str("addr", addr).Msg("Starting websocket gateway")
	return srv.ListenAndServe()
}

// Shutdown stops accepting requests and closes every connection.
func (s *Server) Shutdown(ctx context.Context) error {
	s.httpMu.Lock()
	srv := s.httpServer
	s.httpMu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()

	return err
}

// ConnectionCount returns the number of open websocket connections.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

func (s *Server) register(c *Connection) {
	s.mu.Lock()
	s.connections[c] = struct{}{}
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info().Str("conn_id", c.ID).Int("total", total).Msg("Client connected")
}

func (s *Server) unregister(c *Connection) {
	s.mu.Lock()
	if _, ok := s.connections[c]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.connections, c)
	total := len(s.connections)
	s.mu.Unlock()
	if s.limiter != nil {
		s.limiter.Prune()
	}
	s.logger.Info().Str("conn_id", c.ID).Int("total", total).Msg("Client disconnected")
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	conn := NewConnection(ws, s)
	s.register(conn)
	conn.Start()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	snapshot := s.controller.Records().Snapshot()
	body := make(map[string]any, len(snapshot))
	for mode, entry := range snapshot {
		body[mode.String()] = entry
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write records")
	}
}
