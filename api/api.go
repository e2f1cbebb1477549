// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	CallerHeader         = "X-Ballot-Caller"
	DefaultListenAddress = ":8080"
	tracerName           = "github.com/blinklabs-io/blockballot/api"
)

type Config struct {
	ListenAddress string
	PromRegistry  prometheus.Registerer
	// Now supplies the current time to phase checks. It defaults to time.Now
	Now func() time.Time
	// CorsAllowedOrigins enables CORS for browser clients when non-empty
	CorsAllowedOrigins []string
}

// Server is the HTTP command interface to an election instance
type Server struct {
	config     Config
	logger     *slog.Logger
	election   ElectionService
	metrics    *apiMetrics
	httpServer *http.Server
	listenAddr net.Addr
	mu         sync.Mutex
}

// New creates a new API server instance.
func New(
	cfg Config,
	svc ElectionService,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Server{
		config:   cfg,
		logger:   logger,
		election: svc,
	}
	if cfg.PromRegistry != nil {
		s.metrics = newApiMetrics(cfg.PromRegistry)
	}
	return s
}

// Handler returns the routed request handler
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(handleNotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.Use(s.tracingMiddleware)
	if s.metrics != nil {
		v1.Use(s.metrics.middleware)
	}
	v1.HandleFunc("/election", s.handleGetElection).Methods(http.MethodGet)
	v1.HandleFunc("/election", s.handleCreateElection).Methods(http.MethodPost)
	v1.HandleFunc("/candidates", s.handleListCandidates).Methods(http.MethodGet)
	v1.HandleFunc("/candidates", s.handleAddCandidate).Methods(http.MethodPost)
	v1.HandleFunc("/votes", s.handleVote).Methods(http.MethodPost)
	v1.HandleFunc("/votes/{voter}", s.handleGetVote).Methods(http.MethodGet)
	v1.HandleFunc("/tally", s.handleTally).Methods(http.MethodGet)
	if len(s.config.CorsAllowedOrigins) == 0 {
		return router
	}
	c := cors.New(cors.Options{
		AllowedOrigins: s.config.CorsAllowedOrigins,
		AllowedHeaders: []string{"Content-Type", CallerHeader},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
			http.MethodHead,
		},
	})
	return c.Handler(router)
}

// routeTemplate returns the matched route's path template, falling back to
// the raw path
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

// tracingMiddleware wraps each request in a span named after its route
func (s *Server) tracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := otel.Tracer(tracerName).Start(
			r.Context(),
			r.Method+" "+routeTemplate(r),
		)
		defer span.End()
		span.SetAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.String("ballot.caller", r.Header.Get(CallerHeader)),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Start starts the HTTP server in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	s.httpServer = server
	s.mu.Unlock()

	ln, err := s.startServer(server)
	if err != nil {
		s.mu.Lock()
		s.httpServer = nil
		s.mu.Unlock()
		return err
	}
	s.mu.Lock()
	s.listenAddr = ln.Addr()
	s.mu.Unlock()

	s.logger.Info(
		"API listener started on " + ln.Addr().String(),
	)

	// Monitor context for cancellation
	go func() {
		<-ctx.Done()
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			30*time.Second,
		)
		defer cancel()
		//nolint:contextcheck
		if err := s.Stop(shutdownCtx); err != nil {
			s.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()

	return nil
}

// Addr returns the bound listener address while the server is running
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer == nil {
		return nil
	}
	return s.listenAddr
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.listenAddr = nil
	s.mu.Unlock()

	if srv != nil {
		s.logger.Debug("shutting down API server")
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown API server: %w", err)
		}
	}
	return nil
}

// startServer binds the listening socket first so port conflicts are
// reported to the caller, then serves in a background goroutine.
func (s *Server) startServer(server *http.Server) (net.Listener, error) {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for API server: %w", err)
	}
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(
				"API server error",
				"error", err,
			)
		}
	}()
	return ln, nil
}
