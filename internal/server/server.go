/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package server exposes the broker to collaborators over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/panteparak/console-broker/pkg/awssign"
	"github.com/panteparak/console-broker/pkg/logger"
	"github.com/panteparak/console-broker/pkg/metrics"
	"github.com/panteparak/console-broker/pkg/secrets"
)

const (
	maxRequestBytes        = 1 << 20
	defaultListenAddr      = ":8080"
	defaultShutdownTimeout = 15 * time.Second

	// HeaderRequestID carries the request correlation id.
	HeaderRequestID = "X-Request-ID"
)

// SessionStatus reports whether the broker holds a valid store session.
type SessionStatus interface {
	Ready() bool
}

// RequestSigner signs outbound AWS requests.
type RequestSigner interface {
	Sign(ctx context.Context, req awssign.Request) (*awssign.SignedRequest, error)
}

// SecretGetter reads application secrets, singly or through config values
// that reference them.
type SecretGetter interface {
	GetAppSecret(ctx context.Context, appID, key string) (string, bool, error)
	ResolveValues(ctx context.Context, appID string, values map[string]secrets.ConfigValue) (map[string]string, error)
}

// Config configures the HTTP server.
type Config struct {
	ListenAddr      string
	ShutdownTimeout time.Duration
}

// Server is the broker's HTTP surface.
type Server struct {
	cfg     Config
	session SessionStatus
	signer  RequestSigner
	secrets SecretGetter
	router  *mux.Router
	log     logr.Logger
}

// New creates a Server and registers its routes.
func New(cfg Config, session SessionStatus, signer RequestSigner, secrets SecretGetter, log logr.Logger) *Server {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	s := &Server{
		cfg:     cfg,
		session: session,
		signer:  signer,
		secrets: secrets,
		router:  mux.NewRouter(),
		log:     log.WithName("http"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.requestContext)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	s.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/sign", s.handleSign).Methods(http.MethodPost)
	v1.HandleFunc("/apps/{appID}/secrets/{key}", s.handleGetSecret).Methods(http.MethodGet)
	v1.HandleFunc("/apps/{appID}/config/resolve", s.handleResolveConfig).Methods(http.MethodPost)
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server starting", "addr", s.cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("http server stopping")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestContext tags each request with an id and a scoped logger.
func (s *Server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)

		log := s.log.WithValues("requestID", id, "method", r.Method, "path", r.URL.Path)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r.WithContext(logger.IntoContext(r.Context(), log)))

		log.V(1).Info("request served", "status", rec.status, logger.KeyDuration, time.Since(start).String())
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
