package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/better-wallet/keyring/internal/app"
	"github.com/better-wallet/keyring/internal/config"
	"github.com/better-wallet/keyring/internal/logger"
	"github.com/better-wallet/keyring/internal/metrics"
)

// Server exposes the keyring engine over HTTP JSON-RPC.
type Server struct {
	config      *config.Config
	keyring     *app.Keyring
	permissions *PermissionTable
	limiter     *originLimiter
	metrics     *metrics.Metrics
	httpServer  *http.Server
}

// NewServer creates the RPC server. An empty AllowedOrigins config falls back
// to the built-in permission table.
func NewServer(cfg *config.Config, keyring *app.Keyring, m *metrics.Metrics) *Server {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = DefaultPermissions()
	}
	return &Server{
		config:      cfg,
		keyring:     keyring,
		permissions: NewPermissionTable(origins),
		limiter:     newOriginLimiter(50, 100),
		metrics:     m,
	}
}

// Start starts the HTTP server
func (s *Server) Start(registry *prometheus.Registry) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/rpc", s.handleRPC)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.loggingMiddleware(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}

// loggingMiddleware logs each request with its duration.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug(r.Context(), "http request",
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds())
	})
}
