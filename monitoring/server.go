package monitoring

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"serialplotter/config"
)

//go:embed dashboard.html
var dashboardHTML string

// Server provides HTTP endpoints for monitoring
type Server struct {
	config *config.MonitoringConfig
	store  *Store
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a new monitoring server for the running configuration.
// configPath may be empty, in which case the configuration is read-only.
func NewServer(cfg *config.Config, configPath, version string, store *Store, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health endpoint
	mux.Handle("/health", NewHealthHandler(cfg.App.InstanceID, version, store))

	// Metrics endpoint (Prometheus format)
	mux.Handle("/metrics", NewMetricsHandler(store))

	// Config endpoint
	mux.Handle("/api/config", NewConfigHandler(cfg, configPath))

	// Samples endpoint
	mux.Handle("/api/samples", NewSamplesHandler(store))

	// Ports endpoint
	mux.Handle("/api/ports", NewPortsHandler(nil))

	// Dashboard endpoint
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, dashboardHTML)
	})

	return &Server{
		config: &cfg.Monitoring,
		store:  store,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Monitoring.Port),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the server's request router
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting monitoring server", "port", s.config.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("monitoring server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Stopping monitoring server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
