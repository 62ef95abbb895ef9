package prometheus

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sifan077/DocLink/config"
	"go.uber.org/zap"
)

const (
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 10 * time.Second
	defaultPort       = 9090
)

// Server exposes /metrics for Prometheus scraping on its own port, apart
// from the public API.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// Handler serves the metrics of gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

// NewServer builds the metrics server for the default registry.
func NewServer(cfg config.PrometheusConfig, logger *zap.Logger) *Server {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           Handler(prometheus.DefaultGatherer),
			ReadHeaderTimeout: readHeaderTimeout,
			WriteTimeout:      writeTimeout,
		},
		logger: logger,
	}
}

// Start serves in the background until Close.
func (s *Server) Start() {
	go func() {
		s.logger.Info("Starting Prometheus metrics server", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
		}
	}()
}

// Close stops the server.
func (s *Server) Close() {
	if err := s.srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Warn("Failed to close Prometheus server", zap.Error(err))
	}
}
