package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dbehnke/convcode/pkg/logger"
)

// PrometheusConfig holds Prometheus server configuration.
type PrometheusConfig struct {
	Enabled bool
	Port    int
	Path    string
}

// PrometheusHandler handles Prometheus metrics HTTP requests.
type PrometheusHandler struct {
	collector *Collector
}

// NewPrometheusHandler creates a new Prometheus handler.
func NewPrometheusHandler(collector *Collector) *PrometheusHandler {
	return &PrometheusHandler{
		collector: collector,
	}
}

// ServeHTTP handles HTTP requests for metrics.
func (h *PrometheusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	var output strings.Builder

	output.WriteString("# HELP fec_jobs_submitted_total Total jobs submitted\n")
	output.WriteString("# TYPE fec_jobs_submitted_total counter\n")
	fmt.Fprintf(&output, "fec_jobs_submitted_total %d\n", h.collector.GetJobsSubmitted())

	output.WriteString("# HELP fec_jobs_succeeded_total Total jobs completed successfully\n")
	output.WriteString("# TYPE fec_jobs_succeeded_total counter\n")
	fmt.Fprintf(&output, "fec_jobs_succeeded_total %d\n", h.collector.GetJobsSucceeded())

	output.WriteString("# HELP fec_jobs_failed_total Total jobs that failed\n")
	output.WriteString("# TYPE fec_jobs_failed_total counter\n")
	fmt.Fprintf(&output, "fec_jobs_failed_total %d\n", h.collector.GetJobsFailed())

	output.WriteString("# HELP fec_jobs_active Number of submitted jobs not yet finished (queued or running)\n")
	output.WriteString("# TYPE fec_jobs_active gauge\n")
	fmt.Fprintf(&output, "fec_jobs_active %d\n", h.collector.GetActiveJobs())

	output.WriteString("# HELP fec_bits_encoded_total Total output bits produced by encode jobs\n")
	output.WriteString("# TYPE fec_bits_encoded_total counter\n")
	fmt.Fprintf(&output, "fec_bits_encoded_total %d\n", h.collector.GetBitsEncoded())

	output.WriteString("# HELP fec_bits_decoded_total Total output bits produced by decode jobs\n")
	output.WriteString("# TYPE fec_bits_decoded_total counter\n")
	fmt.Fprintf(&output, "fec_bits_decoded_total %d\n", h.collector.GetBitsDecoded())

	output.WriteString("# HELP fec_num_errs_total Cumulative num_errs across every completed decode job\n")
	output.WriteString("# TYPE fec_num_errs_total counter\n")
	fmt.Fprintf(&output, "fec_num_errs_total %d\n", h.collector.GetTotalNumErrs())

	output.WriteString("# HELP fec_capacity_exceeded_total Decode jobs that hit the trellis capacity guard\n")
	output.WriteString("# TYPE fec_capacity_exceeded_total counter\n")
	fmt.Fprintf(&output, "fec_capacity_exceeded_total %d\n", h.collector.GetCapacityExceededEvents())

	_, _ = w.Write([]byte(output.String()))
}

// PrometheusServer is an HTTP server for Prometheus metrics.
type PrometheusServer struct {
	config    PrometheusConfig
	collector *Collector
	log       *logger.Logger
	server    *http.Server
}

// NewPrometheusServer creates a new Prometheus metrics server.
func NewPrometheusServer(config PrometheusConfig, collector *Collector, log *logger.Logger) *PrometheusServer {
	if log == nil {
		log = logger.New(logger.Config{Level: "info", Format: "text"})
	}

	return &PrometheusServer{
		config:    config,
		collector: collector,
		log:       log.WithComponent("metrics"),
	}
}

// Start starts the Prometheus metrics server, blocking until ctx is
// cancelled or the server fails.
func (s *PrometheusServer) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.log.Info("Prometheus metrics server disabled")
		return nil
	}

	handler := NewPrometheusHandler(s.collector)
	mux := http.NewServeMux()
	mux.Handle(s.config.Path, handler)

	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	actualPort := listener.Addr().(*net.TCPAddr).Port

	s.server = &http.Server{
		Handler: mux,
	}

	s.log.Info("Starting Prometheus metrics server",
		logger.Int("port", actualPort),
		logger.String("path", s.config.Path))

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutting down Prometheus metrics server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown error: %w", err)
		}
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// Stop stops the Prometheus metrics server.
func (s *PrometheusServer) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctx)
	}
}
