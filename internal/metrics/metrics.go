// Package metrics exposes prometheus instrumentation on a dedicated
// listener.
package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Ledger metrics
	ModeSwitchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktime_mode_switches_total",
			Help: "Total mode switches, including no-op switches to the active mode",
		},
		[]string{"mode", "noop"},
	)

	SecondsAccrued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktime_seconds_accrued_total",
			Help: "Seconds folded into totals from closed periods",
		},
		[]string{"mode"},
	)

	AdjustmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktime_adjustments_total",
			Help: "Manual time adjustments posted",
		},
		[]string{"mode", "sign"},
	)

	ErasStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worktime_eras_started_total",
			Help: "Eras created by clear or first activity",
		},
	)

	// Read-path metrics
	SummaryRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktime_summary_requests_total",
			Help: "Summary reads served, by output format",
		},
		[]string{"format"},
	)

	SummaryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "worktime_summary_duration_seconds",
			Help:    "Summary computation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// Storage metrics
	StoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktime_store_errors_total",
			Help: "Ledger store failures by operation",
		},
		[]string{"op"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		ModeSwitchesTotal,
		SecondsAccrued,
		AdjustmentsTotal,
		ErasStartedTotal,
		SummaryRequestsTotal,
		SummaryDuration,
		StoreErrors,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
