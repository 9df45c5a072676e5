// Package metrics exposes Prometheus counters for the wolhook listener.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Values of the "result" label on wolhook_packets_total.
const (
	ResultMatched   = "matched"
	ResultOtherMAC  = "other_mac"
	ResultInvalid   = "invalid"
	ResultWrongSize = "wrong_size"
	ResultDebounced = "debounced"
)

// Metrics holds the listener's collectors and the registry they live in.
type Metrics struct {
	Registry *prometheus.Registry

	// Packets counts received datagrams by port and result.
	Packets *prometheus.CounterVec

	// Commands counts command executions by outcome.
	Commands *prometheus.CounterVec

	// ReadErrors counts socket read failures by port.
	ReadErrors *prometheus.CounterVec

	// InFlight is the number of commands currently running.
	InFlight prometheus.Gauge
}

// New creates the collectors and registers them, together with the Go and
// process collectors, in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Packets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wolhook_packets_total",
				Help: "Number of UDP datagrams received, by port and result",
			},
			[]string{"port", "result"},
		),
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wolhook_commands_total",
				Help: "Number of command executions, by outcome",
			},
			[]string{"outcome"},
		),
		ReadErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wolhook_read_errors_total",
				Help: "Number of UDP read errors, by port",
			},
			[]string{"port"},
		),
		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wolhook_commands_in_flight",
				Help: "Number of commands currently running",
			},
		),
	}
	m.Registry.MustRegister(
		m.Packets,
		m.Commands,
		m.ReadErrors,
		m.InFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler returns an http.Handler serving /metrics and /healthz.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve runs the metrics HTTP server on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, log *slog.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("shutting down metrics server", "err", err)
		}
	}()

	log.Info("metrics server listening", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
