// Package metrics exposes Prometheus collectors for provider calls and
// learning sessions.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records metrics on its own registry. It satisfies both
// llm.MetricsRecorder and session.Metrics.
type Collector struct {
	registry *prometheus.Registry

	llmRequestDuration *prometheus.HistogramVec
	transitions        *prometheus.CounterVec
	quizScore          prometheus.Histogram
	staleGenerations   *prometheus.CounterVec
}

// NewCollector creates a Collector with Go runtime and process metrics
// registered alongside the application ones.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		llmRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "feynman_llm_request_duration_seconds",
				Help:    "Content provider request duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s to ~100s
			},
			[]string{"model", "purpose", "status"},
		),
		transitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feynman_session_transitions_total",
				Help: "Session state transitions",
			},
			[]string{"from", "to"},
		),
		quizScore: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "feynman_quiz_score",
				Help:    "Quiz scores (0-100)",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
		),
		staleGenerations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feynman_stale_generations_total",
				Help: "Generation results discarded because the session moved on",
			},
			[]string{"op"},
		),
	}
}

// ObserveLLMRequest records one provider call.
func (c *Collector) ObserveLLMRequest(model, purpose string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.llmRequestDuration.WithLabelValues(model, purpose, status).Observe(d.Seconds())
}

// ObserveTransition counts a session state change.
func (c *Collector) ObserveTransition(from, to string) {
	c.transitions.WithLabelValues(from, to).Inc()
}

// ObserveQuizScore records a quiz score.
func (c *Collector) ObserveQuizScore(score int) {
	c.quizScore.Observe(float64(score))
}

// ObserveStaleGeneration counts a discarded generation result.
func (c *Collector) ObserveStaleGeneration(op string) {
	c.staleGenerations.WithLabelValues(op).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
