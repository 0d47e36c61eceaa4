package llm

import (
	"context"
	"time"
)

// MetricsRecorder receives one observation per provider call.
type MetricsRecorder interface {
	ObserveLLMRequest(model, purpose string, d time.Duration, err error)
}

// MeteredProvider reports latency and outcome of each call.
type MeteredProvider struct {
	inner    Provider
	recorder MetricsRecorder
}

// WithMetrics wraps p so every Generate is observed by rec. A nil recorder
// returns p unchanged.
func WithMetrics(p Provider, rec MetricsRecorder) Provider {
	if rec == nil {
		return p
	}
	return &MeteredProvider{inner: p, recorder: rec}
}

func (m *MeteredProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := m.inner.Generate(ctx, req)
	m.recorder.ObserveLLMRequest(m.inner.ModelID(), PurposeFrom(ctx), time.Since(start), err)
	return resp, err
}

func (m *MeteredProvider) ModelID() string {
	return m.inner.ModelID()
}
