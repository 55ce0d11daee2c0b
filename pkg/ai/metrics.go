package ai

import (
	"math"
	"sync"
)

// MetricsRecorder accumulates token usage across requests. The zero value
// is ready to use.
type MetricsRecorder struct {
	mu      sync.Mutex
	metrics ModelMetrics
}

// ResetMetrics clears all accumulated token and timing metrics to zero.
func (r *MetricsRecorder) ResetMetrics() {
	r.mu.Lock()
	r.metrics = ModelMetrics{}
	r.mu.Unlock()
}

// GetMetrics returns the accumulated token usage and timing metrics since the last reset.
func (r *MetricsRecorder) GetMetrics() ModelMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics
}

// Add folds m into the totals and recomputes throughput.
func (r *MetricsRecorder) Add(m ModelMetrics) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.metrics.InputTokens += m.InputTokens
	r.metrics.OutputTokens += m.OutputTokens
	r.metrics.TotalTokens += m.TotalTokens
	r.metrics.DurationMs += m.DurationMs

	if r.metrics.DurationMs > 0 {
		tokensPerSecond := (float64(r.metrics.TotalTokens) * 1000.0) / float64(r.metrics.DurationMs)
		r.metrics.TokenPerSecond = float32(math.Round(tokensPerSecond*100) / 100)
	}
}
