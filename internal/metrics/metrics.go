// Package metrics records every native GSSAPI call in Prometheus metrics.
// Recorder implements gssext.Observer.
package metrics

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/systmms/gssext/pkg/native"
)

const (
	callsTotalName   = "gssext_native_calls_total"
	callDurationName = "gssext_native_call_duration_seconds"
)

var (
	nativeCallsTotal   *prometheus.CounterVec
	nativeCallDuration *prometheus.HistogramVec

	// Registration guard
	metricsOnce sync.Once
)

// InitMetrics registers the metrics with the default registry. It is safe to
// call more than once.
func InitMetrics() {
	metricsOnce.Do(func() {
		nativeCallsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: callsTotalName,
				Help: "Total number of native GSSAPI calls by operation and status",
			},
			[]string{"op", "status"},
		)

		nativeCallDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    callDurationName,
				Help:    "Duration of native GSSAPI calls in seconds",
				Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
			},
			[]string{"op"},
		)
	})
}

// StatusLabel is the status label for st: "complete", or the major status in
// hex.
func StatusLabel(st native.Status) string {
	if st.Major == 0 {
		return "complete"
	}
	return fmt.Sprintf("0x%08x", st.Major)
}

// Recorder implements gssext.Observer.
type Recorder struct{}

// NewRecorder registers the metrics on first use and returns a Recorder.
func NewRecorder() *Recorder {
	InitMetrics()
	return &Recorder{}
}

// ObserveNativeCall records one native call.
func (r *Recorder) ObserveNativeCall(op string, st native.Status, elapsed time.Duration) {
	nativeCallsTotal.WithLabelValues(op, StatusLabel(st)).Inc()
	nativeCallDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// CallSummary aggregates the calls of one operation with one status.
type CallSummary struct {
	Op     string
	Status string
	Count  uint64
}

// Summary reads the call counters back from g, sorted by operation and
// status.
func Summary(g prometheus.Gatherer) ([]CallSummary, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	var out []CallSummary
	for _, mf := range families {
		if mf.GetName() != callsTotalName || mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		for _, m := range mf.GetMetric() {
			s := CallSummary{Count: uint64(m.GetCounter().GetValue())}
			for _, lp := range m.GetLabel() {
				switch lp.GetName() {
				case "op":
					s.Op = lp.GetValue()
				case "status":
					s.Status = lp.GetValue()
				}
			}
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Op != out[j].Op {
			return out[i].Op < out[j].Op
		}
		return out[i].Status < out[j].Status
	})
	return out, nil
}
