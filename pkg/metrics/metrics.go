// Package metrics exposes Prometheus collectors for secure sessions.
//
// A nil *Recorder is valid and records nothing, so sessions can be run
// without metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "tlsfetch"

// Recorder holds the session collectors, registered on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	handshakes        *prometheus.CounterVec
	handshakeDuration prometheus.Histogram
	retries           *prometheus.CounterVec
	bytesSent         prometheus.Counter
	bytesReceived     prometheus.Counter
	responses         *prometheus.CounterVec
	closeNotifyErrors prometheus.Counter
}

// NewRecorder creates a Recorder with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		registry:          reg,
		handshakes:        f.NewCounterVec(prometheus.CounterOpts{Namespace: Namespace, Name: "handshakes_total", Help: "Handshakes by result"}, []string{"result"}),
		handshakeDuration: f.NewHistogram(prometheus.HistogramOpts{Namespace: Namespace, Name: "handshake_duration_seconds", Help: "Handshake duration seconds", Buckets: prometheus.ExponentialBuckets(0.001, 2, 16)}),
		retries:           f.NewCounterVec(prometheus.CounterOpts{Namespace: Namespace, Name: "retries_total", Help: "Would-block retries by operation"}, []string{"op"}),
		bytesSent:         f.NewCounter(prometheus.CounterOpts{Namespace: Namespace, Name: "bytes_sent_total", Help: "Application bytes sent"}),
		bytesReceived:     f.NewCounter(prometheus.CounterOpts{Namespace: Namespace, Name: "bytes_received_total", Help: "Application bytes accumulated"}),
		responses:         f.NewCounterVec(prometheus.CounterOpts{Namespace: Namespace, Name: "responses_total", Help: "Response accumulation outcomes"}, []string{"status"}),
		closeNotifyErrors: f.NewCounter(prometheus.CounterOpts{Namespace: Namespace, Name: "close_notify_errors_total", Help: "Close-notify send failures"}),
	}
}

// Registry returns the registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handshake records a handshake outcome ("established" or a failure kind).
func (r *Recorder) Handshake(result string, d time.Duration) {
	if r == nil {
		return
	}
	r.handshakes.WithLabelValues(result).Inc()
	r.handshakeDuration.Observe(d.Seconds())
}

// Retry records one would-block retry for op.
func (r *Recorder) Retry(op string) {
	if r == nil {
		return
	}
	r.retries.WithLabelValues(op).Inc()
}

// Sent records application bytes written.
func (r *Recorder) Sent(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.bytesSent.Add(float64(n))
}

// Received records application bytes accumulated.
func (r *Recorder) Received(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.bytesReceived.Add(float64(n))
}

// Response records an accumulation outcome ("complete", "truncated", "failed").
func (r *Recorder) Response(status string) {
	if r == nil {
		return
	}
	r.responses.WithLabelValues(status).Inc()
}

// CloseNotifyFailed records a failed close-notify.
func (r *Recorder) CloseNotifyFailed() {
	if r == nil {
		return
	}
	r.closeNotifyErrors.Inc()
}

// WriteTextfile writes all collectors to path in the text exposition
// format, for a node-exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
