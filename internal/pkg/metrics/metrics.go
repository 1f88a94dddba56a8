package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Uploads counts attachment uploads by context, stage and provider. A nil
// *Uploads is valid and records nothing.
type Uploads struct {
	Attempts *prometheus.CounterVec
	Failures *prometheus.CounterVec
	Complete *prometheus.CounterVec
	Bytes    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewUploads builds the upload collectors under namespace.
func NewUploads(namespace string) *Uploads {
	return &Uploads{
		Attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upload_attempts_total",
				Help:      "Total number of attachment uploads started",
			},
			[]string{"context"},
		),
		Failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upload_failures_total",
				Help:      "Total number of attachment uploads that failed, by stage",
			},
			[]string{"stage", "provider"},
		),
		Complete: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upload_complete_total",
				Help:      "Total number of attachment uploads that completed",
			},
			[]string{"provider"},
		),
		Bytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upload_bytes_total",
				Help:      "File bytes sent to upload targets",
			},
			[]string{"provider"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upload_duration_seconds",
				Help:      "Time from reserve to commit of an upload",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
	}
}

// Collectors lists every collector for registration.
func (m *Uploads) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Attempts, m.Failures, m.Complete, m.Bytes, m.Duration}
}

// MustRegister registers the collectors with reg.
func (m *Uploads) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.Collectors()...)
}

func (m *Uploads) Started(context string) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(context).Inc()
}

func (m *Uploads) Failed(stage, provider string) {
	if m == nil {
		return
	}
	if provider == "" {
		provider = "none"
	}
	m.Failures.WithLabelValues(stage, provider).Inc()
}

func (m *Uploads) Completed(provider string, bytes int64, elapsed time.Duration) {
	if m == nil {
		return
	}
	if provider == "" {
		provider = "none"
	}
	m.Complete.WithLabelValues(provider).Inc()
	if bytes > 0 {
		m.Bytes.WithLabelValues(provider).Add(float64(bytes))
	}
	m.Duration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// WriteTextfile writes everything gathered by g in the text exposition format,
// for pickup by a node exporter textfile collector.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	return prometheus.WriteToTextfile(path, g)
}
