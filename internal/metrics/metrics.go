// Package metrics exposes Prometheus counters for graph imports.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Recorder records import metrics. A nil *Recorder records nothing.
type Recorder struct {
	// NodesTotal counts translated foreign nodes.
	NodesTotal *prometheus.CounterVec
	// GraphsTotal counts graph imports.
	GraphsTotal *prometheus.CounterVec
	// ImportSeconds observes the duration of a graph import.
	ImportSeconds *prometheus.HistogramVec
}

// New creates a Recorder and registers its collectors with reg. A nil reg
// leaves the collectors unregistered.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		NodesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zimport_nodes_total",
				Help: "Foreign nodes processed, by framework, foreign op and result",
			},
			[]string{"framework", "op", "result"},
		),
		GraphsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zimport_graphs_total",
				Help: "Graph imports, by framework and result",
			},
			[]string{"framework", "result"},
		),
		ImportSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zimport_import_duration_seconds",
				Help:    "Time taken to import one graph",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"framework"},
		),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{r.NodesTotal, r.GraphsTotal, r.ImportSeconds} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

// Node records the outcome of one node translation.
func (r *Recorder) Node(framework, op, result string) {
	if r == nil {
		return
	}
	r.NodesTotal.WithLabelValues(framework, op, result).Inc()
}

// Graph records the outcome and duration of one graph import.
func (r *Recorder) Graph(framework, result string, d time.Duration) {
	if r == nil {
		return
	}
	r.GraphsTotal.WithLabelValues(framework, result).Inc()
	r.ImportSeconds.WithLabelValues(framework).Observe(d.Seconds())
}
