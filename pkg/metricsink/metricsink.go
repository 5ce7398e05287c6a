// Package metricsink provides the external metric collaborator a ChunkSet
// reports slot evictions to (spec.md §6.2), grounded on the teacher's use of
// prometheus/client_golang counters throughout pkg/ingester and pkg/chunkenc.
package metricsink

import "github.com/prometheus/client_golang/prometheus"

// Sink receives one update per ChunkSet.Clean call.
type Sink interface {
	// AddDropped records that n slots were evicted by a single Clean call.
	AddDropped(n int)
}

// PrometheusSink reports to a single prometheus.Counter, matching the
// metric name spec.md §6.2 names: inmemory_chunks_dropped_total.
type PrometheusSink struct {
	dropped prometheus.Counter
}

// NewPrometheusSink registers inmemory_chunks_dropped_total with reg and
// returns a Sink backed by it. reg may be nil, in which case the counter is
// created but never registered (useful in tests).
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inmemory_chunks_dropped_total",
		Help: "Number of in-memory chunk ring slots evicted by clean().",
	})
	if reg != nil {
		reg.MustRegister(c)
	}
	return &PrometheusSink{dropped: c}
}

// AddDropped implements Sink.
func (s *PrometheusSink) AddDropped(n int) {
	if n <= 0 {
		return
	}
	s.dropped.Add(float64(n))
}

// NopSink discards every update; useful as a default when no metric
// collaborator is wired up.
type NopSink struct{}

// AddDropped implements Sink.
func (NopSink) AddDropped(int) {}
