package resolver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the resolver's prometheus collectors.
type Metrics struct {
	Resolutions   *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
}

// NewMetrics creates the resolver metrics and registers them with reg when
// reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wikifetch",
				Subsystem: "resolver",
				Name:      "resolutions_total",
				Help:      "Resolutions by record kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "wikifetch",
				Subsystem: "resolver",
				Name:      "fetch_duration_seconds",
				Help:      "Remote fetch duration in seconds, including image downloads",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.Resolutions, m.FetchDuration)
	}

	return m
}

func (r *Resolver) observeFetch(kind string, start time.Time) {
	if r.metrics != nil {
		r.metrics.FetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}
