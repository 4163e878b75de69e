// Package metrics defines the Prometheus metrics of the fetch widget.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are kept in a struct rather than package variables so tests can
// register them on their own registry.
type Metrics struct {
	Fetches       *prometheus.CounterVec
	Redirects     prometheus.Counter
	FetchDuration *prometheus.HistogramVec
	Verifications *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "botsig_fetch_total",
			Help: "Fetches made by the widget, by signing mode and response decision",
		}, []string{"mode", "decision"}),
		Redirects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botsig_redirects_total",
			Help: "Redirect hops followed, each re-signed when signing",
		}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "botsig_fetch_duration_seconds",
			Help:    "Duration of widget fetches including redirects",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"mode"}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "botsig_verifications_total",
			Help: "Agent signatures checked by the verifying server, by result",
		}, []string{"result"}),
	}
}

// Register registers the metrics on reg, or the default registerer when
// reg is nil. Metrics that are already registered are not an error.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{m.Fetches, m.Redirects, m.FetchDuration, m.Verifications} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// ObserveFetch records one completed fetch.
func (m *Metrics) ObserveFetch(mode, decision string, redirects int, d time.Duration) {
	m.Fetches.WithLabelValues(mode, decision).Inc()
	m.Redirects.Add(float64(redirects))
	m.FetchDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// ObserveVerification records one verification; result is "ok" or an
// error class.
func (m *Metrics) ObserveVerification(result string) {
	m.Verifications.WithLabelValues(result).Inc()
}
