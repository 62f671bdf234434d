// Package metrics holds the Prometheus collectors for quote fetches and shares.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quotewidget"

// Share surfaces.
const (
	SurfaceTUI       = "tui"
	SurfaceClipboard = "clipboard"
	SurfaceWeb       = "web"
	SurfaceCLI       = "cli"
)

// Collector records fetch and share outcomes. A nil *Collector is valid and
// records nothing.
type Collector struct {
	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	shareTotal    *prometheus.CounterVec
}

// NewCollector registers the collectors on reg. Registering twice on the same
// registry reuses the collectors that are already there.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Quote fetch attempts by result.",
		}, []string{"result"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Quote fetch latency by result.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		shareTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "share_total",
			Help:      "Share links produced by surface.",
		}, []string{"surface"}),
	}

	var err error
	if c.fetchTotal, err = register(reg, c.fetchTotal); err != nil {
		return nil, err
	}
	if c.fetchDuration, err = register(reg, c.fetchDuration); err != nil {
		return nil, err
	}
	if c.shareTotal, err = register(reg, c.shareTotal); err != nil {
		return nil, err
	}
	return c, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	if err := reg.Register(col); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return col, err
	}
	return col, nil
}

// ObserveFetch implements quote.Recorder.
func (c *Collector) ObserveFetch(result string, d time.Duration) {
	if c == nil {
		return
	}
	c.fetchTotal.WithLabelValues(result).Inc()
	c.fetchDuration.WithLabelValues(result).Observe(d.Seconds())
}

// ObserveShare counts one share link handed out on surface.
func (c *Collector) ObserveShare(surface string) {
	if c == nil {
		return
	}
	c.shareTotal.WithLabelValues(surface).Inc()
}
