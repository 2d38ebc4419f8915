package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type PrometheusRecorder struct {
	counters  *prometheus.CounterVec
	histogram *prometheus.HistogramVec
}

func NewPrometheusRecorder() Recorder {
	counters := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "entrygate",
			Name:      "events_total",
			Help:      "payment flow event counters",
		},
		[]string{"type", "ecosystem"},
	)

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "entrygate",
			Name:      "latency_seconds",
			Help:      "payment flow operation latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "ecosystem"},
	)

	prometheus.MustRegister(counters, histogram)

	return &PrometheusRecorder{
		counters:  counters,
		histogram: histogram,
	}
}

func (p *PrometheusRecorder) IncCounter(name string, labels map[string]string) {
	p.counters.With(prometheus.Labels{
		"type":      name,
		"ecosystem": labels["ecosystem"],
	}).Inc()
}

func (p *PrometheusRecorder) ObserveLatency(name string, d time.Duration, labels map[string]string) {
	p.histogram.With(prometheus.Labels{
		"operation": name,
		"ecosystem": labels["ecosystem"],
	}).Observe(d.Seconds())
}
