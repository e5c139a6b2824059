package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg               *prometheus.Registry
	Records           *prometheus.CounterVec
	Repairs           *prometheus.CounterVec
	Rejections        *prometheus.CounterVec
	DuplicatesDropped prometheus.Counter
	BatchDuration     prometheus.Histogram
	LastBatchSize     prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	records := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "order_ingress_records_total"}, []string{"outcome"})
	repairs := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "order_ingress_repairs_total"}, []string{"kind"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "order_ingress_rejections_total"}, []string{"reason"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{Name: "order_ingress_duplicates_dropped_total"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_ingress_batch_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})
	lastBatch := prometheus.NewGauge(prometheus.GaugeOpts{Name: "order_ingress_last_batch_size"})

	r.MustRegister(records, repairs, rejections, duplicates, duration, lastBatch)
	return &Registry{
		reg:               r,
		Records:           records,
		Repairs:           repairs,
		Rejections:        rejections,
		DuplicatesDropped: duplicates,
		BatchDuration:     duration,
		LastBatchSize:     lastBatch,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
