package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry groups the alerting pipeline's counters behind one prometheus
// registry so each process exposes only its own series.
type Registry struct {
	reg *prometheus.Registry

	Dispatches        prometheus.Counter
	ResolveFailures   prometheus.Counter
	RecordsAppended   prometheus.Counter
	StoreFailures     prometheus.Counter
	BroadcastFailures prometheus.Counter
	OutboundFailures  prometheus.Counter
	LiveDropped       prometheus.Counter
	OutboundLatency   prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	dispatches := prometheus.NewCounter(prometheus.CounterOpts{Name: "stock_alerts_dispatch_total"})
	resolveFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "stock_alerts_resolve_failures_total"})
	recordsAppended := prometheus.NewCounter(prometheus.CounterOpts{Name: "stock_alerts_records_appended_total"})
	storeFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "stock_alerts_store_failures_total"})
	broadcastFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "stock_alerts_broadcast_failures_total"})
	outboundFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "stock_alerts_outbound_failures_total"})
	liveDropped := prometheus.NewCounter(prometheus.CounterOpts{Name: "stock_alerts_live_dropped_total"})
	outboundLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_alerts_outbound_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(dispatches, resolveFailures, recordsAppended, storeFailures,
		broadcastFailures, outboundFailures, liveDropped, outboundLatency)

	return &Registry{
		reg:               r,
		Dispatches:        dispatches,
		ResolveFailures:   resolveFailures,
		RecordsAppended:   recordsAppended,
		StoreFailures:     storeFailures,
		BroadcastFailures: broadcastFailures,
		OutboundFailures:  outboundFailures,
		LiveDropped:       liveDropped,
		OutboundLatency:   outboundLatency,
	}
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
