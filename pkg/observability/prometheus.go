package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus implements [ReconcileHooks] and [FetchHooks] with Prometheus
// collectors.
type Prometheus struct {
	reconciles       *prometheus.CounterVec
	reconcileSeconds prometheus.Histogram
	nodes            *prometheus.CounterVec
	pending          prometheus.Gauge
	async            *prometheus.CounterVec

	requests       *prometheus.CounterVec
	requestSeconds *prometheus.HistogramVec
	fetchErrors    *prometheus.CounterVec
	cacheHits      *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Prometheus{
		reconciles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mapstack_reconcile_total",
			Help: "Reconcile passes by commit mode and result",
		}, []string{"mode", "result"}),
		reconcileSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "mapstack_reconcile_duration_seconds",
			Help:    "Reconcile pass duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
		}),
		nodes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mapstack_reconcile_specs_total",
			Help: "Specs handled by reconcile passes by action",
		}, []string{"action"}),
		pending: f.NewGauge(prometheus.GaugeOpts{
			Name: "mapstack_async_pending",
			Help: "Asynchronous creations in flight after the last reconcile",
		}),
		async: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mapstack_async_complete_total",
			Help: "Finished asynchronous creations by genre and outcome",
		}, []string{"genre", "outcome"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mapstack_fetch_requests_total",
			Help: "Capability requests by host and status",
		}, []string{"host", "status"}),
		requestSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mapstack_fetch_duration_seconds",
			Help:    "Capability request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"host"}),
		fetchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mapstack_fetch_errors_total",
			Help: "Capability requests that failed before a response",
		}, []string{"host"}),
		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mapstack_fetch_cache_hits_total",
			Help: "Capability documents served from cache",
		}, []string{"host"}),
	}
}

func (p *Prometheus) OnReconcile(_ context.Context, s ReconcileStats, d time.Duration, err error) {
	mode, result := "patch", "ok"
	if s.Rebuilt {
		mode = "rebuild"
	}
	if err != nil {
		mode, result = "none", "error"
	}
	p.reconciles.WithLabelValues(mode, result).Inc()
	p.reconcileSeconds.Observe(d.Seconds())
	p.nodes.WithLabelValues("created").Add(float64(s.Created))
	p.nodes.WithLabelValues("reused").Add(float64(s.Reused))
	p.nodes.WithLabelValues("patched").Add(float64(s.Patched))
	p.nodes.WithLabelValues("removed").Add(float64(s.Removed))
	p.pending.Set(float64(s.Pending))
}

func (p *Prometheus) OnAsyncComplete(_ context.Context, genre, outcome string) {
	p.async.WithLabelValues(genre, outcome).Inc()
}

func (p *Prometheus) OnRequest(context.Context, string, string) {}

func (p *Prometheus) OnResponse(_ context.Context, host, _ string, code int, d time.Duration) {
	p.requests.WithLabelValues(host, strconv.Itoa(code)).Inc()
	p.requestSeconds.WithLabelValues(host).Observe(d.Seconds())
}

func (p *Prometheus) OnError(_ context.Context, host, _ string, _ error) {
	p.fetchErrors.WithLabelValues(host).Inc()
}

func (p *Prometheus) OnCacheHit(_ context.Context, host string) {
	p.cacheHits.WithLabelValues(host).Inc()
}

var (
	_ ReconcileHooks = (*Prometheus)(nil)
	_ FetchHooks     = (*Prometheus)(nil)
)
