package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	SubmissionsTotal *prometheus.CounterVec
	DecisionsTotal   *prometheus.CounterVec
	BatchesCreated   prometheus.Counter
	UnitsAdded       prometheus.Counter
	UnitsConsumed    prometheus.Counter
	RiskScore        prometheus.Histogram
	RequestDuration  *prometheus.HistogramVec
	ReconcileSkipped prometheus.Counter
	SummaryCacheHits prometheus.Counter
	SummaryCacheMiss prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hemobank_donation_submissions_total",
			Help: "Donation submissions by entry type and outcome.",
		}, []string{"type", "outcome"}),
		DecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hemobank_donation_decisions_total",
			Help: "Admin decisions by action and outcome.",
		}, []string{"action", "outcome"}),
		BatchesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_inventory_batches_created_total",
			Help: "Inventory batches created from approved donations.",
		}),
		UnitsAdded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_inventory_units_added_total",
			Help: "Blood units added to the inventory ledger.",
		}),
		UnitsConsumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_inventory_units_consumed_total",
			Help: "Blood units consumed from the inventory ledger.",
		}),
		RiskScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "hemobank_risk_score",
			Help:    "Risk scores computed at submission time.",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hemobank_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		ReconcileSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_reconcile_skipped_total",
			Help: "Approvals that produced no inventory mutation (missing blood group).",
		}),
		SummaryCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_inventory_summary_cache_hits_total",
			Help: "Inventory summary reads served from cache.",
		}),
		SummaryCacheMiss: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_inventory_summary_cache_misses_total",
			Help: "Inventory summary reads that fell through to the store.",
		}),
	}
}

// ObserveRequest records a request latency sample.
func (m *Metrics) ObserveRequest(route, status string, d time.Duration) {
	m.RequestDuration.WithLabelValues(route, status).Observe(d.Seconds())
}
