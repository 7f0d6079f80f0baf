// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DistributionsTotal counts distribution requests by outcome
	// (credited, noop, error).
	DistributionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "referral_distributions_total",
		Help: "Commission distribution runs by outcome.",
	}, []string{"outcome"})

	// LedgerEntriesCreated counts ledger rows written, labeled by level.
	LedgerEntriesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "referral_ledger_entries_created_total",
		Help: "Commission ledger entries written, by referral level.",
	}, []string{"level"})

	// CommissionAmountTotal accumulates credited amounts, labeled by
	// level. Values are in the ledger currency's major unit.
	CommissionAmountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "referral_commission_amount_total",
		Help: "Sum of credited commission amounts, by referral level.",
	}, []string{"level"})

	// NotificationsTotal counts notification attempts by outcome
	// (sent, failed).
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "referral_notifications_total",
		Help: "Referrer notification attempts by outcome.",
	}, []string{"outcome"})

	// HealthScore holds the score of the most recent health report.
	HealthScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "referral_health_score",
		Help: "Composite health score from the latest report (0-100).",
	})

	// NetworkEdges holds the edge count written by the latest rebuild.
	NetworkEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "referral_network_edges",
		Help: "Referral edges persisted by the most recent network rebuild.",
	})
)
