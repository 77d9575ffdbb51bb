package main

import (
	"math/big"

	"github.com/nspcc-dev/tipbot-contract/reconcile"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "tipbot"
	metricsSubsystem = "ledger"
)

// auditMetrics exports results of the periodic ledger audit.
type auditMetrics struct {
	height   prometheus.Gauge
	total    prometheus.Gauge
	custody  prometheus.Gauge
	accounts prometheus.Gauge
	links    prometheus.Gauge
	problems prometheus.Gauge
	audits   *prometheus.CounterVec
}

func newGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      name,
		Help:      help,
	})
}

func newAuditMetrics(reg prometheus.Registerer) *auditMetrics {
	m := &auditMetrics{
		height:   newGauge("audit_height", "Block height of the latest audit."),
		total:    newGauge("total_balance", "Ledger total in GAS fractions."),
		custody:  newGauge("custody_balance", "GAS held by the ledger contract in GAS fractions."),
		accounts: newGauge("accounts", "Number of accounts with non-zero balance."),
		links:    newGauge("links", "Number of linked handles."),
		problems: newGauge("audit_problems", "Number of problems found by the latest audit."),
		audits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "audits_total",
				Help:      "Total number of ledger audits.",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		m.height,
		m.total,
		m.custody,
		m.accounts,
		m.links,
		m.problems,
		m.audits,
	)

	return m
}

func (m *auditMetrics) observe(r *reconcile.Report) {
	m.height.Set(float64(r.Height))
	m.total.Set(bigFloat(r.Total))
	m.custody.Set(bigFloat(r.Custody))
	m.accounts.Set(float64(r.Accounts))
	m.links.Set(float64(r.Links))
	m.problems.Set(float64(len(r.Problems)))

	if r.OK() {
		m.audits.WithLabelValues("ok").Inc()
	} else {
		m.audits.WithLabelValues("failed").Inc()
	}
}

func (m *auditMetrics) observeError() {
	m.audits.WithLabelValues("error").Inc()
}

func bigFloat(x *big.Int) float64 {
	if x == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(x).Float64()
	return f
}
