package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type CreditMetrics struct {
	accountsOpened	prometheus.Counter
	accountsClosed	*prometheus.CounterVec
	ordersExecuted	prometheus.Counter
	fastChecks	*prometheus.CounterVec
	fullChecks	prometheus.Counter
	totalBorrowed	prometheus.Gauge
	batchesExecuted	*prometheus.CounterVec
}

var (
	creditOnce     sync.Once
	creditRegistry *CreditMetrics
)

func Credit() *CreditMetrics {
	creditOnce.Do(func() {
		creditRegistry = &CreditMetrics{
			accountsOpened: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "credit_accounts_opened_total",
				Help: "Count of credit accounts opened.",
			}),
			accountsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "credit_accounts_closed_total",
				Help: "Count of credit accounts closed, by reason.",
			}, []string{"reason"}),
			ordersExecuted: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "credit_orders_executed_total",
				Help: "Count of external calls dispatched through the gateway.",
			}),
			fastChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "credit_fast_checks_total",
				Help: "Count of fast collateral checks by outcome.",
			}, []string{"outcome"}),
			fullChecks: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "credit_full_checks_total",
				Help: "Count of full collateral checks that passed.",
			}),
			totalBorrowed: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "credit_total_borrowed",
				Help: "Outstanding principal lent to credit accounts.",
			}),
			batchesExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "credit_batches_executed_total",
				Help: "Count of multicall batches by result.",
			}, []string{"result"}),
		}
		prometheus.MustRegister(
			creditRegistry.accountsOpened,
			creditRegistry.accountsClosed,
			creditRegistry.ordersExecuted,
			creditRegistry.fastChecks,
			creditRegistry.fullChecks,
			creditRegistry.totalBorrowed,
			creditRegistry.batchesExecuted,
		)
	})
	return creditRegistry
}

func (m *CreditMetrics) RecordOpen() {
	m.accountsOpened.Inc()
}

func (m *CreditMetrics) RecordClose(liquidated bool) {
	reason := "close"
	if liquidated {
		reason = "liquidation"
	}
	m.accountsClosed.WithLabelValues(reason).Inc()
}

func (m *CreditMetrics) RecordOrder() {
	m.ordersExecuted.Inc()
}

func (m *CreditMetrics) RecordFastCheck(passed bool) {
	outcome := "fallthrough"
	if passed {
		outcome = "pass"
	}
	m.fastChecks.WithLabelValues(outcome).Inc()
}

func (m *CreditMetrics) RecordFullCheck() {
	m.fullChecks.Inc()
}

func (m *CreditMetrics) RecordBatch(ok bool) {
	result := "reverted"
	if ok {
		result = "committed"
	}
	m.batchesExecuted.WithLabelValues(result).Inc()
}

func (m *CreditMetrics) SetTotalBorrowed(value float64) {
	m.totalBorrowed.Set(value)
}
