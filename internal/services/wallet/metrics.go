package wallet

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordOperationDuration(string, time.Duration) {}
func (n *NoopMetricsCollector) RecordOperationResult(string, string)          {}
func (n *NoopMetricsCollector) RecordCacheHit(string)                         {}
func (n *NoopMetricsCollector) RecordCacheMiss(string)                        {}
func (n *NoopMetricsCollector) RecordError(string, string)                    {}
func (n *NoopMetricsCollector) RecordRetry(string)                            {}
func (n *NoopMetricsCollector) RecordTransaction(string, int64)               {}

// PrometheusMetrics exports wallet metrics to a Prometheus registry.
type PrometheusMetrics struct {
	operationDuration *prometheus.HistogramVec
	operationResults  *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	errors            *prometheus.CounterVec
	retries           *prometheus.CounterVec
	transactions      *prometheus.CounterVec
	volume            *prometheus.CounterVec
}

// NewPrometheusMetrics registers the wallet collectors on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wallet_operation_duration_seconds",
				Help:    "Duration of wallet operations",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
			},
			[]string{"operation"},
		),
		operationResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_operations_total",
				Help: "Wallet operations by outcome",
			},
			[]string{"operation", "result"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_cache_lookups_total",
				Help: "Wallet cache lookups by outcome",
			},
			[]string{"result"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_errors_total",
				Help: "Wallet operation failures by kind",
			},
			[]string{"operation", "kind"},
		),
		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_version_retries_total",
				Help: "Ledger writes retried after a version conflict",
			},
			[]string{"operation"},
		),
		transactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_transactions_total",
				Help: "Completed ledger rows by type",
			},
			[]string{"type"},
		),
		volume: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_transaction_volume_minor_units_total",
				Help: "Absolute amount moved by completed ledger rows",
			},
			[]string{"type"},
		),
	}
}

func (m *PrometheusMetrics) RecordOperationDuration(operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *PrometheusMetrics) RecordOperationResult(operation, result string) {
	m.operationResults.WithLabelValues(operation, result).Inc()
}

// Cache keys embed user ids, so they are not used as labels.
func (m *PrometheusMetrics) RecordCacheHit(string) {
	m.cacheLookups.WithLabelValues("hit").Inc()
}

func (m *PrometheusMetrics) RecordCacheMiss(string) {
	m.cacheLookups.WithLabelValues("miss").Inc()
}

func (m *PrometheusMetrics) RecordError(operation, errType string) {
	m.errors.WithLabelValues(operation, errType).Inc()
}

func (m *PrometheusMetrics) RecordRetry(operation string) {
	m.retries.WithLabelValues(operation).Inc()
}

func (m *PrometheusMetrics) RecordTransaction(txType string, amount int64) {
	if amount < 0 {
		amount = -amount
	}
	m.transactions.WithLabelValues(txType).Inc()
	m.volume.WithLabelValues(txType).Add(float64(amount))
}
