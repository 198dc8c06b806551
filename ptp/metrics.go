package ptp

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the engine. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Transactions        *prometheus.CounterVec
	TransactionDuration *prometheus.HistogramVec
	ResponseRetries     prometheus.Counter
	StaleReplies        prometheus.Counter
	PropCache           *prometheus.CounterVec
	ObjectCacheSize     prometheus.Gauge
	Events              *prometheus.CounterVec
	DataBytes           *prometheus.CounterVec
}

// NewMetrics creates the engine metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptp_transactions_total",
				Help: "PTP transactions by operation and result",
			},
			[]string{"op", "result"}, // "ok", "device", "cancelled", "error"
		),
		TransactionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ptp_transaction_duration_seconds",
				Help:    "PTP transaction duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		ResponseRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ptp_response_retries_total",
				Help: "Response reads repeated after a timeout or not-ready",
			},
		),
		StaleReplies: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ptp_stale_replies_total",
				Help: "Responses skipped because they belong to an earlier transaction",
			},
		),
		PropCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptp_prop_cache_total",
				Help: "Device property cache lookups by result",
			},
			[]string{"result"}, // "hit", "miss", "refresh"
		),
		ObjectCacheSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ptp_object_cache_size",
				Help: "Objects currently in the object cache",
			},
		),
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptp_events_total",
				Help: "Absorbed device events by code",
			},
			[]string{"code"},
		),
		DataBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptp_data_bytes_total",
				Help: "Data phase payload bytes by direction",
			},
			[]string{"dir"},
		),
	}

	reg.MustRegister(
		m.Transactions,
		m.TransactionDuration,
		m.ResponseRetries,
		m.StaleReplies,
		m.PropCache,
		m.ObjectCacheSize,
		m.Events,
		m.DataBytes,
	)
	return m
}

func transactionResult(err error) string {
	var rc RCError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.As(err, &rc):
		return "device"
	}
	return "error"
}

func (m *Metrics) observeTransaction(op string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.Transactions.WithLabelValues(op, transactionResult(err)).Inc()
	m.TransactionDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) responseRetry() {
	if m == nil {
		return
	}
	m.ResponseRetries.Inc()
}

func (m *Metrics) staleReply() {
	if m == nil {
		return
	}
	m.StaleReplies.Inc()
}

func (m *Metrics) propCache(result string) {
	if m == nil {
		return
	}
	m.PropCache.WithLabelValues(result).Inc()
}

func (m *Metrics) setObjects(n int) {
	if m == nil {
		return
	}
	m.ObjectCacheSize.Set(float64(n))
}

func (m *Metrics) event(code string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(code).Inc()
}

func (m *Metrics) addData(dir string, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.DataBytes.WithLabelValues(dir).Add(float64(n))
}
