package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector tracks ledger throughput and wallet balances on a private
// Prometheus registry.
type Collector struct {
	registry           *prometheus.Registry
	transfersProcessed prometheus.Counter
	transfersFailed    prometheus.Counter
	transferDuration   prometheus.Histogram
	walletBalance      *prometheus.GaugeVec
}

// NewCollector builds a collector with its own registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		transfersProcessed: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "ledger_transfers_processed_total",
			Help: "Total number of successfully processed transfers",
		}),
		transfersFailed: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "ledger_transfers_failed_total",
			Help: "Total number of rejected or rolled-back transfers",
		}),
		transferDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_transfer_duration_seconds",
			Help:    "Time taken to execute a transfer batch",
			Buckets: prometheus.DefBuckets,
		}),
		walletBalance: promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
			Name: "ledger_wallet_balance",
			Help: "Current wallet balance",
		}, []string{"wallet_id", "asset_type"}),
	}
}

// ObserveTransfer records the outcome and duration of one transfer batch.
func (c *Collector) ObserveTransfer(duration time.Duration, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.transfersFailed.Inc()
		return
	}
	c.transfersProcessed.Inc()
	c.transferDuration.Observe(duration.Seconds())
}

// SetWalletBalance publishes the current balance of a wallet.
func (c *Collector) SetWalletBalance(walletID, assetType string, balance float64) {
	if c == nil {
		return
	}
	c.walletBalance.WithLabelValues(walletID, assetType).Set(balance)
}

// Handler exposes the registry in Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
