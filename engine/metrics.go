package engine

import (
	"math/big"

	"github.com/defistate/defistate-amm-go/protocols/constantproduct"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	opDeposit  = "deposit"
	opWithdraw = "withdraw"
	opSwap     = "swap"
)

// Metrics holds all the Prometheus metrics for the engine.
type Metrics struct {
	operationDuration *prometheus.HistogramVec
	operationsTotal   *prometheus.CounterVec
	reserves          *prometheus.GaugeVec
	totalShares       prometheus.Gauge
	sequence          prometheus.Gauge
}

// NewMetrics creates and registers the metrics for the engine.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "amm_operation_duration_seconds",
			Help:    "Time taken to run a pool operation, including ledger transfers.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_operations_total",
			Help: "Total number of pool operations, labeled by operation and result.",
		}, []string{"operation", "result"}),
		reserves: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "amm_reserve_units",
			Help: "Committed reserve per pool asset, in raw fixed-point units.",
		}, []string{"asset"}),
		totalShares: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "amm_total_shares_units",
			Help: "Committed share supply, in raw fixed-point units.",
		}),
		sequence: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "amm_pool_sequence",
			Help: "Sequence number of the last committed pool mutation.",
		}),
	}
	reg.MustRegister(m.operationDuration, m.operationsTotal, m.reserves, m.totalShares, m.sequence)
	return m
}

func (m *Metrics) observeResult(operation string, err error) {
	m.operationsTotal.WithLabelValues(operation, resultLabel(err)).Inc()
}

// observeState publishes the gauges for a committed snapshot.
// Gauges are float64, so large values lose precision; they are for dashboards only.
func (m *Metrics) observeState(state *constantproduct.PoolState) {
	m.reserves.WithLabelValues(state.Asset1.Hex()).Set(toFloat(state.Reserve1))
	m.reserves.WithLabelValues(state.Asset2.Hex()).Set(toFloat(state.Reserve2))
	m.totalShares.Set(toFloat(state.TotalShares))
	m.sequence.Set(float64(state.Sequence))
}

func toFloat(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
