package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"AssetRevest/internal/domain/models"
	domrepo "AssetRevest/internal/domain/repository"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signals *prometheus.CounterVec
	exits   *prometheus.CounterVec
	trades  *prometheus.CounterVec
	pnl     *prometheus.HistogramVec
	equity  *prometheus.GaugeVec
	errors  *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

var _ domrepo.Metrics = (*Recorder)(nil)

// New creates a recorder registered on reg, or on the default registry when
// reg is nil.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "revest_signals_total",
				Help: "Rotation signals by asset and strength",
			},
			[]string{"asset", "strength"},
		),
		exits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "revest_exits_total",
				Help: "Exit decisions by reason",
			},
			[]string{"reason"},
		),
		trades: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "revest_trades_total",
				Help: "Closed trades by symbol and outcome",
			},
			[]string{"symbol", "outcome"},
		),
		pnl: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "revest_trade_pnl_pct",
				Help:    "Closed trade return in percent",
				Buckets: []float64{-20, -10, -5, -2, 0, 2, 5, 10, 20, 50},
			},
			[]string{"symbol"},
		),
		equity: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "revest_equity",
				Help: "Last marked portfolio equity",
			},
			[]string{"source"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "revest_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "revest_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordSignal(asset string, strength models.Strength) {
	r.signals.WithLabelValues(asset, string(strength)).Inc()
}

func (r *Recorder) RecordExit(reason models.ExitReason) {
	r.exits.WithLabelValues(string(reason)).Inc()
}

// RecordTrade counts a closed trade. A trade with pnl <= 0 is a loss.
func (r *Recorder) RecordTrade(symbol string, pnlPct float64) {
	outcome := "win"
	if pnlPct <= 0 {
		outcome = "loss"
	}
	r.trades.WithLabelValues(symbol, outcome).Inc()
	r.pnl.WithLabelValues(symbol).Observe(pnlPct)
}

func (r *Recorder) RecordEquity(source string, equity float64) {
	r.equity.WithLabelValues(source).Set(equity)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

var _ domrepo.Metrics = Nop{}

func (Nop) RecordSignal(string, models.Strength) {}
func (Nop) RecordExit(models.ExitReason)         {}
func (Nop) RecordTrade(string, float64)          {}
func (Nop) RecordEquity(string, float64)         {}
func (Nop) RecordError(string)                   {}
func (Nop) RecordLatency(string, float64)        {}
