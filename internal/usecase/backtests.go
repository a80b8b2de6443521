package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AssetRevest/internal/domain/models"
	domrepo "AssetRevest/internal/domain/repository"
	"AssetRevest/internal/domain/service"
	"AssetRevest/internal/services/backtest"
	"AssetRevest/pkg/cache"
	"AssetRevest/pkg/config"
	applogger "AssetRevest/pkg/logger"
	"AssetRevest/pkg/queue"
	"AssetRevest/pkg/util"
)

// BacktestJobType is the queue message type of backtest jobs.
const BacktestJobType = "backtest"

type BacktestState string

const (
	BacktestQueued    BacktestState = "queued"
	BacktestRunning   BacktestState = "running"
	BacktestCompleted BacktestState = "completed"
	BacktestFailed    BacktestState = "failed"
)

// BacktestReport is a finished run with its statistics and benchmark.
type BacktestReport struct {
	Result    *backtest.Result    `json:"result"`
	Summary   backtest.Summary    `json:"summary"`
	Benchmark *backtest.Benchmark `json:"benchmark,omitempty"`
}

// BacktestStatus is what GET /api/backtests/:id returns. Trades and the daily
// log stay out of it; the completed event carries the summary only as well.
type BacktestStatus struct {
	ID        string                 `json:"id"`
	State     BacktestState          `json:"state"`
	Request   models.BacktestRequest `json:"request"`
	Summary   *backtest.Summary      `json:"summary,omitempty"`
	Benchmark *backtest.Benchmark    `json:"benchmark,omitempty"`
	Trades    int                    `json:"trades"`
	Error     string                 `json:"error,omitempty"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Backtests runs replays synchronously for the CLI and through the job
// queue for the API.
type Backtests struct {
	bars      service.BarSource
	loader    service.SnapshotLoader
	universe  config.Universe
	params    config.Strategy
	queue     queue.Publisher
	status    cache.Service
	statusTTL time.Duration
	events    domrepo.EventPublisher
	metrics   domrepo.Metrics
	l         *applogger.Logger
}

func NewBacktests(bars service.BarSource, loader service.SnapshotLoader, q queue.Publisher, status cache.Service,
	events domrepo.EventPublisher, metrics domrepo.Metrics, u config.Universe, p config.Strategy) *Backtests {
	return &Backtests{
		bars:      bars,
		loader:    loader,
		universe:  u,
		params:    p,
		queue:     q,
		status:    status,
		statusTTL: 7 * 24 * time.Hour,
		events:    events,
		metrics:   metrics,
		l:         applogger.Nop(),
	}
}

// SetLogger injects a structured logger.
func (b *Backtests) SetLogger(l *applogger.Logger) { b.l = applogger.OrNop(l) }

// Run replays [start, end]. Empty bounds default to the benchmark's first
// date with a defined slow SMA and its last stored date.
func (b *Backtests) Run(ctx context.Context, req models.BacktestRequest, verbose bool) (*BacktestReport, error) {
	from, to, err := b.resolveRange(ctx, req)
	if err != nil {
		return nil, err
	}
	capital := req.Capital
	if capital <= 0 {
		capital = b.params.Backtest.InitialCapital
	}

	start := time.Now()
	sim := backtest.NewSimulator(b.bars, b.loader, b.universe, b.params, backtest.WithLogger(b.l), backtest.WithVerbose(verbose))
	res, err := sim.Run(ctx, from, to, capital)
	if err != nil {
		b.metrics.RecordError("backtest")
		return nil, err
	}
	b.metrics.RecordLatency("backtest", time.Since(start).Seconds())
	b.metrics.RecordEquity("backtest", res.FinalCapital)

	report := &BacktestReport{Result: res, Summary: res.Summary()}
	bench, err := backtest.BuyAndHold(ctx, b.bars, b.universe.Benchmark, from, to, capital)
	switch {
	case errors.Is(err, backtest.ErrNoPrices):
	case err != nil:
		return nil, err
	default:
		report.Benchmark = bench
	}
	return report, nil
}

// SweepStops replays the same range once per standard stop percentage.
// Stage 3 entries share the stop so the two long plans stay comparable.
func (b *Backtests) SweepStops(ctx context.Context, req models.BacktestRequest, stops []float64) ([]backtest.SweepResult, error) {
	from, to, err := b.resolveRange(ctx, req)
	if err != nil {
		return nil, err
	}
	capital := req.Capital
	if capital <= 0 {
		capital = b.params.Backtest.InitialCapital
	}

	scenarios := make([]backtest.Scenario, 0, len(stops))
	for _, stop := range stops {
		if stop <= 0 || stop >= 1 {
			return nil, fmt.Errorf("stop %v outside (0, 1)", stop)
		}
		p := b.params
		p.Exits.Standard.StopPct = stop
		p.Exits.Stage3.StopPct = stop
		scenarios = append(scenarios, backtest.Scenario{
			Name:     fmt.Sprintf("stop=%g%%", util.Round2(stop*100)),
			Strategy: p,
			Start:    from,
			End:      to,
			Capital:  capital,
		})
	}

	start := time.Now()
	results := backtest.Sweep(ctx, b.bars, b.loader, b.universe, scenarios, b.params.Backtest.Workers, b.l)
	b.metrics.RecordLatency("backtest_sweep", time.Since(start).Seconds())
	return results, nil
}

// Submit enqueues a backtest job and records it as queued.
func (b *Backtests) Submit(ctx context.Context, req models.BacktestRequest) (*BacktestStatus, error) {
	if b.queue == nil {
		return nil, queue.ErrNotRunning
	}
	id, err := b.queue.Enqueue(ctx, BacktestJobType, req)
	if err != nil {
		return nil, fmt.Errorf("enqueue backtest: %w", err)
	}
	st := &BacktestStatus{ID: id, State: BacktestQueued, Request: req, UpdatedAt: time.Now().UTC()}
	if err := b.save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Get returns the status of a submitted job, or ErrNotFound.
func (b *Backtests) Get(ctx context.Context, id string) (*BacktestStatus, error) {
	var st BacktestStatus
	err := b.status.Get(ctx, statusKey(id), &st)
	switch {
	case errors.Is(err, cache.ErrCacheMiss):
		return nil, domrepo.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("backtest status %s: %w", id, err)
	}
	return &st, nil
}

func (b *Backtests) save(ctx context.Context, st *BacktestStatus) error {
	st.UpdatedAt = time.Now().UTC()
	if err := b.status.Set(ctx, statusKey(st.ID), st, b.statusTTL); err != nil {
		return fmt.Errorf("save backtest status %s: %w", st.ID, err)
	}
	return nil
}

func (b *Backtests) resolveRange(ctx context.Context, req models.BacktestRequest) (time.Time, time.Time, error) {
	from, _ := util.ParseDate(req.Start)
	to, _ := util.ParseDate(req.End)
	if !from.IsZero() && !to.IsZero() {
		return from, to, nil
	}
	bars, err := b.bars.GetBarsInRange(ctx, b.universe.Benchmark, time.Time{}, time.Time{})
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("backtest range: %w", err)
	}
	if len(bars) == 0 {
		return from, to, nil
	}
	if from.IsZero() {
		periods := b.params.Indicators.SMAPeriods
		warmup := periods[len(periods)-1] - 1
		if warmup >= len(bars) {
			warmup = len(bars) - 1
		}
		from = bars[warmup].Date
	}
	if to.IsZero() {
		to = bars[len(bars)-1].Date
	}
	return from, to, nil
}

func statusKey(id string) string {
	return cache.GenerateKey("backtest", id)
}

// BacktestJob runs queued backtests on a worker.
type BacktestJob struct {
	runs *Backtests
}

var _ queue.Job = (*BacktestJob)(nil)

func NewBacktestJob(runs *Backtests) *BacktestJob {
	return &BacktestJob{runs: runs}
}

func (j *BacktestJob) Name() string { return "backtest-runner" }

func (j *BacktestJob) Type() string { return BacktestJobType }

// Handle runs the job and stores its outcome. A failed run is recorded and
// returned so the queue retries it.
func (j *BacktestJob) Handle(ctx context.Context, msg queue.Message) error {
	req, err := queue.Decode[models.BacktestRequest](msg)
	if err != nil {
		return err
	}
	st := &BacktestStatus{ID: msg.ID, State: BacktestRunning, Request: *req}
	if err := j.runs.save(ctx, st); err != nil {
		j.runs.l.Warn("save backtest status failed", applogger.String("id", msg.ID), applogger.Error(err))
	}

	report, err := j.runs.Run(ctx, *req, false)
	if err != nil {
		st.State = BacktestFailed
		st.Error = err.Error()
		if serr := j.runs.save(ctx, st); serr != nil {
			j.runs.l.Warn("save backtest status failed", applogger.String("id", msg.ID), applogger.Error(serr))
		}
		return fmt.Errorf("backtest %s: %w", msg.ID, err)
	}

	st.State = BacktestCompleted
	st.Summary = &report.Summary
	st.Benchmark = report.Benchmark
	st.Trades = len(report.Result.Trades)
	if err := j.runs.save(ctx, st); err != nil {
		return err
	}
	publishEvent(ctx, j.runs.events, j.runs.metrics, j.runs.l, models.EventBacktestCompleted, msg.ID, st)
	j.runs.l.Info("backtest job completed",
		applogger.String("id", msg.ID),
		applogger.Int("trades", st.Trades),
		applogger.Float64("total_return_pct", report.Summary.TotalReturnPct),
	)
	return nil
}
