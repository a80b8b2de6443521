package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domrepo "AssetRevest/internal/domain/repository"
	"AssetRevest/internal/services/indicators"
	"AssetRevest/internal/services/stage"
	"AssetRevest/pkg/config"
	applogger "AssetRevest/pkg/logger"
)

// Pipeline recomputes every derived series from the stored raw bars.
type Pipeline struct {
	store    domrepo.Store
	universe config.Universe
	params   config.Strategy
	metrics  domrepo.Metrics
	workers  int
	l        *applogger.Logger
}

func NewPipeline(store domrepo.Store, u config.Universe, p config.Strategy, metrics domrepo.Metrics, workers int) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{store: store, universe: u, params: p, metrics: metrics, workers: workers, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (p *Pipeline) SetLogger(l *applogger.Logger) { p.l = applogger.OrNop(l) }

// SymbolResult is the outcome of one symbol's recompute.
type SymbolResult struct {
	Symbol     string `json:"symbol"`
	Bars       int    `json:"bars"`
	Indicators int    `json:"indicators"`
	Stages     int    `json:"stages"`
	Error      string `json:"error,omitempty"`
}

type PipelineResult struct {
	Symbols  []SymbolResult `json:"symbols"`
	Vix      int            `json:"vix"`
	Volume   int            `json:"volume"`
	Duration time.Duration  `json:"duration"`
}

// Run recomputes indicators and the full stage fold for every compute symbol,
// then the VIX and breadth series. Symbols run in parallel; a failed symbol
// does not stop the others and is reported in the joined error.
func (p *Pipeline) Run(ctx context.Context) (*PipelineResult, error) {
	start := time.Now()
	symbols := p.universe.ComputeSymbols()
	res := &PipelineResult{Symbols: make([]SymbolResult, len(symbols))}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < p.workers && w < len(symbols); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res.Symbols[i] = p.computeSymbol(ctx, symbols[i])
			}
		}()
	}
	for i := range symbols {
		select {
		case jobs <- i:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var errs []error
	for _, sr := range res.Symbols {
		if sr.Error != "" {
			errs = append(errs, fmt.Errorf("%s: %s", sr.Symbol, sr.Error))
		}
	}

	n, err := p.computeVix(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("vix: %w", err))
	}
	res.Vix = n
	if n, err = p.computeVolume(ctx); err != nil {
		errs = append(errs, fmt.Errorf("volume: %w", err))
	}
	res.Volume = n

	res.Duration = time.Since(start)
	p.metrics.RecordLatency("pipeline", res.Duration.Seconds())
	if len(errs) > 0 {
		p.metrics.RecordError("pipeline")
	}
	p.l.Info("pipeline completed",
		applogger.Int("symbols", len(symbols)),
		applogger.Int("failed", len(errs)),
		applogger.Int("vix", res.Vix),
		applogger.Int("volume", res.Volume),
		applogger.Duration("duration_ms", res.Duration),
	)
	return res, errors.Join(errs...)
}

// computeSymbol writes each symbol as one indicator batch and one stage batch.
func (p *Pipeline) computeSymbol(ctx context.Context, symbol string) SymbolResult {
	sr := SymbolResult{Symbol: symbol}
	fail := func(err error) SymbolResult {
		sr.Error = err.Error()
		p.l.Error("pipeline symbol failed", applogger.String("symbol", symbol), applogger.Error(err))
		return sr
	}

	bars, err := p.store.GetBarsInRange(ctx, symbol, time.Time{}, time.Time{})
	if err != nil {
		return fail(fmt.Errorf("load bars: %w", err))
	}
	sr.Bars = len(bars)
	if len(bars) == 0 {
		p.l.Warn("no bars for symbol", applogger.String("symbol", symbol))
		return sr
	}

	snaps := indicators.ComputeSymbol(bars, p.params.Indicators, p.params.ATR)
	if err := p.store.UpsertIndicators(ctx, snaps); err != nil {
		return fail(fmt.Errorf("upsert indicators: %w", err))
	}
	sr.Indicators = len(snaps)

	recs, last := stage.Fold(stage.Initial(), snaps, p.params.Stage)
	if err := p.store.UpsertStageRecords(ctx, recs); err != nil {
		return fail(fmt.Errorf("upsert stages: %w", err))
	}
	sr.Stages = len(recs)

	p.l.Debug("symbol computed",
		applogger.String("symbol", symbol),
		applogger.Int("bars", sr.Bars),
		applogger.String("stage", last.Confirmed.String()),
	)
	return sr
}

func (p *Pipeline) computeVix(ctx context.Context) (int, error) {
	bars, err := p.store.GetVixBars(ctx, time.Time{}, time.Time{})
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, nil
	}
	snaps := indicators.VixSeries(bars, p.params.Vix)
	return len(snaps), p.store.UpsertVix(ctx, snaps)
}

func (p *Pipeline) computeVolume(ctx context.Context) (int, error) {
	bars, err := p.store.GetBreadth(ctx, time.Time{}, time.Time{})
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, nil
	}
	snaps := indicators.VolumeSeries(bars, p.params.Volume)
	return len(snaps), p.store.UpsertVolume(ctx, snaps)
}
