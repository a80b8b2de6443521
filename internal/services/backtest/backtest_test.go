package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AssetRevest/internal/domain/models"
	"AssetRevest/internal/repository"
	"AssetRevest/internal/services/indicators"
	"AssetRevest/internal/services/market"
	"AssetRevest/internal/services/position"
	"AssetRevest/internal/services/stage"
	"AssetRevest/pkg/config"
	"AssetRevest/pkg/util"
)

const days = 300

var start = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func dates() []time.Time {
	out := make([]time.Time, days)
	for i := range out {
		out[i] = util.AddBusinessDays(start, i)
	}
	return out
}

func closeAt(t int) float64 { return 100 + 0.5*float64(t) }

type fixture struct {
	skip  map[int]bool
	vix   map[int]float64
	bars  map[int]func(*models.PriceBar)
	stage models.Stage
	from  int
}

type option func(*fixture)

// withoutSPY drops SPY bars at the given indexes; the calendar symbol keeps them.
func withoutSPY(idx ...int) option {
	return func(f *fixture) {
		for _, i := range idx {
			f.skip[i] = true
		}
	}
}

// withVix sets the VIX close on days [from, to].
func withVix(level float64, from, to int) option {
	return func(f *fixture) {
		for i := from; i <= to; i++ {
			f.vix[i] = level
		}
	}
}

func withBar(i int, fn func(*models.PriceBar)) option {
	return func(f *fixture) { f.bars[i] = fn }
}

// withConfirmedStage overrides the confirmed SPY stage from day i on.
func withConfirmedStage(st models.Stage, i int) option {
	return func(f *fixture) { f.stage, f.from = st, i }
}

// uptrend seeds a steadily rising SPY with a calm VIX and no breadth data.
func uptrend(t *testing.T, cfg *config.Config, opts ...option) *repository.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	f := &fixture{skip: map[int]bool{}, vix: map[int]float64{}, bars: map[int]func(*models.PriceBar){}}
	for _, opt := range opts {
		opt(f)
	}

	var spy, cal []models.PriceBar
	var vix []models.VixBar
	ds := dates()
	for i, d := range ds {
		c := closeAt(i)
		bar := models.PriceBar{Symbol: "SPY", Date: d, Open: c - 0.25, High: c + 1, Low: c - 1, Close: c, Volume: 1e6}
		if fn := f.bars[i]; fn != nil {
			fn(&bar)
		}
		cal = append(cal, models.PriceBar{Symbol: "CAL", Date: d, Close: 1})
		if !f.skip[i] {
			spy = append(spy, bar)
		}
		level := 14.0
		if v, ok := f.vix[i]; ok {
			level = v
		}
		vix = append(vix, models.VixBar{Date: d, Close: level})
	}
	require.NoError(t, store.UpsertBars(ctx, spy))
	require.NoError(t, store.UpsertBars(ctx, cal))

	snaps := indicators.ComputeSymbol(spy, cfg.Strategy.Indicators, cfg.Strategy.ATR)
	require.NoError(t, store.UpsertIndicators(ctx, snaps))
	recs, _ := stage.Fold(stage.Initial(), snaps, cfg.Strategy.Stage)
	if f.stage != "" {
		for i := range recs {
			if !recs[i].Date.Before(ds[f.from]) {
				recs[i].ConfirmedStage = f.stage
			}
		}
	}
	require.NoError(t, store.UpsertStageRecords(ctx, recs))
	require.NoError(t, store.UpsertVix(ctx, indicators.VixSeries(vix, cfg.Strategy.Vix)))
	return store
}

func simulator(store *repository.MemoryStore, cfg *config.Config) *Simulator {
	loader := market.NewLoader(store, cfg.Universe.ComputeSymbols())
	return NewSimulator(store, loader, cfg.Universe, cfg.Strategy)
}

func TestRunUptrend(t *testing.T) {
	cfg := config.Default()
	store := uptrend(t, cfg)
	ds := dates()

	res, err := simulator(store, cfg).Run(context.Background(), ds[0], ds[days-1], 100000)
	require.NoError(t, err)
	require.Len(t, res.DailyLog, days)

	// SMA200 slope first exists on day 219; three agreeing days confirm STAGE_2.
	require.NotEmpty(t, res.Signals)
	sig := res.Signals[0]
	assert.Equal(t, ds[221], sig.Date)
	assert.Equal(t, "SPY", sig.Asset)
	assert.Equal(t, models.Long, sig.Direction)
	assert.Equal(t, models.StrongEntry, sig.Strength)
	assert.Equal(t, models.StatusEntering, res.DailyLog[221].Status)
	assert.Equal(t, models.StatusCash, res.DailyLog[220].Status)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, ds[222], tr.EntryDate)
	assert.InDelta(t, closeAt(222)-0.25, tr.EntryPrice, 1e-9)
	assert.Equal(t, models.ExitBacktestEnd, tr.ExitReason)
	assert.Equal(t, ds[days-1], tr.ExitDate)
	assert.Equal(t, util.Round2((closeAt(days-1)-tr.EntryPrice)/tr.EntryPrice*100), tr.PnLPct)

	// first target at 2% above entry is reached on day 230
	assert.Equal(t, models.StatusPositioned, res.DailyLog[229].Status)
	assert.Equal(t, models.StatusPartialExit, res.DailyLog[230].Status)

	assert.Greater(t, res.FinalCapital, 100000.0)
	assert.Equal(t, res.DailyLog[days-1].Equity, res.FinalCapital)

	sum := res.Summary()
	assert.Equal(t, 1, sum.TotalTrades)
	assert.Equal(t, 100.0, sum.WinRate)
	assert.Equal(t, 1, sum.ExitReasons[models.ExitBacktestEnd])
	assert.Equal(t, 0.0, sum.MaxDrawdownPct)
	assert.Equal(t, 73.7, sum.CashPct)
	assert.Equal(t, days, sum.TotalDays)
}

func TestRunNeverFillsOnSignalDay(t *testing.T) {
	cfg := config.Default()
	store := uptrend(t, cfg)
	ds := dates()

	res, err := simulator(store, cfg).Run(context.Background(), ds[0], ds[days-1], 100000)
	require.NoError(t, err)
	require.NotEmpty(t, res.Signals)

	for i, tr := range res.Trades {
		sig := res.Signals[i]
		assert.True(t, tr.EntryDate.After(sig.Date), "trade %d entered %v on signal %v", i, tr.EntryDate, sig.Date)
		bar, err := store.GetBar(context.Background(), tr.Symbol, tr.EntryDate)
		require.NoError(t, err)
		assert.Equal(t, bar.Open, tr.EntryPrice)
	}
}

func TestRunCarriesLastCloseOverGaps(t *testing.T) {
	cfg := config.Default()
	cfg.Universe.Benchmark = "CAL"
	store := uptrend(t, cfg, withoutSPY(240))
	ds := dates()

	res, err := simulator(store, cfg).Run(context.Background(), ds[0], ds[days-1], 100000)
	require.NoError(t, err)
	require.Len(t, res.DailyLog, days)

	assert.Equal(t, "SPY", res.DailyLog[240].Symbol)
	assert.Equal(t, res.DailyLog[239].Equity, res.DailyLog[240].Equity)
	assert.Greater(t, res.DailyLog[241].Equity, res.DailyLog[240].Equity)
}

func TestRunVixEmergencyCooldown(t *testing.T) {
	cfg := config.Default()
	store := uptrend(t, cfg, withVix(45, 240, 249))
	ds := dates()

	res, err := simulator(store, cfg).Run(context.Background(), ds[0], ds[days-1], 100000)
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	first := res.Trades[0]
	assert.Equal(t, ds[222], first.EntryDate)
	assert.Equal(t, ds[240], first.ExitDate)
	assert.Equal(t, models.ExitVixEmergency, first.ExitReason)

	for i := 240; i <= 249; i++ {
		assert.Equal(t, models.StatusCash, res.DailyLog[i].Status, "day %d", i)
	}
	require.Len(t, res.Signals, 2)
	assert.Equal(t, ds[250], res.Signals[1].Date)
	assert.Equal(t, models.StatusEntering, res.DailyLog[250].Status)
	assert.Equal(t, models.StatusPositioned, res.DailyLog[251].Status)
	assert.Equal(t, ds[251], res.Trades[1].EntryDate)
	assert.Equal(t, models.ExitBacktestEnd, res.Trades[1].ExitReason)
}

func TestRunCooldownAfterExit(t *testing.T) {
	tests := []struct {
		name     string
		cooldown int
		signal   int
	}{
		{"one day", 1, 241},
		{"three days", 3, 243},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Strategy.Backtest.CooldownDays = tt.cooldown
			store := uptrend(t, cfg, withVix(45, 240, 240))
			ds := dates()

			res, err := simulator(store, cfg).Run(context.Background(), ds[0], ds[days-1], 100000)
			require.NoError(t, err)

			require.NotEmpty(t, res.Trades)
			assert.Equal(t, models.ExitVixEmergency, res.Trades[0].ExitReason)
			require.Len(t, res.Signals, 2)
			assert.Equal(t, ds[tt.signal], res.Signals[1].Date)
			for i := 240; i < tt.signal; i++ {
				assert.Equal(t, models.StatusCash, res.DailyLog[i].Status, "day %d", i)
			}
		})
	}
}

func TestRunExits(t *testing.T) {
	crash := func(b *models.PriceBar) { b.Open, b.High, b.Low, b.Close = 150, 150, 150, 150 }
	tests := []struct {
		name   string
		opts   []option
		day    int
		reason models.ExitReason
		price  float64
	}{
		{"stop hit", []option{withBar(226, crash)}, 226, models.ExitStopHit, 150},
		{"stage change", []option{withConfirmedStage(models.Stage3, 235)}, 235, models.ExitStageChange, closeAt(235)},
		{"vix emergency", []option{withVix(45, 232, 260)}, 232, models.ExitVixEmergency, closeAt(232)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			store := uptrend(t, cfg, tt.opts...)
			ds := dates()

			res, err := simulator(store, cfg).Run(context.Background(), ds[0], ds[days-1], 100000)
			require.NoError(t, err)

			require.NotEmpty(t, res.Trades)
			tr := res.Trades[0]
			assert.Equal(t, ds[222], tr.EntryDate)
			assert.Equal(t, ds[tt.day], tr.ExitDate)
			assert.Equal(t, tt.reason, tr.ExitReason)
			assert.InDelta(t, tt.price, tr.ExitPrice, 1e-9)
			assert.Equal(t, models.StatusCash, res.DailyLog[tt.day].Status)
		})
	}
}

func TestRunFillsAtCloseWithoutOpen(t *testing.T) {
	cfg := config.Default()
	store := uptrend(t, cfg, withBar(222, func(b *models.PriceBar) { b.Open = 0 }))
	ds := dates()

	res, err := simulator(store, cfg).Run(context.Background(), ds[0], ds[days-1], 100000)
	require.NoError(t, err)
	require.NotEmpty(t, res.Trades)
	assert.Equal(t, ds[222], res.Trades[0].EntryDate)
	assert.InDelta(t, closeAt(222), res.Trades[0].EntryPrice, 1e-9)
}

func TestFillCancelledByVixCooldown(t *testing.T) {
	cfg := config.Default()
	store := uptrend(t, cfg)
	ds := dates()
	s := simulator(store, cfg)
	rot := models.Rotation{Date: ds[221], Asset: "SPY", Underlying: "SPY", Direction: models.Long, Tier: 1}

	r := &run{book: position.NewBook(1000), res: &Result{}}
	r.book.SetVixCooldown(true)
	r.pending = &pending{rot: rot, stage: models.Stage2}
	require.NoError(t, s.fill(context.Background(), r, ds[222]))
	assert.Nil(t, r.pending)
	assert.True(t, r.book.Flat())

	r.book.SetVixCooldown(false)
	r.pending = &pending{rot: rot, stage: models.Stage2}
	require.NoError(t, s.fill(context.Background(), r, ds[222]))
	pos := r.book.Position()
	require.NotNil(t, pos)
	assert.InDelta(t, closeAt(222)-0.25, pos.EntryPrice, 1e-9)
}

func TestRunWithoutTradingDates(t *testing.T) {
	cfg := config.Default()
	store := repository.NewMemoryStore()
	res, err := simulator(store, cfg).Run(context.Background(), start, start.AddDate(0, 1, 0), 5000)
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Empty(t, res.DailyLog)
	assert.Equal(t, 5000.0, res.FinalCapital)
}

func TestSummary(t *testing.T) {
	res := &Result{
		Start:          start,
		End:            start.AddDate(2, 0, 0),
		InitialCapital: 1000,
		FinalCapital:   1100,
		Trades: []models.Trade{
			{PnLPct: 4, HoldingDays: 10, ExitReason: models.ExitTargetHit},
			{PnLPct: -2, HoldingDays: 3, ExitReason: models.ExitStopHit},
			{PnLPct: 6, HoldingDays: 20, ExitReason: models.ExitStageChange},
			{PnLPct: 0, HoldingDays: 5, ExitReason: models.ExitStopHit},
		},
		DailyLog: []models.DailyLogEntry{
			{Status: models.StatusCash, Equity: 1000},
			{Status: models.StatusPositioned, Equity: 1200},
			{Status: models.StatusPositioned, Equity: 900},
			{Status: models.StatusCash, Equity: 1100},
		},
	}
	sum := res.Summary()

	assert.Equal(t, 4, sum.TotalTrades)
	assert.Equal(t, 2.0, sum.Years)
	assert.Equal(t, 2.0, sum.TradesPerYear)
	assert.Equal(t, 50.0, sum.WinRate)
	assert.Equal(t, 5.0, sum.AvgWin)
	assert.Equal(t, -1.0, sum.AvgLoss)
	assert.Equal(t, 6.0, sum.BestTrade)
	assert.Equal(t, -2.0, sum.WorstTrade)
	assert.Equal(t, 10.0, sum.TotalReturnPct)
	assert.Equal(t, 25.0, sum.MaxDrawdownPct)
	assert.Equal(t, 9.5, sum.AvgHoldingDays)
	assert.Equal(t, 7.5, sum.MedianHoldingDays)
	assert.Equal(t, 50.0, sum.CashPct)
	assert.Equal(t, 2, sum.ExitReasons[models.ExitStopHit])
}

func TestSummaryShortRunFloorsYears(t *testing.T) {
	res := &Result{Start: start, End: start.AddDate(0, 1, 0), Trades: []models.Trade{{PnLPct: 1}}}
	sum := res.Summary()
	assert.Equal(t, 0.5, sum.Years)
	assert.Equal(t, 2.0, sum.TradesPerYear)
}

func TestBuyAndHold(t *testing.T) {
	cfg := config.Default()
	store := uptrend(t, cfg)
	ds := dates()

	b, err := BuyAndHold(context.Background(), store, "SPY", ds[0], ds[days-1], 100000)
	require.NoError(t, err)
	assert.Equal(t, 100.0, b.StartPrice)
	assert.Equal(t, 249.5, b.EndPrice)
	assert.Equal(t, 149.5, b.TotalReturnPct)
	assert.Equal(t, 0.0, b.MaxDrawdownPct)
	assert.Equal(t, 249500.0, b.FinalCapital)

	_, err = BuyAndHold(context.Background(), store, "TLT", ds[0], ds[days-1], 100000)
	assert.ErrorIs(t, err, ErrNoPrices)
}

func TestMaxDrawdown(t *testing.T) {
	assert.InDelta(t, 50.0, MaxDrawdown(100, []float64{100, 120, 60, 130, 100}), 1e-9)
	assert.InDelta(t, 20.0, MaxDrawdown(100, []float64{80, 90}), 1e-9)
	assert.Equal(t, 0.0, MaxDrawdown(0, nil))
}

func TestSweep(t *testing.T) {
	cfg := config.Default()
	store := uptrend(t, cfg)
	ds := dates()
	loader := market.NewLoader(store, cfg.Universe.ComputeSymbols())

	tight := cfg.Strategy
	tight.Exits.Standard.TargetPct = 0.01
	scenarios := []Scenario{
		{Name: "default", Strategy: cfg.Strategy, Start: ds[0], End: ds[days-1], Capital: 100000},
		{Name: "tight-target", Strategy: tight, Start: ds[0], End: ds[days-1], Capital: 100000},
		{Name: "late", Strategy: cfg.Strategy, Start: ds[250], End: ds[days-1], Capital: 50000},
	}
	out := Sweep(context.Background(), store, loader, cfg.Universe, scenarios, 2, nil)
	require.Len(t, out, 3)
	for i, r := range out {
		require.NoError(t, r.Err)
		assert.Equal(t, scenarios[i].Name, r.Scenario)
		require.NotNil(t, r.Summary)
	}
	assert.Equal(t, out[0].Result.Trades[0].EntryDate, out[1].Result.Trades[0].EntryDate)
	assert.Equal(t, 50000.0, out[2].Result.InitialCapital)
}
