package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AssetRevest/internal/domain/models"
	"AssetRevest/pkg/config"
)

func f(v float64) *float64 { return &v }

func newGenerator() *Generator {
	cfg := config.Default()
	return NewGenerator(cfg.Universe, cfg.Strategy)
}

func bull(symbol string) models.IndicatorSnapshot {
	return models.IndicatorSnapshot{
		Symbol: symbol, Close: 110,
		SMA5: f(108), SMA20: f(106), SMA50: f(104), SMA150: f(100), SMA200: f(98),
		Bollinger:        models.Bollinger{PercentB: f(0.7)},
		RelativeStrength: f(5),
	}
}

func bear(symbol string) models.IndicatorSnapshot {
	return models.IndicatorSnapshot{
		Symbol: symbol, Close: 90,
		SMA5: f(92), SMA20: f(94), SMA50: f(96), SMA150: f(100), SMA200: f(102),
		Bollinger:        models.Bollinger{PercentB: f(0.1)},
		RelativeStrength: f(-6),
	}
}

func calmVix() *models.VixSnapshot {
	return &models.VixSnapshot{Close: 14, Regime: models.VixLow, Trend: models.VixFalling}
}

func quietVolume() *models.VolumeSnapshot {
	return &models.VolumeSnapshot{PanicRatio: f(0.8), FomoRatio: f(1.25), FomoRatioMA: f(1.3)}
}

func market(stages map[string]models.Stage, inds ...models.IndicatorSnapshot) *models.MarketSnapshot {
	snap := &models.MarketSnapshot{
		Indicators: map[string]models.IndicatorSnapshot{},
		Stages:     map[string]models.StageRecord{},
		Vix:        calmVix(),
		Volume:     quietVolume(),
	}
	for _, ind := range inds {
		snap.Indicators[ind.Symbol] = ind
	}
	for sym, st := range stages {
		snap.Stages[sym] = models.StageRecord{Symbol: sym, ConfirmedStage: st}
	}
	return snap
}

func TestTrend(t *testing.T) {
	g := newGenerator()

	up := bull("SPY")
	res := g.Trend(&up, models.Long)
	assert.True(t, res.Favorable)
	assert.Equal(t, 5, res.Score)

	res = g.Trend(&up, models.LongInverse)
	assert.False(t, res.Favorable)
	assert.Equal(t, 0, res.Score)

	down := bear("SPY")
	res = g.Trend(&down, models.LongInverse)
	assert.True(t, res.Favorable)
	assert.Contains(t, res.Details, "Y Close(90.00)<SMA5(92.00)")

	up.Close = 107 // below SMA5 only
	res = g.Trend(&up, models.Long)
	assert.Equal(t, 4, res.Score)
	assert.True(t, res.Favorable)

	up.SMA150 = nil
	res = g.Trend(&up, models.Long)
	assert.False(t, res.Favorable)
	assert.Equal(t, 0, res.Score)

	assert.False(t, g.Trend(nil, models.Long).Favorable)
}

func TestVolatility(t *testing.T) {
	g := newGenerator()
	ind := bull("SPY")
	stretched := bull("SPY")
	stretched.Bollinger.PercentB = f(1.2)

	tests := []struct {
		name string
		vix  *models.VixSnapshot
		ind  *models.IndicatorSnapshot
		dir  models.Direction
		want bool
	}{
		{"no vix", nil, &ind, models.Long, false},
		{"low", &models.VixSnapshot{Regime: models.VixLow, Trend: models.VixRising}, &ind, models.Long, true},
		{"normal without bands", &models.VixSnapshot{Regime: models.VixNormal}, nil, models.Long, true},
		{"elevated falling", &models.VixSnapshot{Regime: models.VixElevated, Trend: models.VixFalling}, &ind, models.Long, true},
		{"elevated rising", &models.VixSnapshot{Regime: models.VixElevated, Trend: models.VixRising}, &ind, models.Long, false},
		{"above upper band", &models.VixSnapshot{Regime: models.VixLow}, &stretched, models.Long, false},
		{"high rising inverse", &models.VixSnapshot{Regime: models.VixHigh, Trend: models.VixRising}, &ind, models.LongInverse, true},
		{"high falling inverse", &models.VixSnapshot{Regime: models.VixHigh, Trend: models.VixFalling}, &ind, models.LongInverse, false},
		{"low inverse", &models.VixSnapshot{Regime: models.VixLow, Trend: models.VixRising}, &ind, models.LongInverse, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Volatility(tt.vix, tt.ind, tt.dir).Favorable)
		})
	}
}

func TestVolume(t *testing.T) {
	g := newGenerator()

	none := g.Volume(nil, models.Long)
	assert.True(t, none.Favorable)
	require.Len(t, none.Flags, 1)
	assert.True(t, g.Volume(nil, models.LongInverse).Favorable)

	assert.True(t, g.Volume(quietVolume(), models.Long).Favorable)

	crowded := &models.VolumeSnapshot{PanicRatio: f(0.3), FomoRatio: f(3.4), FomoRatioMA: f(2.6)}
	res := g.Volume(crowded, models.Long)
	assert.False(t, res.Favorable)
	assert.Equal(t, []string{"FOMO WARNING: ratio=3.4"}, res.Flags)
	assert.True(t, g.Volume(crowded, models.LongInverse).Favorable)

	capitulation := &models.VolumeSnapshot{PanicRatio: f(9), FomoRatio: f(0.11), FomoRatioMA: f(2.5)}
	res = g.Volume(capitulation, models.Long)
	assert.True(t, res.Favorable)
	assert.Equal(t, []string{"EXTREME PANIC: ratio=9.0"}, res.Flags)
	assert.False(t, g.Volume(capitulation, models.LongInverse).Favorable)

	partial := g.Volume(&models.VolumeSnapshot{FomoRatioMA: f(1)}, models.Long)
	assert.True(t, partial.Favorable)
	assert.Equal(t, "Partial data", partial.Details)
}

func TestEntryStrength(t *testing.T) {
	g := newGenerator()

	snap := market(map[string]models.Stage{"SPY": models.Stage2}, bull("SPY"))
	sig := g.Entry(snap, "SPY", models.Long)
	assert.Equal(t, models.StrongEntry, sig.Strength)
	assert.Equal(t, 4, sig.Score)
	assert.True(t, sig.StageOK)

	snap.Stages["SPY"] = models.StageRecord{ConfirmedStage: models.Stage1}
	sig = g.Entry(snap, "SPY", models.Long)
	assert.Equal(t, models.ModerateEntry, sig.Strength)
	assert.Equal(t, models.Stage1, sig.Stage)

	snap.Vix = &models.VixSnapshot{Close: 33, Regime: models.VixHigh, Trend: models.VixRising}
	sig = g.Entry(snap, "SPY", models.Long)
	assert.Equal(t, models.NoEntry, sig.Strength)
	assert.Equal(t, 2, sig.Score)
}

func TestEquityPick(t *testing.T) {
	g := newGenerator()
	qqq := bull("QQQ")
	qqq.RelativeStrength = f(7)

	assert.Equal(t, "QQQ", g.EquityPick(market(nil, bull("SPY"), qqq)))

	qqq.RelativeStrength = f(5)
	assert.Equal(t, "SPY", g.EquityPick(market(nil, bull("SPY"), qqq)))

	spy := bull("SPY")
	spy.RelativeStrength = nil
	assert.Equal(t, "SPY", g.EquityPick(market(nil, spy, qqq)))
}

func TestRotate(t *testing.T) {
	g := newGenerator()

	t.Run("vix emergency vetoes everything", func(t *testing.T) {
		snap := market(map[string]models.Stage{"SPY": models.Stage2}, bull("SPY"))
		snap.Vix = &models.VixSnapshot{Close: 45, Regime: models.VixExtreme, Trend: models.VixRising}
		r := g.Rotate(snap)
		assert.Equal(t, "BIL", r.Asset)
		assert.Equal(t, models.Hold, r.Direction)
		assert.Equal(t, 4, r.Tier)
		assert.False(t, r.Actionable())
		assert.Contains(t, r.Reason, "VIX emergency")
	})

	t.Run("vix above 40 but falling does not veto", func(t *testing.T) {
		snap := market(map[string]models.Stage{"SPY": models.Stage2}, bull("SPY"))
		snap.Vix = &models.VixSnapshot{Close: 45, Regime: models.VixExtreme, Trend: models.VixFalling}
		r := g.Rotate(snap)
		assert.Equal(t, "SPY", r.Asset)
		assert.Equal(t, models.ModerateEntry, r.Strength)
	})

	t.Run("equity long picks stronger equity", func(t *testing.T) {
		qqq := bull("QQQ")
		qqq.RelativeStrength = f(8)
		snap := market(map[string]models.Stage{"SPY": models.Stage2, "QQQ": models.Stage2}, bull("SPY"), qqq)
		r := g.Rotate(snap)
		assert.Equal(t, "QQQ", r.Asset)
		assert.Equal(t, "QQQ", r.Underlying)
		assert.Equal(t, models.Long, r.Direction)
		assert.Equal(t, 1, r.Tier)
		assert.Equal(t, models.StrongEntry, r.Strength)
		require.NotNil(t, r.Entry)
		require.NotNil(t, r.Crossover)
		assert.Equal(t, "QQQ Stage 2, score 4/4", r.Reason)
	})

	t.Run("equity inverse when primary declines", func(t *testing.T) {
		snap := market(map[string]models.Stage{"SPY": models.Stage4}, bear("SPY"))
		snap.Vix = &models.VixSnapshot{Close: 32, Regime: models.VixHigh, Trend: models.VixRising}
		snap.Volume = &models.VolumeSnapshot{PanicRatio: f(2), FomoRatio: f(0.5), FomoRatioMA: f(0.6)}
		r := g.Rotate(snap)
		assert.Equal(t, "SH", r.Asset)
		assert.Equal(t, "SPY", r.Underlying)
		assert.Equal(t, models.LongInverse, r.Direction)
		assert.Equal(t, models.ModerateEntry, r.Strength)
		assert.True(t, r.Actionable())
	})

	t.Run("rejected tier falls through to bonds", func(t *testing.T) {
		snap := market(map[string]models.Stage{"SPY": models.Stage2, "TLT": models.Stage2}, bear("SPY"), bull("TLT"))
		snap.Vix = &models.VixSnapshot{Close: 33, Regime: models.VixHigh, Trend: models.VixFalling}
		r := g.Rotate(snap)
		assert.Equal(t, "TLT", r.Asset)
		assert.Equal(t, 2, r.Tier)
		assert.Equal(t, models.ModerateEntry, r.Strength)
	})

	t.Run("dollar inverse", func(t *testing.T) {
		snap := market(map[string]models.Stage{"UUP": models.Stage4, "UDN": models.Stage2}, bull("UDN"))
		r := g.Rotate(snap)
		assert.Equal(t, "UDN", r.Asset)
		assert.Equal(t, 3, r.Tier)
	})

	t.Run("nothing qualifies", func(t *testing.T) {
		r := g.Rotate(market(nil))
		assert.Equal(t, "BIL", r.Asset)
		assert.Equal(t, models.NoEntry, r.Strength)
		assert.Nil(t, r.Entry)
	})
}

func TestCrossover(t *testing.T) {
	g := newGenerator()
	today := bull("SPY")
	snap := market(nil, today)

	assert.Equal(t, "Insufficient data", g.Crossover(snap, "SPY").Details)

	yesterday := bull("SPY")
	yesterday.SMA5, yesterday.SMA20 = f(105), f(106)
	snap.PrevIndicators = map[string]models.IndicatorSnapshot{"SPY": yesterday}
	c := g.Crossover(snap, "SPY")
	assert.True(t, c.Bullish)
	assert.False(t, c.Bearish)
	assert.Equal(t, "SMA5: 105.00->108.00, SMA20: 106.00", c.Details)
}

func TestWarnings(t *testing.T) {
	g := newGenerator()

	xlu := bull("XLU")
	xlu.RelativeStrength = f(12)
	snap := market(map[string]models.Stage{"SPY": models.Stage3, "GLD": models.Stage2}, bull("SPY"), xlu, bull("GLD"))
	got := g.IntermarketWarnings(snap)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "DEFENSIVE ROTATION")
	assert.Contains(t, got[1], "COMMODITY CYCLE")

	snap = market(map[string]models.Stage{"SPY": models.Stage4, "TLT": models.Stage4}, bear("SPY"))
	got = g.IntermarketWarnings(snap)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "DIVERGENCE")

	assert.Empty(t, g.IntermarketWarnings(market(nil, bull("SPY"))))
}

func TestWarningsUseConfiguredSymbols(t *testing.T) {
	cfg := config.Default()
	cfg.Universe.Utilities, cfg.Universe.Gold = "VPU", "IAU"
	g := NewGenerator(cfg.Universe, cfg.Strategy)

	xlu := bull("XLU")
	xlu.RelativeStrength = f(12)
	snap := market(map[string]models.Stage{"SPY": models.Stage3, "GLD": models.Stage2}, bull("SPY"), xlu, bull("GLD"))
	assert.Empty(t, g.IntermarketWarnings(snap))

	vpu := bull("VPU")
	vpu.RelativeStrength = f(12)
	snap = market(map[string]models.Stage{"SPY": models.Stage3, "IAU": models.Stage2}, bull("SPY"), vpu, bull("IAU"))
	got := g.IntermarketWarnings(snap)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "DEFENSIVE ROTATION")
	assert.Contains(t, got[1], "COMMODITY CYCLE")
}
