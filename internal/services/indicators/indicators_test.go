package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AssetRevest/internal/domain/models"
	"AssetRevest/internal/services/position"
	"AssetRevest/pkg/config"
)

func strategy() config.Strategy {
	return config.Default().Strategy
}

func TestSMA(t *testing.T) {
	values := []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	got := SMA(values, 5)

	require.Len(t, got, len(values))
	for i := 0; i < 4; i++ {
		assert.True(t, math.IsNaN(got[i]), "index %d should be undefined", i)
	}
	assert.InDelta(t, 12.0, got[4], 1e-9)
	assert.InDelta(t, 18.0, got[len(got)-1], 1e-9)
}

func TestSMAUndefinedInsideWindow(t *testing.T) {
	values := []float64{1, 2, math.NaN(), 4, 5, 6, 7}
	got := SMA(values, 3)

	assert.True(t, math.IsNaN(got[2]))
	assert.True(t, math.IsNaN(got[3]))
	assert.True(t, math.IsNaN(got[4]))
	assert.InDelta(t, 5.0, got[5], 1e-9)
}

func TestSlopeFlatSeries(t *testing.T) {
	flat := make([]float64, 80)
	for i := range flat {
		flat[i] = 100
	}
	slope := Slope(SMA(flat, 50), 20)

	assert.True(t, math.IsNaN(slope[68]))
	for i := 69; i < len(slope); i++ {
		assert.InDelta(t, 0.0, slope[i], 1e-9)
	}
}

func TestSlopeZeroBaseIsUndefined(t *testing.T) {
	got := Slope([]float64{0, 5}, 1)
	assert.True(t, math.IsNaN(got[1]))
}

func TestBollinger(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
	}
	bands := Bollinger(closes, 20, 2)
	sma := SMA(closes, 20)

	for i := 19; i < len(closes); i++ {
		assert.InDelta(t, sma[i], bands.Middle[i], 1e-9)
		assert.Greater(t, bands.Upper[i], bands.Middle[i])
		assert.Greater(t, bands.Middle[i], bands.Lower[i])
		assert.False(t, math.IsNaN(bands.PercentB[i]))
	}
}

func TestBollingerSampleDeviation(t *testing.T) {
	bands := Bollinger([]float64{1, 2, 3}, 3, 1)
	// sample std of 1,2,3 is exactly 1
	assert.InDelta(t, 3.0, bands.Upper[2], 1e-9)
	assert.InDelta(t, 1.0, bands.Lower[2], 1e-9)
	assert.InDelta(t, 100.0, bands.Bandwidth[2], 1e-9)
	assert.InDelta(t, 1.0, bands.PercentB[2], 1e-9)
}

func TestBollingerFlatHasNoPercentB(t *testing.T) {
	bands := Bollinger([]float64{5, 5, 5, 5}, 3, 2)
	assert.InDelta(t, 0.0, bands.Bandwidth[3], 1e-9)
	assert.True(t, math.IsNaN(bands.PercentB[3]))
}

func TestRelativeStrength(t *testing.T) {
	got := RelativeStrength([]float64{90, 100, 110, 120}, 3)
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 10.0, got[2], 1e-9)
}

func TestATR(t *testing.T) {
	high := []float64{11, 14, 15}
	low := []float64{9, 10, 12}
	closes := []float64{10, 12, 14}

	tr := TrueRange(high, low, closes)
	assert.Equal(t, []float64{2, 4, 3}, tr)

	got := ATR(high, low, closes, 2)
	assert.True(t, math.IsNaN(got[0]))
	assert.InDelta(t, 3.0, got[1], 1e-9)
	assert.InDelta(t, 3.0, got[2], 1e-9)
}

func TestATRConstantRange(t *testing.T) {
	n := 30
	high, low, closes := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		closes[i] = 100 + 0.5*float64(i)
		high[i], low[i] = closes[i]+1, closes[i]-1
	}
	got := ATR(high, low, closes, 14)
	assert.True(t, math.IsNaN(got[12]))
	assert.InDelta(t, 2.0, got[13], 1e-9)
	assert.InDelta(t, 2.0, got[n-1], 1e-9)
}

func TestClassifyVixBoundaries(t *testing.T) {
	p := strategy().Vix
	cases := map[float64]models.VixRegime{
		14.99: models.VixLow,
		15:    models.VixNormal,
		19.99: models.VixNormal,
		20:    models.VixElevated,
		30:    models.VixHigh,
		40:    models.VixExtreme,
		80:    models.VixExtreme,
	}
	for close, want := range cases {
		assert.Equal(t, want, ClassifyVix(close, p), "close %v", close)
	}
}

func TestVixSeries(t *testing.T) {
	p := strategy().Vix
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.VixBar, 25)
	for i := range bars {
		bars[i] = models.VixBar{Date: start.AddDate(0, 0, i), Close: 14}
	}
	bars[24].Close = 18

	got := VixSeries(bars, p)
	require.Len(t, got, 25)

	assert.Equal(t, models.VixUnknown, got[18].Trend)
	assert.Nil(t, got[0].DailyChangePct)
	assert.Equal(t, models.VixFalling, got[23].Trend)

	last := got[24]
	assert.Equal(t, models.VixNormal, last.Regime)
	assert.Equal(t, models.VixRising, last.Trend)
	require.NotNil(t, last.DailyChangePct)
	assert.InDelta(t, 28.571428, *last.DailyChangePct, 1e-5)
	assert.True(t, last.Spike)
}

func TestVolumeRatios(t *testing.T) {
	p := strategy().Volume
	got := VolumeSeries([]models.BreadthBar{
		{UpVolume: 1e9, DownVolume: 3e9},
		{UpVolume: 0, DownVolume: 3e9},
	}, p)

	require.NotNil(t, got[0].PanicRatio)
	require.NotNil(t, got[0].FomoRatio)
	assert.Equal(t, 3.0, *got[0].PanicRatio)
	assert.Equal(t, 1.0/3.0, *got[0].FomoRatio)
	assert.Nil(t, got[0].PanicRatioMA)

	assert.Nil(t, got[1].PanicRatio)
	require.NotNil(t, got[1].FomoRatio)
	assert.Equal(t, 0.0, *got[1].FomoRatio)
}

func TestVolumeMovingAverage(t *testing.T) {
	p := strategy().Volume
	bars := make([]models.BreadthBar, 20)
	for i := range bars {
		bars[i] = models.BreadthBar{UpVolume: 2e9, DownVolume: 1e9}
	}
	got := VolumeSeries(bars, p)
	require.NotNil(t, got[19].FomoRatioMA)
	assert.InDelta(t, 2.0, *got[19].FomoRatioMA, 1e-9)
	assert.InDelta(t, 0.5, *got[19].PanicRatioMA, 1e-9)
}

func TestComputeSymbol(t *testing.T) {
	s := strategy()
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.PriceBar, 260)
	for i := range bars {
		c := 100 + 0.5*float64(i)
		bars[i] = models.PriceBar{Symbol: "SPY", Date: start.AddDate(0, 0, i), Open: c - 0.2, High: c + 1, Low: c - 1, Close: c}
	}

	snaps := ComputeSymbol(bars, s.Indicators, s.ATR)
	require.Len(t, snaps, len(bars))

	first := snaps[0]
	assert.Equal(t, "SPY", first.Symbol)
	assert.Nil(t, first.SMA5)
	assert.Nil(t, first.ATR)

	assert.Nil(t, snaps[198].SMA200)
	assert.NotNil(t, snaps[199].SMA200)
	assert.Nil(t, snaps[218].Slope200)

	last := snaps[len(snaps)-1]
	for _, v := range []*float64{last.SMA5, last.SMA20, last.SMA50, last.SMA150, last.SMA200,
		last.Slope50, last.Slope150, last.Slope200, last.RelativeStrength, last.ATR} {
		require.NotNil(t, v)
	}
	assert.Greater(t, *last.SMA5, *last.SMA20)
	assert.Greater(t, *last.SMA50, *last.SMA150)
	assert.Greater(t, *last.Slope150, 0.5)
	assert.Greater(t, *last.RelativeStrength, 0.0)
	assert.InDelta(t, 2.0, *last.ATR, 1e-9)
}

func TestComputeSymbolMissingHighLow(t *testing.T) {
	s := strategy()
	bars := []models.PriceBar{{Symbol: "X", Close: 10}, {Symbol: "X", Close: 11}}
	s.ATR.Period = 1
	snaps := ComputeSymbol(bars, s.Indicators, s.ATR)
	for _, snap := range snaps {
		assert.Nil(t, snap.ATR)
	}

	// Only the bar with a range gets an ATR.
	bars = append(bars, models.PriceBar{Symbol: "X", Close: 12, High: 12.5, Low: 11.5})
	snaps = ComputeSymbol(bars, s.Indicators, s.ATR)
	assert.Nil(t, snaps[1].ATR)
	require.NotNil(t, snaps[2].ATR)
	assert.Greater(t, *snaps[2].ATR, 0.0)
}

func TestCloseOnlySeriesUsesFixedStop(t *testing.T) {
	s := strategy()
	bars := make([]models.PriceBar, 300)
	for i := range bars {
		bars[i] = models.PriceBar{Symbol: "X", Close: 100 + float64(i)*0.1}
	}
	snaps := ComputeSymbol(bars, s.Indicators, s.ATR)
	last := snaps[len(snaps)-1]
	assert.Nil(t, last.ATR)
	assert.NotNil(t, last.SMA200)

	p := position.TradeParams(100, models.Long, models.Stage2, last.ATR, s)
	assert.InDelta(t, 100*(1-s.Exits.Standard.StopPct), p.Stop, 1e-9)
}
