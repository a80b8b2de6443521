package indicators

import (
	"math"

	"AssetRevest/internal/domain/models"
	"AssetRevest/pkg/config"
)

// Series are date-ordered and NaN marks an undefined value. Every function
// returns a slice of the same length as its input.

// SMA is the trailing arithmetic mean over period values. A window that is
// short or contains an undefined value yields NaN.
func SMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 {
		return out
	}
	sum := 0.0
	missing := 0
	for i, v := range values {
		if math.IsNaN(v) {
			missing++
		} else {
			sum += v
		}
		if i >= period {
			old := values[i-period]
			if math.IsNaN(old) {
				missing--
			} else {
				sum -= old
			}
		}
		if i >= period-1 && missing == 0 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// Slope is the percent change of a series over lookback steps.
func Slope(series []float64, lookback int) []float64 {
	out := nanSlice(len(series))
	if lookback <= 0 {
		return out
	}
	for i := lookback; i < len(series); i++ {
		cur, prev := series[i], series[i-lookback]
		if math.IsNaN(cur) || math.IsNaN(prev) || prev == 0 {
			continue
		}
		out[i] = (cur - prev) / prev * 100
	}
	return out
}

// Bands holds one Bollinger series per component.
type Bands struct {
	Middle    []float64
	Upper     []float64
	Lower     []float64
	Bandwidth []float64
	PercentB  []float64
}

// Bollinger computes bands of k sample standard deviations around SMA(period).
func Bollinger(closes []float64, period int, k float64) Bands {
	n := len(closes)
	b := Bands{
		Middle:    SMA(closes, period),
		Upper:     nanSlice(n),
		Lower:     nanSlice(n),
		Bandwidth: nanSlice(n),
		PercentB:  nanSlice(n),
	}
	if period < 2 {
		return b
	}
	for i := period - 1; i < n; i++ {
		mid := b.Middle[i]
		if math.IsNaN(mid) {
			continue
		}
		ss := 0.0
		for _, v := range closes[i-period+1 : i+1] {
			d := v - mid
			ss += d * d
		}
		std := math.Sqrt(ss / float64(period-1))
		upper, lower := mid+k*std, mid-k*std
		b.Upper[i], b.Lower[i] = upper, lower
		if mid != 0 {
			b.Bandwidth[i] = (upper - lower) / mid * 100
		}
		if width := upper - lower; width != 0 {
			b.PercentB[i] = (closes[i] - lower) / width
		}
	}
	return b
}

// RelativeStrength is the percent distance of close from its SMA(period).
func RelativeStrength(closes []float64, period int) []float64 {
	return distance(closes, SMA(closes, period))
}

func distance(closes, sma []float64) []float64 {
	out := nanSlice(len(closes))
	for i := range closes {
		if math.IsNaN(sma[i]) || sma[i] == 0 || math.IsNaN(closes[i]) {
			continue
		}
		out[i] = (closes[i] - sma[i]) / sma[i] * 100
	}
	return out
}

// TrueRange uses high-low on the first bar, where no previous close exists.
func TrueRange(high, low, closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		hl := high[i] - low[i]
		if i == 0 {
			out[i] = hl
			continue
		}
		pc := closes[i-1]
		out[i] = math.Max(hl, math.Max(math.Abs(high[i]-pc), math.Abs(low[i]-pc)))
	}
	return out
}

// ATR applies Wilder smoothing (alpha = 1/period) to the true range, seeded
// from the first true range. Values before index period-1 are undefined.
func ATR(high, low, closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if period <= 0 || len(closes) == 0 {
		return out
	}
	tr := TrueRange(high, low, closes)
	alpha := 1 / float64(period)
	avg := tr[0]
	for i, v := range tr {
		if i > 0 {
			avg = alpha*v + (1-alpha)*avg
		}
		if i >= period-1 {
			out[i] = avg
		}
	}
	return out
}

// ClassifyVix maps a close to its regime. Each lower bound is inclusive.
func ClassifyVix(close float64, p config.VixParams) models.VixRegime {
	switch {
	case close < p.Low:
		return models.VixLow
	case close < p.Normal:
		return models.VixNormal
	case close < p.Elevated:
		return models.VixElevated
	case close < p.High:
		return models.VixHigh
	default:
		return models.VixExtreme
	}
}

// VixTrendOf is RISING when the fast SMA is above the slow one.
func VixTrendOf(fast, slow float64) models.VixTrend {
	if math.IsNaN(fast) || math.IsNaN(slow) {
		return models.VixUnknown
	}
	if fast > slow {
		return models.VixRising
	}
	return models.VixFalling
}

// VixSeries classifies every bar of a date-ordered VIX history.
func VixSeries(bars []models.VixBar, p config.VixParams) []models.VixSnapshot {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	fast := SMA(closes, p.TrendFast)
	slow := SMA(closes, p.TrendSlow)

	out := make([]models.VixSnapshot, len(bars))
	for i, b := range bars {
		change := math.NaN()
		if i > 0 && closes[i-1] != 0 {
			change = (closes[i] - closes[i-1]) / closes[i-1] * 100
		}
		out[i] = models.VixSnapshot{
			Date:           b.Date,
			Close:          b.Close,
			Regime:         ClassifyVix(b.Close, p),
			SMAFast:        models.Opt(fast[i]),
			SMASlow:        models.Opt(slow[i]),
			Trend:          VixTrendOf(fast[i], slow[i]),
			DailyChangePct: models.Opt(change),
			Spike:          !math.IsNaN(change) && change > p.SpikeThreshold,
		}
	}
	return out
}

// Ratio is num/den, undefined when den is zero.
func Ratio(num, den float64) float64 {
	if den == 0 || math.IsNaN(num) || math.IsNaN(den) {
		return math.NaN()
	}
	return num / den
}

// VolumeSeries derives panic and FOMO ratios and their moving averages.
func VolumeSeries(bars []models.BreadthBar, p config.VolumeParams) []models.VolumeSnapshot {
	panicR := make([]float64, len(bars))
	fomo := make([]float64, len(bars))
	for i, b := range bars {
		panicR[i] = Ratio(b.DownVolume, b.UpVolume)
		fomo[i] = Ratio(b.UpVolume, b.DownVolume)
	}
	panicMA := SMA(panicR, p.MAPeriod)
	fomoMA := SMA(fomo, p.MAPeriod)

	out := make([]models.VolumeSnapshot, len(bars))
	for i, b := range bars {
		out[i] = models.VolumeSnapshot{
			Date:         b.Date,
			PanicRatio:   models.Opt(panicR[i]),
			FomoRatio:    models.Opt(fomo[i]),
			PanicRatioMA: models.Opt(panicMA[i]),
			FomoRatioMA:  models.Opt(fomoMA[i]),
		}
	}
	return out
}

// ComputeSymbol produces one snapshot per bar. Bars must be date-ordered and
// belong to a single symbol. ATR is left undefined on bars without high/low.
func ComputeSymbol(bars []models.PriceBar, p config.IndicatorParams, atr config.ATRParams) []models.IndicatorSnapshot {
	n := len(bars)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	noRange := make([]bool, n)
	for i, b := range bars {
		closes[i] = b.Close
		highs[i], lows[i] = b.High, b.Low
		if b.High == 0 && b.Low == 0 {
			highs[i], lows[i] = b.Close, b.Close
			noRange[i] = true
		}
	}

	smas := make([][]float64, len(p.SMAPeriods))
	byPeriod := make(map[int][]float64, len(p.SMAPeriods))
	for i, period := range p.SMAPeriods {
		smas[i] = SMA(closes, period)
		byPeriod[period] = smas[i]
	}
	at := func(i int) []float64 {
		if i < len(smas) {
			return smas[i]
		}
		return nanSlice(n)
	}
	sma5, sma20, sma50, sma150, sma200 := at(0), at(1), at(2), at(3), at(4)

	slope50 := Slope(sma50, p.SlopeLookback)
	slope150 := Slope(sma150, p.SlopeLookback)
	slope200 := Slope(sma200, p.SlopeLookback)

	rsBase, ok := byPeriod[p.RelativeStrength]
	if !ok {
		rsBase = SMA(closes, p.RelativeStrength)
	}
	rs := distance(closes, rsBase)
	bands := Bollinger(closes, p.BollingerPeriod, p.BollingerK)
	atrs := ATR(highs, lows, closes, atr.Period)
	for i, missing := range noRange {
		if missing {
			atrs[i] = math.NaN()
		}
	}

	out := make([]models.IndicatorSnapshot, n)
	for i, b := range bars {
		out[i] = models.IndicatorSnapshot{
			Symbol:   b.Symbol,
			Date:     b.Date,
			Close:    b.Close,
			SMA5:     models.Opt(sma5[i]),
			SMA20:    models.Opt(sma20[i]),
			SMA50:    models.Opt(sma50[i]),
			SMA150:   models.Opt(sma150[i]),
			SMA200:   models.Opt(sma200[i]),
			Slope50:  models.Opt(slope50[i]),
			Slope150: models.Opt(slope150[i]),
			Slope200: models.Opt(slope200[i]),
			Bollinger: models.Bollinger{
				Middle:    models.Opt(bands.Middle[i]),
				Upper:     models.Opt(bands.Upper[i]),
				Lower:     models.Opt(bands.Lower[i]),
				Bandwidth: models.Opt(bands.Bandwidth[i]),
				PercentB:  models.Opt(bands.PercentB[i]),
			},
			RelativeStrength: models.Opt(rs[i]),
			ATR:              models.Opt(atrs[i]),
		}
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
