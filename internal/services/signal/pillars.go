package signal

import (
	"fmt"
	"strings"

	"AssetRevest/internal/domain/models"
	"AssetRevest/pkg/config"
)

// Generator scores entries and picks the rotation target. It only reads the
// snapshot it is given, so a snapshot loaded as of a date sees nothing later.
type Generator struct {
	universe config.Universe
	params   config.Strategy
}

func NewGenerator(universe config.Universe, params config.Strategy) *Generator {
	return &Generator{universe: universe, params: params}
}

// Trend counts the moving-average orderings that agree with dir.
func (g *Generator) Trend(ind *models.IndicatorSnapshot, dir models.Direction) models.PillarResult {
	if ind == nil {
		return models.PillarResult{Details: "No data"}
	}
	price := ind.Close
	if price <= 0 {
		return models.PillarResult{Details: "No close price"}
	}
	if ind.SMA5 == nil || ind.SMA20 == nil || ind.SMA50 == nil || ind.SMA150 == nil || ind.SMA200 == nil {
		return models.PillarResult{Details: "Insufficient SMA data"}
	}
	sma5, sma20, sma50, sma150, sma200 := *ind.SMA5, *ind.SMA20, *ind.SMA50, *ind.SMA150, *ind.SMA200

	op := ">"
	above := func(a, b float64) bool { return a > b }
	if dir == models.LongInverse {
		op = "<"
		above = func(a, b float64) bool { return a < b }
	}
	conds := []bool{
		above(price, sma5),
		above(sma5, sma20),
		above(price, sma50),
		above(price, sma150),
		above(price, sma200),
	}
	labels := []string{
		fmt.Sprintf("Close(%.2f)%sSMA5(%.2f)", price, op, sma5),
		fmt.Sprintf("SMA5%sSMA20(%.2f)", op, sma20),
		fmt.Sprintf("Close%sSMA50(%.2f)", op, sma50),
		fmt.Sprintf("Close%sSMA150(%.2f)", op, sma150),
		fmt.Sprintf("Close%sSMA200(%.2f)", op, sma200),
	}

	score := 0
	parts := make([]string, len(conds))
	for i, ok := range conds {
		mark := "N"
		if ok {
			score++
			mark = "Y"
		}
		parts[i] = mark + " " + labels[i]
	}
	return models.PillarResult{
		Favorable: score >= g.params.Entry.TrendMinConditions,
		Score:     score,
		Details:   strings.Join(parts, "; "),
	}
}

// Volatility checks the VIX regime and trend, plus %B for long entries.
func (g *Generator) Volatility(vix *models.VixSnapshot, ind *models.IndicatorSnapshot, dir models.Direction) models.PillarResult {
	if vix == nil {
		return models.PillarResult{Details: "No VIX data"}
	}
	var percentB *float64
	if ind != nil {
		percentB = ind.Bollinger.PercentB
	}

	var favorable bool
	if dir == models.LongInverse {
		favorable = (vix.Regime == models.VixHigh || vix.Regime == models.VixExtreme) && vix.Trend == models.VixRising
	} else {
		vixOK := vix.Regime == models.VixLow || vix.Regime == models.VixNormal ||
			(vix.Regime == models.VixElevated && vix.Trend == models.VixFalling)
		bandOK := percentB == nil || (*percentB >= 0 && *percentB <= 1)
		favorable = vixOK && bandOK
	}

	details := fmt.Sprintf("VIX:%s/%s", vix.Regime, vix.Trend)
	if percentB != nil {
		details += fmt.Sprintf(" BB%%B:%.2f", *percentB)
	}
	return models.PillarResult{Favorable: favorable, Details: details}
}

// Volume reads breadth ratios. Without any breadth data the pillar is neutral
// and counts as favorable.
func (g *Generator) Volume(vol *models.VolumeSnapshot, dir models.Direction) models.PillarResult {
	if vol == nil {
		return models.PillarResult{
			Favorable: true,
			Flags:     []string{"No NYSE volume data, volume pillar neutral"},
			Details:   "No data",
		}
	}
	p := g.params.Volume
	pr, fr := vol.PanicRatio, vol.FomoRatio

	res := models.PillarResult{}
	if dir == models.LongInverse {
		res.Favorable = fr != nil && *fr >= p.FomoThreshold
	} else {
		panicSignal := pr != nil && *pr >= p.PanicThreshold
		noEuphoria := vol.FomoRatioMA != nil && *vol.FomoRatioMA < p.FomoCrowding
		res.Favorable = panicSignal || noEuphoria
		if fr != nil && *fr >= p.FomoThreshold {
			res.Flags = append(res.Flags, fmt.Sprintf("FOMO WARNING: ratio=%.1f", *fr))
		}
		if pr != nil && *pr >= p.PanicExtreme {
			res.Flags = append(res.Flags, fmt.Sprintf("EXTREME PANIC: ratio=%.1f", *pr))
		}
	}

	if pr != nil && fr != nil {
		res.Details = fmt.Sprintf("Panic=%.2f FOMO=%.2f", *pr, *fr)
	} else {
		res.Details = "Partial data"
	}
	return res
}

// Entry scores the four pillars for symbol in the given direction.
func (g *Generator) Entry(snap *models.MarketSnapshot, symbol string, dir models.Direction) models.EntrySignal {
	st := snap.Stage(symbol)
	stageOK := st == models.Stage2
	if dir == models.LongInverse {
		stageOK = st == models.Stage4
	}

	ind := snap.Indicator(symbol)
	var vix *models.VixSnapshot
	var vol *models.VolumeSnapshot
	if snap != nil {
		vix, vol = snap.Vix, snap.Volume
	}
	trend := g.Trend(ind, dir)
	volatility := g.Volatility(vix, ind, dir)
	volume := g.Volume(vol, dir)

	score := 0
	for _, ok := range []bool{stageOK, trend.Favorable, volatility.Favorable, volume.Favorable} {
		if ok {
			score++
		}
	}

	strength := models.NoEntry
	switch {
	case score >= g.params.Entry.StrongThreshold:
		strength = models.StrongEntry
	case score >= g.params.Entry.ModerateThreshold:
		strength = models.ModerateEntry
	}

	return models.EntrySignal{
		Symbol:     symbol,
		Direction:  dir,
		Stage:      st,
		Strength:   strength,
		Score:      score,
		StageOK:    stageOK,
		Trend:      trend,
		Volatility: volatility,
		Volume:     volume,
		Flags:      volume.Flags,
		Details: fmt.Sprintf("Score=%d/4: Stage=%s(%s) Trend=%s Vol=%s Volume=%s",
			score, yn(stageOK), st, yn(trend.Favorable), yn(volatility.Favorable), yn(volume.Favorable)),
	}
}

func yn(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}
