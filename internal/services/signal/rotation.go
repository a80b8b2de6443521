package signal

import (
	"fmt"

	"AssetRevest/internal/domain/models"
)

// VixEmergency reports whether the VIX close is above the emergency level and rising.
func (g *Generator) VixEmergency(vix *models.VixSnapshot) bool {
	return vix != nil && vix.Close > g.params.Vix.EmergencyLevel && vix.Trend == models.VixRising
}

// EquityPick returns the equity with the highest relative strength. The first
// configured equity wins ties and missing values.
func (g *Generator) EquityPick(snap *models.MarketSnapshot) string {
	pick := g.universe.PrimaryEquity()
	base := snap.Indicator(pick)
	if base == nil || base.RelativeStrength == nil {
		return pick
	}
	best := *base.RelativeStrength
	for _, sym := range g.universe.Equities {
		if sym == pick {
			continue
		}
		ind := snap.Indicator(sym)
		if ind == nil || ind.RelativeStrength == nil {
			continue
		}
		if *ind.RelativeStrength > best {
			best, pick = *ind.RelativeStrength, sym
		}
	}
	return pick
}

// Crossover compares the 5/20 SMA pair of the current and previous records.
func (g *Generator) Crossover(snap *models.MarketSnapshot, symbol string) *models.Crossover {
	today, yesterday := snap.Indicator(symbol), snap.Prev(symbol)
	if today == nil || yesterday == nil {
		return &models.Crossover{Details: "Insufficient data"}
	}
	if today.SMA5 == nil || today.SMA20 == nil || yesterday.SMA5 == nil || yesterday.SMA20 == nil {
		return &models.Crossover{Details: "Missing SMA data"}
	}
	t5, t20, y5, y20 := *today.SMA5, *today.SMA20, *yesterday.SMA5, *yesterday.SMA20
	return &models.Crossover{
		Bullish: t5 > t20 && y5 <= y20,
		Bearish: t5 < t20 && y5 >= y20,
		Details: fmt.Sprintf("SMA5: %.2f->%.2f, SMA20: %.2f", y5, t5, t20),
	}
}

// Rotate walks the tiers in priority order and returns the first accepted
// entry, or cash.
func (g *Generator) Rotate(snap *models.MarketSnapshot) models.Rotation {
	u := g.universe
	cash := models.Rotation{
		Asset:     u.Cash,
		Direction: models.Hold,
		Tier:      4,
		Strength:  models.NoEntry,
		Reason:    "No favorable entry, holding cash",
	}
	if snap == nil {
		return cash
	}
	cash.Date = snap.Date

	if g.VixEmergency(snap.Vix) {
		cash.Reason = fmt.Sprintf("VIX emergency (%.1f > %.0f), cash only", snap.Vix.Close, g.params.Vix.EmergencyLevel)
		return cash
	}

	primary := u.PrimaryEquity()

	// Tier 1: equities long, or the primary equity's inverse.
	equityAdvancing := false
	for _, sym := range u.Equities {
		if snap.Stage(sym) == models.Stage2 {
			equityAdvancing = true
			break
		}
	}
	if equityAdvancing {
		equity := g.EquityPick(snap)
		if r, ok := g.accept(snap, equity, equity, models.Long, 1, fmt.Sprintf("%s Stage 2", equity)); ok {
			return r
		}
	}
	if snap.Stage(primary) == models.Stage4 {
		inverse := u.InverseOf(primary)
		reason := fmt.Sprintf("%s Stage 4, inverse via %s", primary, inverse)
		if r, ok := g.accept(snap, primary, inverse, models.LongInverse, 1, reason); ok {
			return r
		}
	}

	// Tier 2: bonds.
	for _, sym := range u.Bonds {
		if snap.Stage(sym) != models.Stage2 {
			continue
		}
		if r, ok := g.accept(snap, sym, sym, models.Long, 2, fmt.Sprintf("%s Stage 2", sym)); ok {
			return r
		}
	}

	// Tier 3: dollar, or the dollar inverse while the dollar declines.
	if u.DollarLong != "" && snap.Stage(u.DollarLong) == models.Stage2 {
		if r, ok := g.accept(snap, u.DollarLong, u.DollarLong, models.Long, 3, fmt.Sprintf("%s Stage 2", u.DollarLong)); ok {
			return r
		}
	}
	if u.DollarInverse != "" && snap.Stage(u.DollarLong) == models.Stage4 && snap.Stage(u.DollarInverse) == models.Stage2 {
		if r, ok := g.accept(snap, u.DollarInverse, u.DollarInverse, models.Long, 3, fmt.Sprintf("%s Stage 2", u.DollarInverse)); ok {
			return r
		}
	}

	return cash
}

// accept scores symbol and builds the rotation when the entry qualifies.
// asset is what gets bought; symbol is what the signal is scored on.
func (g *Generator) accept(snap *models.MarketSnapshot, symbol, asset string, dir models.Direction, tier int, reason string) (models.Rotation, bool) {
	sig := g.Entry(snap, symbol, dir)
	if !sig.Strength.Accepted() {
		return models.Rotation{}, false
	}
	return models.Rotation{
		Date:       snap.Date,
		Asset:      asset,
		Underlying: symbol,
		Direction:  dir,
		Tier:       tier,
		Strength:   sig.Strength,
		Entry:      &sig,
		Crossover:  g.Crossover(snap, symbol),
		Reason:     fmt.Sprintf("%s, score %d/4", reason, sig.Score),
	}, true
}

// IntermarketWarnings lists the intermarket conditions worth flagging on the report.
func (g *Generator) IntermarketWarnings(snap *models.MarketSnapshot) []string {
	var out []string
	primary := g.universe.PrimaryEquity()

	def, eq := snap.Indicator(g.universe.Utilities), snap.Indicator(primary)
	if def != nil && eq != nil && def.RelativeStrength != nil && eq.RelativeStrength != nil {
		diff := *def.RelativeStrength - *eq.RelativeStrength
		if diff > g.params.Intermarket.DefensiveRotationThreshold {
			out = append(out, fmt.Sprintf("DEFENSIVE ROTATION: Utilities outperforming %s by %.1f%%", primary, diff))
		}
	}

	gold := g.universe.Gold
	if snap.Indicator(gold) != nil && snap.Stage(gold) == models.Stage2 && snap.Stage(primary) == models.Stage3 {
		out = append(out, "COMMODITY CYCLE: Gold rising while equities in distribution")
	}

	for _, bond := range g.universe.Bonds {
		if snap.Stage(primary) == models.Stage4 && snap.Stage(bond) == models.Stage4 {
			out = append(out, fmt.Sprintf("DIVERGENCE: Both stocks and bonds (%s) declining, check %s/dollar", bond, g.universe.DollarLong))
			break
		}
	}
	return out
}
