package position

import (
	"math"

	"AssetRevest/internal/domain/models"
	"AssetRevest/pkg/config"
)

// Plan is the constant set a trade carries from entry to exit. It is chosen
// once, from direction and stage, and never changes afterwards.
type Plan struct {
	Type models.TradeType
	Set  config.ExitSet
	// StopCap bounds an ATR stop distance as a fraction of entry.
	StopCap float64
}

// SelectPlan picks Inverse for inverse entries, Stage3 for entries taken while
// the underlying distributes, and Standard otherwise.
func SelectPlan(dir models.Direction, stage models.Stage, s config.Strategy) Plan {
	switch {
	case dir == models.LongInverse:
		return Plan{Type: models.TradeInverse, Set: s.Exits.Inverse, StopCap: s.Exits.Inverse.StopPct * 1.5}
	case stage == models.Stage3:
		return Plan{Type: models.TradeStage3, Set: s.Exits.Stage3, StopCap: s.ATR.MaxStopPct}
	default:
		return Plan{Type: models.TradeStandard, Set: s.Exits.Standard, StopCap: s.ATR.MaxStopPct}
	}
}

// Params are the entry-time levels of a new position.
type Params struct {
	Type           models.TradeType
	Stop           float64
	Target         float64
	TrailingPct    float64
	PartialExitPct float64
}

// Levels computes stop, target and trailing parameters for an entry price.
// With ATR stops enabled and a positive atr, the stop distance is
// multiplier*atr clamped to [min, cap] of entry; otherwise the plan's fixed
// stop percentage applies.
func (p Plan) Levels(entry float64, atr *float64, a config.ATRParams) Params {
	stop := entry * (1 - p.Set.StopPct)
	if a.Enabled && atr != nil && *atr > 0 && !math.IsNaN(*atr) {
		dist := a.Multiplier * *atr
		dist = math.Min(dist, entry*p.StopCap)
		dist = math.Max(dist, entry*a.MinStopPct)
		stop = entry - dist
	}
	return Params{
		Type:           p.Type,
		Stop:           stop,
		Target:         entry * (1 + p.Set.TargetPct),
		TrailingPct:    p.Set.TrailingPct,
		PartialExitPct: p.Set.PartialExitPct,
	}
}

// TradeParams is SelectPlan followed by Levels.
func TradeParams(entry float64, dir models.Direction, stage models.Stage, atr *float64, s config.Strategy) Params {
	return SelectPlan(dir, stage, s).Levels(entry, atr, s.ATR)
}
