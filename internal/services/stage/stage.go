package stage

import (
	"math"

	"AssetRevest/internal/domain/models"
	"AssetRevest/pkg/config"
)

// Classify returns the raw stage of a single snapshot. Every candidate stage
// is a vote over its own conditions, checked in the order 2, 4, 3, 1.
func Classify(ind models.IndicatorSnapshot, p config.StageParams) models.Stage {
	price := ind.Close
	sma50, sma150, sma200 := models.Val(ind.SMA50), models.Val(ind.SMA150), models.Val(ind.SMA200)
	slope150, slope200 := models.Val(ind.Slope150), models.Val(ind.Slope200)
	if price <= 0 || anyNaN(price, sma50, sma150, sma200, slope150, slope200) {
		return models.Transitional
	}
	t := p.SlopeThreshold

	advancing := votes(
		price > sma150,
		price > sma200,
		slope150 > t,
		sma50 > sma150 && sma150 > sma200,
		slope200 > -t,
	)
	if advancing >= 4 {
		return models.Stage2
	}

	declining := votes(
		price < sma150,
		price < sma200,
		slope150 < -t,
		sma50 < sma150 && sma150 < sma200,
		slope200 < t,
	)
	if declining >= 4 {
		return models.Stage4
	}

	slope50 := models.Val(ind.Slope50)
	distribution := votes(
		math.Abs(slope150) <= 2*t,
		!math.IsNaN(slope50) && slope50 < t,
		sma50 < sma150,
		slope200 > -t,
	)
	if distribution >= 3 {
		return models.Stage3
	}

	accumulation := votes(
		math.Abs(slope150) <= t,
		math.Abs(slope200) <= 1.5*t,
		sma150 > 0 && math.Abs(price-sma150)/sma150*100 < p.NearSMA150Pct,
	)
	if accumulation >= 2 {
		return models.Stage1
	}
	return models.Transitional
}

// State is what the confirmation fold carries from one date to the next.
type State struct {
	Confirmed   models.Stage
	LastRaw     models.Stage
	Consecutive int
}

// Initial is the state before the first date of a symbol.
func Initial() State {
	return State{Confirmed: models.Transitional, LastRaw: models.Transitional}
}

// Resume rebuilds the fold state from the last persisted record.
func Resume(rec *models.StageRecord) State {
	if rec == nil {
		return Initial()
	}
	return State{Confirmed: rec.ConfirmedStage, LastRaw: rec.RawStage, Consecutive: rec.ConsecutiveDays}
}

// Next advances the fold by one raw stage. The confirmed stage switches to a
// new raw stage only once it has held for n consecutive dates. The returned
// flag reports whether today's raw stage agrees with the confirmed one.
func Next(prev State, raw models.Stage, n int) (State, bool) {
	next := State{Confirmed: prev.Confirmed, LastRaw: raw}
	switch {
	case raw == models.Transitional:
		next.Consecutive = 0
	case raw == prev.LastRaw:
		next.Consecutive = prev.Consecutive + 1
	default:
		next.Consecutive = 1
	}

	switch {
	case raw == models.Transitional:
		return next, false
	case raw == prev.Confirmed:
		return next, true
	case next.Consecutive >= n:
		next.Confirmed = raw
		return next, true
	default:
		return next, false
	}
}

// Fold classifies date-ordered snapshots of one symbol starting from prev.
func Fold(prev State, snaps []models.IndicatorSnapshot, p config.StageParams) ([]models.StageRecord, State) {
	out := make([]models.StageRecord, 0, len(snaps))
	state := prev
	for _, s := range snaps {
		raw := Classify(s, p)
		var confirmed bool
		state, confirmed = Next(state, raw, p.ConfirmationDays)
		out = append(out, models.StageRecord{
			Symbol:          s.Symbol,
			Date:            s.Date,
			RawStage:        raw,
			ConfirmedStage:  state.Confirmed,
			Confirmed:       confirmed,
			ConsecutiveDays: state.Consecutive,
		})
	}
	return out, state
}

func votes(conds ...bool) int {
	n := 0
	for _, c := range conds {
		if c {
			n++
		}
	}
	return n
}

func anyNaN(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
