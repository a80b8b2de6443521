package position

import (
	"fmt"
	"math"
	"time"

	"AssetRevest/internal/domain/models"
	"AssetRevest/pkg/config"
	"AssetRevest/pkg/util"
)

// Day is what the exit rules see on one date for an open position.
type Day struct {
	Date  time.Time
	Close float64
	Vix   *models.VixSnapshot
	// Stage is the confirmed stage of the position's underlying.
	Stage models.Stage
}

// Evaluate returns the first matching exit rule, in priority order: VIX
// emergency, stop hit, stage change, first target, trailing stop. A position
// matching none of them holds.
func Evaluate(pos models.Position, d Day, s config.Strategy) models.ExitDecision {
	if v := d.Vix; v != nil && v.Close > s.Vix.EmergencyLevel && v.Trend == models.VixRising {
		return models.ExitDecision{
			Action:  models.ActionFullExit,
			Reason:  models.ExitVixEmergency,
			ExitPct: 1,
			Details: fmt.Sprintf("VIX=%.1f >%.0f and RISING", v.Close, s.Vix.EmergencyLevel),
		}
	}

	if d.Close <= pos.Stop {
		return models.ExitDecision{
			Action:  models.ActionFullExit,
			Reason:  models.ExitStopHit,
			ExitPct: 1,
			Details: fmt.Sprintf("Close %.2f <= Stop %.2f", d.Close, pos.Stop),
		}
	}

	if against(pos.Direction, d.Stage) {
		return models.ExitDecision{
			Action:  models.ActionFullExit,
			Reason:  models.ExitStageChange,
			ExitPct: 1,
			Details: fmt.Sprintf("Stage changed to %s", d.Stage),
		}
	}

	if !pos.PartialExited && d.Close >= pos.Target {
		pct := pos.PartialExitPct
		if !pos.EntryDate.IsZero() && util.BusinessDaysBetween(pos.EntryDate, d.Date) <= s.SpeedCheck.Days {
			pct = math.Min(pct+s.SpeedCheck.ExtraPct, s.SpeedCheck.MaxPct)
		}
		return models.ExitDecision{
			Action:  models.ActionPartialExit,
			Reason:  models.ExitTargetHit,
			ExitPct: pct,
			NewStop: pos.EntryPrice,
			Details: fmt.Sprintf("Close %.2f >= Target %.2f (exit %.0f%%)", d.Close, pos.Target, pct*100),
		}
	}

	if pos.PartialExited {
		trail := d.Close * (1 - pos.TrailingPct)
		if trail > pos.Stop {
			return models.ExitDecision{
				Action:  models.ActionUpdateStop,
				Reason:  models.ExitStopUpdate,
				NewStop: trail,
				Details: fmt.Sprintf("Trail: %.2f -> %.2f", pos.Stop, trail),
			}
		}
	}

	return models.ExitDecision{Action: models.ActionHold}
}

// against reports a confirmed stage that contradicts the position's direction.
func against(dir models.Direction, st models.Stage) bool {
	switch dir {
	case models.Long:
		return st == models.Stage3 || st == models.Stage4
	case models.LongInverse:
		return st == models.Stage1 || st == models.Stage2
	default:
		return false
	}
}
