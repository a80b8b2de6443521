package models

import "time"

type Strength string

const (
	StrongEntry   Strength = "STRONG_ENTRY"
	ModerateEntry Strength = "MODERATE_ENTRY"
	NoEntry       Strength = "NO_ENTRY"
)

func (s Strength) String() string { return string(s) }

// Accepted reports whether the strength qualifies for an entry.
func (s Strength) Accepted() bool { return s == StrongEntry || s == ModerateEntry }

// PillarResult is the outcome of one pillar check.
type PillarResult struct {
	Favorable bool     `json:"favorable"`
	Score     int      `json:"score,omitempty"`
	Flags     []string `json:"flags,omitempty"`
	Details   string   `json:"details"`
}

// EntrySignal is the four-pillar confluence for one (symbol, direction).
type EntrySignal struct {
	Symbol     string       `json:"symbol"`
	Direction  Direction    `json:"direction"`
	Stage      Stage        `json:"stage"`
	Strength   Strength     `json:"strength"`
	Score      int          `json:"score"`
	StageOK    bool         `json:"stage_ok"`
	Trend      PillarResult `json:"trend"`
	Volatility PillarResult `json:"volatility"`
	Volume     PillarResult `json:"volume"`
	Flags      []string     `json:"flags,omitempty"`
	Details    string       `json:"details"`
}

// Crossover reports a 5/20 SMA cross between the previous and the current record.
type Crossover struct {
	Bullish bool   `json:"bullish"`
	Bearish bool   `json:"bearish"`
	Details string `json:"details"`
}

// Rotation is the chosen instrument for the next entry, or cash.
type Rotation struct {
	Date       time.Time    `json:"date"`
	Asset      string       `json:"asset"`
	Underlying string       `json:"underlying"`
	Direction  Direction    `json:"direction"`
	Tier       int          `json:"tier"`
	Strength   Strength     `json:"strength"`
	Entry      *EntrySignal `json:"entry,omitempty"`
	Crossover  *Crossover   `json:"crossover,omitempty"`
	Reason     string       `json:"reason"`
}

// Actionable reports whether the rotation asks for an entry.
func (r Rotation) Actionable() bool {
	return r.Direction != Hold && r.Strength.Accepted()
}

// MarketSnapshot is everything the signal generator may see on one date.
// Every record in it has a date on or before Date.
type MarketSnapshot struct {
	Date           time.Time                    `json:"date"`
	Indicators     map[string]IndicatorSnapshot `json:"indicators"`
	PrevIndicators map[string]IndicatorSnapshot `json:"prev_indicators,omitempty"`
	Stages         map[string]StageRecord       `json:"stages"`
	Vix            *VixSnapshot                 `json:"vix,omitempty"`
	Volume         *VolumeSnapshot              `json:"volume,omitempty"`
}

// Indicator returns the snapshot for symbol, or nil.
func (m *MarketSnapshot) Indicator(symbol string) *IndicatorSnapshot {
	if m == nil {
		return nil
	}
	if ind, ok := m.Indicators[symbol]; ok {
		return &ind
	}
	return nil
}

// Prev returns the record before the current one for symbol, or nil.
func (m *MarketSnapshot) Prev(symbol string) *IndicatorSnapshot {
	if m == nil {
		return nil
	}
	if ind, ok := m.PrevIndicators[symbol]; ok {
		return &ind
	}
	return nil
}

// Stage returns the confirmed stage for symbol, TRANSITIONAL when unknown.
func (m *MarketSnapshot) Stage(symbol string) Stage {
	if m == nil {
		return Transitional
	}
	if rec, ok := m.Stages[symbol]; ok && rec.ConfirmedStage != "" {
		return rec.ConfirmedStage
	}
	return Transitional
}

// ExitAction is what the exit engine asks the portfolio to do.
type ExitAction string

const (
	ActionHold        ExitAction = "HOLD"
	ActionFullExit    ExitAction = "FULL_EXIT"
	ActionPartialExit ExitAction = "PARTIAL_EXIT"
	ActionUpdateStop  ExitAction = "UPDATE_STOP"
)

// ExitDecision is the first matching exit rule for one day.
type ExitDecision struct {
	Action  ExitAction `json:"action"`
	Reason  ExitReason `json:"reason,omitempty"`
	ExitPct float64    `json:"exit_pct,omitempty"`
	NewStop float64    `json:"new_stop,omitempty"`
	Details string     `json:"details,omitempty"`
}

// DailyReport is the live daily decision.
type DailyReport struct {
	Date      time.Time              `json:"date"`
	Portfolio PortfolioState         `json:"portfolio"`
	Stages    map[string]StageRecord `json:"stages"`
	Vix       *VixSnapshot           `json:"vix,omitempty"`
	Exit      *ExitDecision          `json:"exit,omitempty"`
	Rotation  *Rotation              `json:"rotation,omitempty"`
	Warnings  []string               `json:"warnings,omitempty"`
	Equity    float64                `json:"equity"`
}
