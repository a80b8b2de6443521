package models

import "time"

type Direction string

const (
	Long        Direction = "LONG"
	LongInverse Direction = "LONG_INVERSE"
	Hold        Direction = "HOLD"
)

func (d Direction) String() string { return string(d) }

// TradeType selects the constant set used for stops, targets and partial exits.
type TradeType string

const (
	TradeStandard TradeType = "STANDARD"
	TradeStage3   TradeType = "STAGE3"
	TradeInverse  TradeType = "INVERSE"
)

func (t TradeType) String() string { return string(t) }

type ExitReason string

const (
	ExitVixEmergency ExitReason = "VIX_EMERGENCY"
	ExitStopHit      ExitReason = "STOP_HIT"
	ExitStageChange  ExitReason = "STAGE_CHANGE"
	ExitTargetHit    ExitReason = "TARGET_HIT"
	ExitStopUpdate   ExitReason = "STOP_UPDATE"
	ExitManual       ExitReason = "MANUAL"
	ExitBacktestEnd  ExitReason = "BACKTEST_END"
)

func (r ExitReason) String() string { return string(r) }

type PortfolioStatus string

const (
	StatusCash        PortfolioStatus = "CASH"
	StatusEntering    PortfolioStatus = "ENTERING"
	StatusPositioned  PortfolioStatus = "POSITIONED"
	StatusPartialExit PortfolioStatus = "PARTIAL_EXIT"
)

func (s PortfolioStatus) String() string { return string(s) }

// Position is the single open holding. Underlying is the instrument whose stage and
// ATR drive the position (SPY for SH, the symbol itself for longs).
type Position struct {
	Symbol         string    `json:"symbol"`
	Underlying     string    `json:"underlying"`
	Direction      Direction `json:"direction"`
	TradeType      TradeType `json:"trade_type"`
	Tier           int       `json:"tier"`
	EntryDate      time.Time `json:"entry_date"`
	EntryPrice     float64   `json:"entry_price"`
	Shares         float64   `json:"shares"`
	Stop           float64   `json:"stop"`
	Target         float64   `json:"target"`
	TrailingPct    float64   `json:"trailing_pct"`
	PartialExitPct float64   `json:"partial_exit_pct"`
	PartialExited  bool      `json:"partial_exited"`
	StopOrderDate  time.Time `json:"stop_order_date"`
}

// Trade is a fully closed position.
type Trade struct {
	ID          string     `json:"id"`
	Symbol      string     `json:"symbol"`
	Direction   Direction  `json:"direction"`
	TradeType   TradeType  `json:"trade_type"`
	Tier        int        `json:"tier"`
	EntryDate   time.Time  `json:"entry_date"`
	EntryPrice  float64    `json:"entry_price"`
	ExitDate    time.Time  `json:"exit_date"`
	ExitPrice   float64    `json:"exit_price"`
	ExitReason  ExitReason `json:"exit_reason"`
	Shares      float64    `json:"shares"`
	PnLPct      float64    `json:"pnl_pct"`
	PnLDollar   float64    `json:"pnl_dollar"`
	HoldingDays int        `json:"holding_days"`
}

// PortfolioState is the one live portfolio. Position is nil while in cash.
type PortfolioState struct {
	Date        time.Time       `json:"date"`
	Status      PortfolioStatus `json:"status"`
	Cash        float64         `json:"cash"`
	Position    *Position       `json:"position,omitempty"`
	VixCooldown bool            `json:"vix_cooldown"`
}

// Equity marks the position at price and adds cash.
func (s PortfolioState) Equity(price float64) float64 {
	if s.Position == nil {
		return s.Cash
	}
	return s.Cash + s.Position.Shares*price
}

// DailyLogEntry is one point of the equity curve.
type DailyLogEntry struct {
	Date   time.Time       `json:"date"`
	Status PortfolioStatus `json:"status"`
	Symbol string          `json:"symbol,omitempty"`
	Equity float64         `json:"equity"`
	Cash   float64         `json:"cash"`
	Signal string          `json:"signal,omitempty"`
	Notes  string          `json:"notes,omitempty"`
}
