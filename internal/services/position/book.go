package position

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"AssetRevest/internal/domain/models"
	"AssetRevest/pkg/util"
)

var (
	// ErrInconsistentState marks calls that contradict the portfolio state.
	ErrInconsistentState = errors.New("inconsistent portfolio state")
	ErrPositionOpen      = fmt.Errorf("%w: a position is already open", ErrInconsistentState)
	ErrNoPosition        = fmt.Errorf("%w: no open position", ErrInconsistentState)
	ErrInsufficientCash  = fmt.Errorf("%w: position cost exceeds cash", ErrInconsistentState)
)

// cashTolerance absorbs float error when all cash buys a position.
const cashTolerance = 1e-6

// Book owns the single portfolio and its at most one open position.
// A Book has exactly one writer and is not safe for concurrent use.
type Book struct {
	state models.PortfolioState
}

func NewBook(cash float64) *Book {
	return &Book{state: models.PortfolioState{Status: models.StatusCash, Cash: cash}}
}

// Restore resumes a persisted state.
func Restore(state models.PortfolioState) *Book {
	b := &Book{state: state}
	if state.Position != nil {
		p := *state.Position
		b.state.Position = &p
	}
	if b.state.Status == "" {
		b.state.Status = models.StatusCash
	}
	return b
}

// State returns a copy that the caller may keep.
func (b *Book) State() models.PortfolioState {
	s := b.state
	if s.Position != nil {
		p := *s.Position
		s.Position = &p
	}
	return s
}

// Position returns a copy of the open position, or nil.
func (b *Book) Position() *models.Position {
	if b.state.Position == nil {
		return nil
	}
	p := *b.state.Position
	return &p
}

func (b *Book) Cash() float64 { return b.state.Cash }

func (b *Book) Flat() bool { return b.state.Position == nil }

func (b *Book) Equity(price float64) float64 { return b.state.Equity(price) }

func (b *Book) VixCooldown() bool { return b.state.VixCooldown }

func (b *Book) SetVixCooldown(on bool) { b.state.VixCooldown = on }

// SetCash replaces the uninvested cash balance.
func (b *Book) SetCash(cash float64, date time.Time) {
	b.state.Cash = cash
	b.touch(date)
}

// MarkEntering flags a pending entry while flat.
func (b *Book) MarkEntering(pending bool, date time.Time) {
	if b.state.Position != nil {
		return
	}
	if pending {
		b.state.Status = models.StatusEntering
	} else {
		b.state.Status = models.StatusCash
	}
	b.touch(date)
}

// Open buys pos.Shares at pos.EntryPrice out of cash.
func (b *Book) Open(pos models.Position) error {
	if b.state.Position != nil {
		return ErrPositionOpen
	}
	if pos.Shares <= 0 || pos.EntryPrice <= 0 {
		return fmt.Errorf("open %s: shares and entry price must be positive", pos.Symbol)
	}
	cost := pos.Shares * pos.EntryPrice
	if cost > b.state.Cash+cashTolerance {
		return fmt.Errorf("open %s: %w (cost %.2f, cash %.2f)", pos.Symbol, ErrInsufficientCash, cost, b.state.Cash)
	}
	b.state.Cash -= cost
	if b.state.Cash < 0 {
		b.state.Cash = 0
	}
	if pos.Underlying == "" {
		pos.Underlying = pos.Symbol
	}
	if pos.StopOrderDate.IsZero() {
		pos.StopOrderDate = pos.EntryDate
	}
	pos.PartialExited = false
	b.state.Position = &pos
	b.state.Status = models.StatusPositioned
	b.touch(pos.EntryDate)
	return nil
}

// Reduce sells fraction of the position at price and moves the stop to
// breakeven. It returns the proceeds.
func (b *Book) Reduce(fraction, price float64, date time.Time) (float64, error) {
	pos := b.state.Position
	if pos == nil {
		return 0, ErrNoPosition
	}
	if fraction <= 0 || fraction >= 1 {
		return 0, fmt.Errorf("reduce %s: fraction %.2f must be in (0, 1)", pos.Symbol, fraction)
	}
	sold := pos.Shares * fraction
	proceeds := sold * price
	b.state.Cash += proceeds
	pos.Shares -= sold
	pos.Stop = pos.EntryPrice
	pos.PartialExited = true
	b.state.Status = models.StatusPartialExit
	b.touch(date)
	return proceeds, nil
}

// SetStop replaces the stop and restarts the broker stop-order clock.
func (b *Book) SetStop(stop float64, date time.Time) error {
	pos := b.state.Position
	if pos == nil {
		return ErrNoPosition
	}
	pos.Stop = stop
	if !date.IsZero() {
		pos.StopOrderDate = date
	}
	b.touch(date)
	return nil
}

// Close sells the whole position at price and returns the closed trade.
// A VIX_EMERGENCY exit turns the VIX cooldown on; any other reason clears it.
func (b *Book) Close(price float64, date time.Time, reason models.ExitReason) (models.Trade, error) {
	pos := b.state.Position
	if pos == nil {
		return models.Trade{}, ErrNoPosition
	}
	proceeds := pos.Shares * price
	trade := models.Trade{
		ID:          uuid.NewString(),
		Symbol:      pos.Symbol,
		Direction:   pos.Direction,
		TradeType:   pos.TradeType,
		Tier:        pos.Tier,
		EntryDate:   pos.EntryDate,
		EntryPrice:  pos.EntryPrice,
		ExitDate:    date,
		ExitPrice:   price,
		ExitReason:  reason,
		Shares:      pos.Shares,
		PnLPct:      util.Round2((price - pos.EntryPrice) / pos.EntryPrice * 100),
		PnLDollar:   util.Round2(proceeds - pos.Shares*pos.EntryPrice),
		HoldingDays: util.CalendarDays(pos.EntryDate, date),
	}
	b.state.Cash += proceeds
	b.state.Position = nil
	b.state.Status = models.StatusCash
	b.state.VixCooldown = reason == models.ExitVixEmergency
	b.touch(date)
	return trade, nil
}

func (b *Book) touch(date time.Time) {
	if !date.IsZero() {
		b.state.Date = util.Day(date)
	}
}
