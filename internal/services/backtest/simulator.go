package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"AssetRevest/internal/domain/models"
	domrepo "AssetRevest/internal/domain/repository"
	"AssetRevest/internal/domain/service"
	"AssetRevest/internal/services/position"
	"AssetRevest/internal/services/signal"
	"AssetRevest/pkg/config"
	applogger "AssetRevest/pkg/logger"
	"AssetRevest/pkg/util"
)

// Result is one replay over a date range.
type Result struct {
	ID             string                 `json:"id"`
	Start          time.Time              `json:"start"`
	End            time.Time              `json:"end"`
	InitialCapital float64                `json:"initial_capital"`
	FinalCapital   float64                `json:"final_capital"`
	Trades         []models.Trade         `json:"trades"`
	DailyLog       []models.DailyLogEntry `json:"daily_log"`
	Signals        []models.Rotation      `json:"signals,omitempty"`
}

// pending is an accepted rotation waiting for the next open.
type pending struct {
	rot   models.Rotation
	stage models.Stage
}

// Simulator replays stored history through the live decision path. It only
// reads from its sources, so one Simulator may serve concurrent runs.
type Simulator struct {
	bars     service.BarSource
	loader   service.SnapshotLoader
	gen      *signal.Generator
	universe config.Universe
	params   config.Strategy
	l        *applogger.Logger
	verbose  bool
}

type Option func(*Simulator)

func WithLogger(l *applogger.Logger) Option {
	return func(s *Simulator) { s.l = l }
}

// WithVerbose promotes per-trade logs from debug to info.
func WithVerbose(v bool) Option {
	return func(s *Simulator) { s.verbose = v }
}

func NewSimulator(bars service.BarSource, loader service.SnapshotLoader, u config.Universe, p config.Strategy, opts ...Option) *Simulator {
	s := &Simulator{
		bars:     bars,
		loader:   loader,
		gen:      signal.NewGenerator(u, p),
		universe: u,
		params:   p,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.l = applogger.OrNop(s.l)
	return s
}

// run is the mutable state of one replay.
type run struct {
	book      *position.Book
	pending   *pending
	cooldown  int
	lastClose float64
	res       *Result
}

// Run replays every benchmark trading date in [from, to]. Signals computed on
// a close are filled at the next date's open; a position still open on the
// last date is closed there with BACKTEST_END.
func (s *Simulator) Run(ctx context.Context, from, to time.Time, capital float64) (*Result, error) {
	from, to = util.Day(from), util.Day(to)
	res := &Result{ID: uuid.NewString(), Start: from, End: to, InitialCapital: capital, FinalCapital: capital}

	calendar, err := s.bars.GetBarsInRange(ctx, s.universe.Benchmark, from, to)
	if err != nil {
		return nil, fmt.Errorf("trading dates: %w", err)
	}
	if len(calendar) == 0 {
		s.l.Warn("backtest has no trading dates",
			applogger.String("symbol", s.universe.Benchmark),
			applogger.Date("start", from),
			applogger.Date("end", to),
		)
		return res, nil
	}

	start := time.Now()
	r := &run{book: position.NewBook(capital), res: res}
	for _, bar := range calendar {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.step(ctx, r, bar.Date); err != nil {
			return nil, fmt.Errorf("backtest %s: %w", util.FormatDate(bar.Date), err)
		}
	}

	last := calendar[len(calendar)-1].Date
	if pos := r.book.Position(); pos != nil {
		price, ok := s.close(ctx, pos.Symbol, last)
		if !ok {
			price = r.lastClose
		}
		trade, err := r.book.Close(price, last, models.ExitBacktestEnd)
		if err != nil {
			return nil, err
		}
		res.Trades = append(res.Trades, trade)
	}
	if n := len(res.DailyLog); n > 0 {
		res.FinalCapital = res.DailyLog[n-1].Equity
	}

	s.l.Info("backtest completed",
		applogger.String("id", res.ID),
		applogger.Date("start", calendar[0].Date),
		applogger.Date("end", last),
		applogger.Int("days", len(calendar)),
		applogger.Int("trades", len(res.Trades)),
		applogger.Float64("final_capital", util.Round2(res.FinalCapital)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return res, nil
}

func (s *Simulator) step(ctx context.Context, r *run, date time.Time) error {
	snap, err := s.loader.Load(ctx, date)
	if err != nil {
		return err
	}

	if r.book.VixCooldown() && (snap.Vix == nil || snap.Vix.Close < s.params.Vix.EmergencyLevel) {
		r.book.SetVixCooldown(false)
		s.trace("vix cooldown lifted", applogger.Date("date", date))
	}
	if r.cooldown > 0 {
		r.cooldown--
	}

	if r.pending != nil {
		if err := s.fill(ctx, r, date); err != nil {
			return err
		}
	}

	if pos := r.book.Position(); pos != nil && !pos.EntryDate.Equal(date) {
		price, ok := s.close(ctx, pos.Symbol, date)
		if ok {
			r.lastClose = price
			if err := s.manage(r, *pos, position.Day{Date: date, Close: price, Vix: snap.Vix, Stage: snap.Stage(pos.Underlying)}); err != nil {
				return err
			}
		} else {
			s.l.Warn("missing close for position symbol, carrying last close",
				applogger.String("symbol", pos.Symbol),
				applogger.Date("date", date),
				applogger.Float64("last_close", r.lastClose),
			)
		}
	}

	if r.book.Flat() && r.pending == nil && !r.book.VixCooldown() && r.cooldown <= 0 {
		rot := s.gen.Rotate(snap)
		if rot.Actionable() {
			r.pending = &pending{rot: rot, stage: snap.Stage(rot.Underlying)}
			r.res.Signals = append(r.res.Signals, rot)
			s.trace("signal, entering at next open",
				applogger.Date("date", date),
				applogger.String("asset", rot.Asset),
				applogger.String("direction", rot.Direction.String()),
				applogger.String("strength", rot.Strength.String()),
				applogger.Int("tier", rot.Tier),
			)
		}
	}
	r.book.MarkEntering(r.pending != nil, date)

	equity := r.book.Cash()
	entry := models.DailyLogEntry{Date: date, Status: r.book.State().Status}
	if pos := r.book.Position(); pos != nil {
		mark := r.lastClose
		if price, ok := s.close(ctx, pos.Symbol, date); ok {
			mark = price
		}
		equity = r.book.Equity(mark)
		entry.Symbol = pos.Symbol
	} else if r.pending != nil {
		entry.Signal = r.pending.rot.Asset
	}
	entry.Equity = equity
	entry.Cash = r.book.Cash()
	r.res.DailyLog = append(r.res.DailyLog, entry)
	return nil
}

// fill executes the pending entry at date's open, falling back to the close.
func (s *Simulator) fill(ctx context.Context, r *run, date time.Time) error {
	p := r.pending
	r.pending = nil
	if r.book.VixCooldown() {
		s.trace("entry cancelled by vix cooldown", applogger.Date("date", date), applogger.String("asset", p.rot.Asset))
		return nil
	}

	bar, err := s.bars.GetBar(ctx, p.rot.Asset, date)
	if err != nil && !errors.Is(err, domrepo.ErrNotFound) {
		return fmt.Errorf("entry bar %s: %w", p.rot.Asset, err)
	}
	if bar == nil {
		s.l.Warn("no bar for pending entry, dropping signal",
			applogger.String("asset", p.rot.Asset),
			applogger.Date("date", date),
		)
		return nil
	}
	price := bar.Open
	if price <= 0 {
		price = bar.Close
	}
	if price <= 0 {
		return nil
	}

	var atr *float64
	ind, err := s.bars.GetLatestIndicator(ctx, p.rot.Underlying, date)
	switch {
	case errors.Is(err, domrepo.ErrNotFound):
	case err != nil:
		return fmt.Errorf("entry atr %s: %w", p.rot.Underlying, err)
	default:
		atr = ind.ATR
	}

	params := position.TradeParams(price, p.rot.Direction, p.stage, atr, s.params)
	pos := models.Position{
		Symbol:         p.rot.Asset,
		Underlying:     p.rot.Underlying,
		Direction:      p.rot.Direction,
		TradeType:      params.Type,
		Tier:           p.rot.Tier,
		EntryDate:      date,
		EntryPrice:     price,
		Shares:         r.book.Cash() / price,
		Stop:           params.Stop,
		Target:         params.Target,
		TrailingPct:    params.TrailingPct,
		PartialExitPct: params.PartialExitPct,
	}
	if err := r.book.Open(pos); err != nil {
		return err
	}
	r.lastClose = bar.Close
	s.trace("entry",
		applogger.Date("date", date),
		applogger.String("symbol", pos.Symbol),
		applogger.Float64("price", price),
		applogger.Float64("stop", util.Round2(params.Stop)),
		applogger.Float64("target", util.Round2(params.Target)),
		applogger.String("trade_type", params.Type.String()),
	)
	return nil
}

// manage applies the day's exit decision to the book.
func (s *Simulator) manage(r *run, pos models.Position, d position.Day) error {
	dec := position.Evaluate(pos, d, s.params)
	switch dec.Action {
	case models.ActionFullExit:
		return s.exit(r, d, dec.Reason)
	case models.ActionPartialExit:
		if dec.ExitPct >= 1 {
			return s.exit(r, d, dec.Reason)
		}
		if _, err := r.book.Reduce(dec.ExitPct, d.Close, d.Date); err != nil {
			return err
		}
		s.trace("partial exit",
			applogger.Date("date", d.Date),
			applogger.String("symbol", pos.Symbol),
			applogger.Float64("exit_pct", dec.ExitPct),
			applogger.Float64("price", d.Close),
		)
	case models.ActionUpdateStop:
		return r.book.SetStop(dec.NewStop, d.Date)
	}
	return nil
}

func (s *Simulator) exit(r *run, d position.Day, reason models.ExitReason) error {
	trade, err := r.book.Close(d.Close, d.Date, reason)
	if err != nil {
		return err
	}
	r.res.Trades = append(r.res.Trades, trade)
	r.cooldown = s.params.Backtest.CooldownDays
	s.trace("exit",
		applogger.Date("date", d.Date),
		applogger.String("symbol", trade.Symbol),
		applogger.String("reason", reason.String()),
		applogger.Float64("pnl_pct", trade.PnLPct),
		applogger.Int("holding_days", trade.HoldingDays),
	)
	return nil
}

func (s *Simulator) close(ctx context.Context, symbol string, date time.Time) (float64, bool) {
	bar, err := s.bars.GetBar(ctx, symbol, date)
	if err != nil || bar == nil || bar.Close <= 0 {
		return 0, false
	}
	return bar.Close, true
}

func (s *Simulator) trace(msg string, fields ...applogger.Field) {
	if s.verbose {
		s.l.Info(msg, fields...)
		return
	}
	s.l.Debug(msg, fields...)
}
