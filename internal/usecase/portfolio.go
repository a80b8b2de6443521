package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"AssetRevest/internal/domain/models"
	domrepo "AssetRevest/internal/domain/repository"
	"AssetRevest/internal/services/position"
	"AssetRevest/pkg/config"
	applogger "AssetRevest/pkg/logger"
	"AssetRevest/pkg/util"
)

// Portfolio runs the operator-driven live ledger. Nothing executes on its own:
// every change is an explicit Enter, Exit, UpdateStop or SetCapital call.
type Portfolio struct {
	store    domrepo.Store
	events   domrepo.EventPublisher
	metrics  domrepo.Metrics
	universe config.Universe
	params   config.Strategy
	now      func() time.Time
	l        *applogger.Logger

	// mu serializes read-modify-write cycles on the persisted state.
	mu sync.Mutex
}

func NewPortfolio(store domrepo.Store, events domrepo.EventPublisher, metrics domrepo.Metrics, u config.Universe, p config.Strategy) *Portfolio {
	return &Portfolio{
		store:    store,
		events:   events,
		metrics:  metrics,
		universe: u,
		params:   p,
		now:      time.Now,
		l:        applogger.Nop(),
	}
}

// SetLogger injects a structured logger.
func (p *Portfolio) SetLogger(l *applogger.Logger) { p.l = applogger.OrNop(l) }

// Holdings is the current state marked at the latest stored close.
type Holdings struct {
	State         models.PortfolioState `json:"state"`
	MarkPrice     float64               `json:"mark_price,omitempty"`
	Equity        float64               `json:"equity"`
	UnrealizedPct *float64              `json:"unrealized_pct,omitempty"`
}

// ExitResult is the outcome of a partial or full exit.
type ExitResult struct {
	State    models.PortfolioState `json:"state"`
	Trade    *models.Trade         `json:"trade,omitempty"`
	Proceeds float64               `json:"proceeds"`
}

// book loads the persisted portfolio, or a fresh one funded with the
// configured initial capital.
func (p *Portfolio) book(ctx context.Context) (*position.Book, error) {
	st, err := p.store.GetPortfolioState(ctx)
	switch {
	case errors.Is(err, domrepo.ErrNotFound):
		return position.NewBook(p.params.Backtest.InitialCapital), nil
	case err != nil:
		return nil, fmt.Errorf("load portfolio: %w", err)
	}
	return position.Restore(*st), nil
}

func (p *Portfolio) save(ctx context.Context, b *position.Book) error {
	if err := p.store.SavePortfolioState(ctx, b.State()); err != nil {
		return fmt.Errorf("save portfolio: %w", err)
	}
	return nil
}

// State returns the persisted portfolio without marking it.
func (p *Portfolio) State(ctx context.Context) (models.PortfolioState, error) {
	b, err := p.book(ctx)
	if err != nil {
		return models.PortfolioState{}, err
	}
	return b.State(), nil
}

// Status marks the open position at its latest stored close.
func (p *Portfolio) Status(ctx context.Context) (*Holdings, error) {
	b, err := p.book(ctx)
	if err != nil {
		return nil, err
	}
	h := &Holdings{State: b.State(), Equity: b.Cash()}
	pos := b.Position()
	if pos == nil {
		return h, nil
	}
	h.MarkPrice = pos.EntryPrice
	if ind, err := p.store.GetLatestIndicator(ctx, pos.Symbol, time.Time{}); err == nil {
		h.MarkPrice = ind.Close
	} else if !errors.Is(err, domrepo.ErrNotFound) {
		return nil, fmt.Errorf("mark %s: %w", pos.Symbol, err)
	}
	h.Equity = b.Equity(h.MarkPrice)
	h.UnrealizedPct = models.Opt(util.Round2((h.MarkPrice - pos.EntryPrice) / pos.EntryPrice * 100))
	return h, nil
}

// Enter opens a position. Shares wins over capital; with neither, all cash
// is invested. Stop and target come from the underlying's stage and ATR.
func (p *Portfolio) Enter(ctx context.Context, req models.EnterRequest) (*models.PortfolioState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	date := p.date(req.Date)
	b, err := p.book(ctx)
	if err != nil {
		return nil, err
	}
	if !b.Flat() {
		return nil, position.ErrPositionOpen
	}

	dir := models.Direction(req.Direction)
	if dir == "" {
		dir = models.Long
	}
	underlying := p.underlying(req.Symbol, dir)
	st := models.Transitional
	if rec, err := p.store.GetLatestStage(ctx, underlying, date); err == nil {
		st = rec.ConfirmedStage
	} else if !errors.Is(err, domrepo.ErrNotFound) {
		return nil, fmt.Errorf("stage %s: %w", underlying, err)
	}
	var atr *float64
	if ind, err := p.store.GetLatestIndicator(ctx, underlying, date); err == nil {
		atr = ind.ATR
	} else if !errors.Is(err, domrepo.ErrNotFound) {
		return nil, fmt.Errorf("atr %s: %w", underlying, err)
	}

	shares := req.Shares
	switch {
	case shares > 0:
	case req.Capital > 0:
		shares = req.Capital / req.Price
	default:
		shares = b.Cash() / req.Price
	}

	tier := req.Tier
	if tier == 0 {
		tier = 1
	}
	params := position.TradeParams(req.Price, dir, st, atr, p.params)
	pos := models.Position{
		Symbol:         req.Symbol,
		Underlying:     underlying,
		Direction:      dir,
		TradeType:      params.Type,
		Tier:           tier,
		EntryDate:      date,
		EntryPrice:     req.Price,
		Shares:         shares,
		Stop:           params.Stop,
		Target:         params.Target,
		TrailingPct:    params.TrailingPct,
		PartialExitPct: params.PartialExitPct,
	}
	if err := b.Open(pos); err != nil {
		return nil, err
	}
	if err := p.save(ctx, b); err != nil {
		return nil, err
	}

	state := b.State()
	p.l.Info("position opened",
		applogger.String("symbol", pos.Symbol),
		applogger.String("underlying", underlying),
		applogger.String("trade_type", params.Type.String()),
		applogger.Float64("price", pos.EntryPrice),
		applogger.Float64("shares", util.Round(shares, 4)),
		applogger.Float64("stop", util.Round2(pos.Stop)),
		applogger.Float64("target", util.Round2(pos.Target)),
	)
	p.publish(ctx, models.EventPositionOpened, pos.Symbol, state)
	return &state, nil
}

// Exit sells the whole position, or its plan's partial fraction when
// req.Partial is set. A partial exit moves the stop to breakeven.
func (p *Portfolio) Exit(ctx context.Context, req models.ExitRequest) (*ExitResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	date := p.date(req.Date)
	b, err := p.book(ctx)
	if err != nil {
		return nil, err
	}
	pos := b.Position()
	if pos == nil {
		return nil, position.ErrNoPosition
	}
	reason := models.ExitReason(req.Reason)
	if reason == "" {
		reason = models.ExitManual
	}

	if req.Partial && pos.PartialExitPct > 0 && pos.PartialExitPct < 1 {
		proceeds, err := b.Reduce(pos.PartialExitPct, req.Price, date)
		if err != nil {
			return nil, err
		}
		if err := p.save(ctx, b); err != nil {
			return nil, err
		}
		res := &ExitResult{State: b.State(), Proceeds: util.Round2(proceeds)}
		p.l.Info("position reduced",
			applogger.String("symbol", pos.Symbol),
			applogger.Float64("fraction", pos.PartialExitPct),
			applogger.Float64("price", req.Price),
			applogger.Float64("proceeds", res.Proceeds),
		)
		p.publish(ctx, models.EventPositionReduced, pos.Symbol, res)
		return res, nil
	}

	trade, err := b.Close(req.Price, date, reason)
	if err != nil {
		return nil, err
	}
	if err := p.store.UpsertTrade(ctx, trade); err != nil {
		return nil, fmt.Errorf("record trade: %w", err)
	}
	if err := p.save(ctx, b); err != nil {
		return nil, err
	}
	p.metrics.RecordExit(reason)
	p.metrics.RecordTrade(trade.Symbol, trade.PnLPct)

	res := &ExitResult{State: b.State(), Trade: &trade, Proceeds: util.Round2(trade.Shares * trade.ExitPrice)}
	p.l.Info("trade closed",
		applogger.String("id", trade.ID),
		applogger.String("symbol", trade.Symbol),
		applogger.String("reason", reason.String()),
		applogger.Float64("pnl_pct", trade.PnLPct),
		applogger.Int("holding_days", trade.HoldingDays),
	)
	p.publish(ctx, models.EventTradeClosed, trade.Symbol, trade)
	return res, nil
}

// UpdateStop replaces the stop of the open position.
func (p *Portfolio) UpdateStop(ctx context.Context, req models.StopRequest) (*models.PortfolioState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, err := p.book(ctx)
	if err != nil {
		return nil, err
	}
	if err := b.SetStop(req.Stop, p.date(req.Date)); err != nil {
		return nil, err
	}
	if err := p.save(ctx, b); err != nil {
		return nil, err
	}
	state := b.State()
	return &state, nil
}

// SetCapital replaces the uninvested cash balance.
func (p *Portfolio) SetCapital(ctx context.Context, req models.CapitalRequest) (*models.PortfolioState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, err := p.book(ctx)
	if err != nil {
		return nil, err
	}
	b.SetCash(req.Cash, p.now())
	if err := p.save(ctx, b); err != nil {
		return nil, err
	}
	state := b.State()
	return &state, nil
}

// TradeHistory returns the most recent closed trades, newest first.
func (p *Portfolio) TradeHistory(ctx context.Context, limit int) ([]models.Trade, error) {
	trades, err := p.store.GetTrades(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("trade history: %w", err)
	}
	return trades, nil
}

// EquityCurve returns the last limit daily log entries in date order.
func (p *Portfolio) EquityCurve(ctx context.Context, limit int) ([]models.DailyLogEntry, error) {
	return p.store.GetDailyLog(ctx, limit)
}

// underlying resolves the instrument whose stage and ATR drive a position.
func (p *Portfolio) underlying(symbol string, dir models.Direction) string {
	if dir != models.LongInverse {
		return symbol
	}
	for eq, inv := range p.universe.EquityInverse {
		if inv == symbol {
			return eq
		}
	}
	if symbol == p.universe.DollarInverse && p.universe.DollarLong != "" {
		return p.universe.DollarLong
	}
	return p.universe.PrimaryEquity()
}

func (p *Portfolio) date(s string) time.Time {
	return util.ParseDateDefault(s, util.Day(p.now()))
}

func (p *Portfolio) publish(ctx context.Context, t models.EventType, key string, payload interface{}) {
	publishEvent(ctx, p.events, p.metrics, p.l, t, key, payload)
}
