package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"AssetRevest/internal/domain/models"
	domrepo "AssetRevest/internal/domain/repository"
	"AssetRevest/internal/domain/service"
	"AssetRevest/internal/services/position"
	"AssetRevest/internal/services/signal"
	"AssetRevest/pkg/cache"
	"AssetRevest/pkg/config"
	applogger "AssetRevest/pkg/logger"
	"AssetRevest/pkg/util"
)

// ErrRunInProgress is returned when another process holds the day's lock.
var ErrRunInProgress = errors.New("daily signal run already in progress")

// Locker is the part of the cache used to hold the per-day run lock.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// DailySignal builds the live daily report. Exit decisions are advisory: the
// operator acts on them through Portfolio.
type DailySignal struct {
	store     domrepo.Store
	loader    service.SnapshotLoader
	portfolio *Portfolio
	gen       *signal.Generator
	universe  config.Universe
	params    config.Strategy
	locker    Locker
	events    domrepo.EventPublisher
	metrics   domrepo.Metrics
	lockTTL   time.Duration
	l         *applogger.Logger
}

func NewDailySignal(store domrepo.Store, loader service.SnapshotLoader, portfolio *Portfolio, locker Locker,
	events domrepo.EventPublisher, metrics domrepo.Metrics, u config.Universe, p config.Strategy) *DailySignal {
	return &DailySignal{
		store:     store,
		loader:    loader,
		portfolio: portfolio,
		gen:       signal.NewGenerator(u, p),
		universe:  u,
		params:    p,
		locker:    locker,
		events:    events,
		metrics:   metrics,
		lockTTL:   10 * time.Minute,
		l:         applogger.Nop(),
	}
}

// SetLogger injects a structured logger.
func (d *DailySignal) SetLogger(l *applogger.Logger) { d.l = applogger.OrNop(l) }

// Run produces the report for date. A zero date means the latest date the
// benchmark has indicators for.
func (d *DailySignal) Run(ctx context.Context, date time.Time) (*models.DailyReport, error) {
	start := time.Now()
	date, err := d.resolveDate(ctx, date)
	if err != nil {
		return nil, err
	}

	if d.locker != nil {
		key := cache.GenerateKeyWithParams("lock", "signal", util.FormatDate(date))
		ok, err := d.locker.TryLock(ctx, key, d.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return nil, ErrRunInProgress
		}
		defer func() {
			if err := d.locker.Unlock(context.WithoutCancel(ctx), key); err != nil {
				d.l.Warn("release run lock failed", applogger.String("key", key), applogger.Error(err))
			}
		}()
	}

	report, err := d.build(ctx, date)
	if err != nil {
		d.metrics.RecordError("daily_signal")
		return nil, err
	}

	entry := models.DailyLogEntry{
		Date:   date,
		Status: report.Portfolio.Status,
		Equity: util.Round2(report.Equity),
		Cash:   util.Round2(report.Portfolio.Cash),
	}
	if pos := report.Portfolio.Position; pos != nil {
		entry.Symbol = pos.Symbol
	}
	var notes []string
	if report.Exit != nil && report.Exit.Action != models.ActionHold {
		notes = append(notes, fmt.Sprintf("%s %s: %s", report.Exit.Action, report.Exit.Reason, report.Exit.Details))
	}
	if rot := report.Rotation; rot != nil {
		if rot.Actionable() {
			entry.Signal = rot.Asset
		}
		notes = append(notes, rot.Reason)
	}
	notes = append(notes, report.Warnings...)
	entry.Notes = strings.Join(notes, "; ")
	if err := d.store.AppendDailyLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("append daily log: %w", err)
	}

	d.metrics.RecordEquity("live", report.Equity)
	if rot := report.Rotation; rot != nil {
		d.metrics.RecordSignal(rot.Asset, rot.Strength)
	}
	d.metrics.RecordLatency("daily_signal", time.Since(start).Seconds())
	publishEvent(ctx, d.events, d.metrics, d.l, models.EventSignal, util.FormatDate(date), report)

	fields := []applogger.Field{
		applogger.Date("date", date),
		applogger.String("status", report.Portfolio.Status.String()),
		applogger.Float64("equity", entry.Equity),
		applogger.Strings("warnings", report.Warnings),
	}
	if rot := report.Rotation; rot != nil {
		fields = append(fields, applogger.String("asset", rot.Asset), applogger.String("strength", rot.Strength.String()))
	}
	if report.Exit != nil {
		fields = append(fields, applogger.String("exit_action", string(report.Exit.Action)))
	}
	d.l.Info("daily signal", fields...)
	return report, nil
}

func (d *DailySignal) build(ctx context.Context, date time.Time) (*models.DailyReport, error) {
	snap, err := d.loader.Load(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	d.portfolio.mu.Lock()
	defer d.portfolio.mu.Unlock()
	b, err := d.portfolio.book(ctx)
	if err != nil {
		return nil, err
	}

	if b.VixCooldown() && (snap.Vix == nil || snap.Vix.Close < d.params.Vix.EmergencyLevel) {
		b.SetVixCooldown(false)
		if err := d.portfolio.save(ctx, b); err != nil {
			return nil, err
		}
		d.l.Info("vix cooldown lifted", applogger.Date("date", date))
	}

	report := &models.DailyReport{
		Date:     date,
		Stages:   snap.Stages,
		Vix:      snap.Vix,
		Warnings: d.gen.IntermarketWarnings(snap),
		Equity:   b.Cash(),
	}

	if pos := b.Position(); pos != nil {
		price, err := d.closeOf(ctx, snap, pos.Symbol, date)
		if err != nil {
			return nil, err
		}
		if price > 0 {
			dec := position.Evaluate(*pos, position.Day{Date: date, Close: price, Vix: snap.Vix, Stage: snap.Stage(pos.Underlying)}, d.params)
			report.Exit = &dec
			report.Equity = b.Equity(price)
		} else {
			d.l.Warn("no close for position symbol", applogger.String("symbol", pos.Symbol), applogger.Date("date", date))
			report.Equity = b.Equity(pos.EntryPrice)
		}
	} else if !b.VixCooldown() {
		rot := d.gen.Rotate(snap)
		report.Rotation = &rot
	}
	report.Portfolio = b.State()
	return report, nil
}

// closeOf prefers the snapshot's close and falls back to the stored bar.
func (d *DailySignal) closeOf(ctx context.Context, snap *models.MarketSnapshot, symbol string, date time.Time) (float64, error) {
	if ind := snap.Indicator(symbol); ind != nil && ind.Date.Equal(date) {
		return ind.Close, nil
	}
	bar, err := d.store.GetBar(ctx, symbol, date)
	switch {
	case errors.Is(err, domrepo.ErrNotFound):
		if ind := snap.Indicator(symbol); ind != nil {
			return ind.Close, nil
		}
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("close %s: %w", symbol, err)
	}
	return bar.Close, nil
}

func (d *DailySignal) resolveDate(ctx context.Context, date time.Time) (time.Time, error) {
	if !date.IsZero() {
		return util.Day(date), nil
	}
	ind, err := d.store.GetLatestIndicator(ctx, d.universe.Benchmark, time.Time{})
	if err != nil {
		return time.Time{}, fmt.Errorf("latest %s indicators: %w", d.universe.Benchmark, err)
	}
	return ind.Date, nil
}

// Market returns the as-of view without running any decision. A zero date
// loads the latest records.
func (d *DailySignal) Market(ctx context.Context, date time.Time) (*models.MarketSnapshot, error) {
	snap, err := d.loader.Load(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}
