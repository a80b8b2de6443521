package repository

import (
	"context"
	"errors"
	"time"

	"AssetRevest/internal/domain/models"
)

// ErrNotFound is returned by lookups that match no record.
var ErrNotFound = errors.New("record not found")

// BarStore holds raw market inputs. Bars are immutable once written.
type BarStore interface {
	UpsertBars(ctx context.Context, bars []models.PriceBar) error
	GetBar(ctx context.Context, symbol string, date time.Time) (*models.PriceBar, error)
	GetBarsInRange(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error)
	UpsertVixBars(ctx context.Context, bars []models.VixBar) error
	GetVixBars(ctx context.Context, from, to time.Time) ([]models.VixBar, error)
	UpsertBreadth(ctx context.Context, bars []models.BreadthBar) error
	GetBreadth(ctx context.Context, from, to time.Time) ([]models.BreadthBar, error)
}

// IndicatorStore holds derived indicators. A zero asOf means latest overall;
// otherwise the most recent record dated on or before asOf is returned.
type IndicatorStore interface {
	UpsertIndicators(ctx context.Context, snaps []models.IndicatorSnapshot) error
	GetLatestIndicator(ctx context.Context, symbol string, asOf time.Time) (*models.IndicatorSnapshot, error)
	GetRecentIndicators(ctx context.Context, symbol string, asOf time.Time, n int) ([]models.IndicatorSnapshot, error)
	UpsertVix(ctx context.Context, snaps []models.VixSnapshot) error
	GetLatestVix(ctx context.Context, asOf time.Time) (*models.VixSnapshot, error)
	UpsertVolume(ctx context.Context, snaps []models.VolumeSnapshot) error
	GetLatestVolume(ctx context.Context, asOf time.Time) (*models.VolumeSnapshot, error)
}

// StageStore holds the per-symbol confirmation fold.
type StageStore interface {
	UpsertStageRecords(ctx context.Context, recs []models.StageRecord) error
	GetLatestStage(ctx context.Context, symbol string, asOf time.Time) (*models.StageRecord, error)
}

// LedgerStore holds trades, the live portfolio and its equity curve.
type LedgerStore interface {
	UpsertTrade(ctx context.Context, t models.Trade) error
	GetTrades(ctx context.Context, limit int) ([]models.Trade, error)
	GetPortfolioState(ctx context.Context) (*models.PortfolioState, error)
	SavePortfolioState(ctx context.Context, s models.PortfolioState) error
	AppendDailyLog(ctx context.Context, e models.DailyLogEntry) error
	GetDailyLog(ctx context.Context, limit int) ([]models.DailyLogEntry, error)
}

// Store is the full time-indexed store consumed by the pipeline.
type Store interface {
	BarStore
	IndicatorStore
	StageStore
	LedgerStore
	Health(ctx context.Context) error
	Close() error
}

// EventPublisher ships decision and ledger events downstream.
type EventPublisher interface {
	Publish(ctx context.Context, e models.Event) error
	Close() error
}

type Metrics interface {
	RecordSignal(asset string, strength models.Strength)
	RecordExit(reason models.ExitReason)
	RecordTrade(symbol string, pnlPct float64)
	RecordEquity(source string, equity float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
