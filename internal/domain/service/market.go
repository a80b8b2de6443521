package service

import (
	"context"
	"time"

	"AssetRevest/internal/domain/models"
)

// SnapshotLoader builds the as-of market view for one date.
type SnapshotLoader interface {
	Load(ctx context.Context, date time.Time) (*models.MarketSnapshot, error)
}

// BarSource resolves daily bars for execution and marking.
type BarSource interface {
	GetBar(ctx context.Context, symbol string, date time.Time) (*models.PriceBar, error)
	GetBarsInRange(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error)
	GetLatestIndicator(ctx context.Context, symbol string, asOf time.Time) (*models.IndicatorSnapshot, error)
}
