package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AssetRevest/internal/domain/models"
	domrepo "AssetRevest/internal/domain/repository"
	"AssetRevest/internal/domain/service"
	"AssetRevest/pkg/util"
)

// Source is the read side of the store the loader needs.
type Source interface {
	GetRecentIndicators(ctx context.Context, symbol string, asOf time.Time, n int) ([]models.IndicatorSnapshot, error)
	GetLatestStage(ctx context.Context, symbol string, asOf time.Time) (*models.StageRecord, error)
	GetLatestVix(ctx context.Context, asOf time.Time) (*models.VixSnapshot, error)
	GetLatestVolume(ctx context.Context, asOf time.Time) (*models.VolumeSnapshot, error)
}

// Loader assembles the as-of market view. Nothing dated after the requested
// date can reach the snapshot, which keeps backtests free of lookahead.
type Loader struct {
	src     Source
	symbols []string
}

var _ service.SnapshotLoader = (*Loader)(nil)

func NewLoader(src Source, symbols []string) *Loader {
	return &Loader{src: src, symbols: symbols}
}

// Load returns the snapshot for date. Symbols without data are left out;
// a zero date loads the latest records.
func (l *Loader) Load(ctx context.Context, date time.Time) (*models.MarketSnapshot, error) {
	date = util.Day(date)
	snap := &models.MarketSnapshot{
		Date:           date,
		Indicators:     make(map[string]models.IndicatorSnapshot, len(l.symbols)),
		PrevIndicators: make(map[string]models.IndicatorSnapshot, len(l.symbols)),
		Stages:         make(map[string]models.StageRecord, len(l.symbols)),
	}

	for _, sym := range l.symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recent, err := l.src.GetRecentIndicators(ctx, sym, date, 2)
		if err != nil && !errors.Is(err, domrepo.ErrNotFound) {
			return nil, fmt.Errorf("load indicators %s: %w", sym, err)
		}
		if len(recent) > 0 {
			snap.Indicators[sym] = recent[0]
		}
		if len(recent) > 1 {
			snap.PrevIndicators[sym] = recent[1]
		}

		rec, err := l.src.GetLatestStage(ctx, sym, date)
		switch {
		case errors.Is(err, domrepo.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("load stage %s: %w", sym, err)
		default:
			snap.Stages[sym] = *rec
		}
	}

	vix, err := l.src.GetLatestVix(ctx, date)
	if err != nil && !errors.Is(err, domrepo.ErrNotFound) {
		return nil, fmt.Errorf("load vix: %w", err)
	}
	snap.Vix = vix

	vol, err := l.src.GetLatestVolume(ctx, date)
	if err != nil && !errors.Is(err, domrepo.ErrNotFound) {
		return nil, fmt.Errorf("load volume: %w", err)
	}
	snap.Volume = vol

	if date.IsZero() {
		for _, ind := range snap.Indicators {
			if ind.Date.After(snap.Date) {
				snap.Date = ind.Date
			}
		}
	}
	return snap, nil
}
