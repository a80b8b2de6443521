package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"AssetRevest/internal/domain/models"
	"AssetRevest/internal/repository"
	"AssetRevest/internal/services/market"
	"AssetRevest/pkg/cache"
	"AssetRevest/pkg/config"
	"AssetRevest/pkg/metrics"
	"AssetRevest/pkg/util"
)

const days = 300

var start = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func day(i int) time.Time { return util.AddBusinessDays(start, i) }

func closeAt(i int) float64 { return 100 + 0.5*float64(i) }

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) ofType(t models.EventType) []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// seedRaw writes a steadily rising SPY and a calm VIX, without derived data.
func seedRaw(t *testing.T) *repository.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	var spy []models.PriceBar
	var vix []models.VixBar
	for i := 0; i < days; i++ {
		c := closeAt(i)
		spy = append(spy, models.PriceBar{Symbol: "SPY", Date: day(i), Open: c - 0.25, High: c + 1, Low: c - 1, Close: c, Volume: 1e6})
		vix = append(vix, models.VixBar{Date: day(i), Close: 14})
	}
	require.NoError(t, store.UpsertBars(ctx, spy))
	require.NoError(t, store.UpsertVixBars(ctx, vix))
	return store
}

// seeded is seedRaw followed by a pipeline run.
func seeded(t *testing.T, cfg *config.Config) *repository.MemoryStore {
	t.Helper()
	store := seedRaw(t)
	_, err := NewPipeline(store, cfg.Universe, cfg.Strategy, metrics.Nop{}, 2).Run(context.Background())
	require.NoError(t, err)
	return store
}

type fixture struct {
	cfg       *config.Config
	store     *repository.MemoryStore
	events    *recordingPublisher
	cache     *cache.MemoryCache
	portfolio *Portfolio
	daily     *DailySignal
}

func newFixture(t *testing.T, store *repository.MemoryStore) *fixture {
	t.Helper()
	cfg := config.Default()
	if store == nil {
		store = seeded(t, cfg)
	}
	f := &fixture{cfg: cfg, store: store, events: &recordingPublisher{}, cache: cache.NewMemoryCache()}
	t.Cleanup(func() { _ = f.cache.Close() })

	f.portfolio = NewPortfolio(store, f.events, metrics.Nop{}, cfg.Universe, cfg.Strategy)
	f.portfolio.now = func() time.Time { return day(days - 1) }
	loader := market.NewLoader(store, cfg.Universe.ComputeSymbols())
	f.daily = NewDailySignal(store, loader, f.portfolio, f.cache, f.events, metrics.Nop{}, cfg.Universe, cfg.Strategy)
	return f
}
