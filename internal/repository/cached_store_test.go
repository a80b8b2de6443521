package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AssetRevest/internal/domain/models"
	domrepo "AssetRevest/internal/domain/repository"
	"AssetRevest/pkg/cache"
)

type countingStore struct {
	*MemoryStore
	indicatorReads int
	vixReads       int
}

func (c *countingStore) GetLatestIndicator(ctx context.Context, symbol string, asOf time.Time) (*models.IndicatorSnapshot, error) {
	c.indicatorReads++
	return c.MemoryStore.GetLatestIndicator(ctx, symbol, asOf)
}

func (c *countingStore) GetLatestVix(ctx context.Context, asOf time.Time) (*models.VixSnapshot, error) {
	c.vixReads++
	return c.MemoryStore.GetLatestVix(ctx, asOf)
}

func newCached(t *testing.T) (*CachedStore, *countingStore) {
	t.Helper()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	return NewCachedStore(inner, mc, time.Hour), inner
}

func TestCachedStoreServesRepeatReads(t *testing.T) {
	ctx := context.Background()
	s, inner := newCached(t)

	sma := 101.5
	require.NoError(t, s.UpsertIndicators(ctx, []models.IndicatorSnapshot{
		{Symbol: "SPY", Date: day(0), Close: 100, SMA20: &sma},
	}))

	for i := 0; i < 3; i++ {
		got, err := s.GetLatestIndicator(ctx, "SPY", day(5))
		require.NoError(t, err)
		assert.Equal(t, 100.0, got.Close)
		require.NotNil(t, got.SMA20)
		assert.Equal(t, 101.5, *got.SMA20)
		assert.Nil(t, got.SMA200)
		assert.True(t, got.Date.Equal(day(0)))
	}
	assert.Equal(t, 1, inner.indicatorReads)
}

func TestCachedStoreInvalidatesOnUpsert(t *testing.T) {
	ctx := context.Background()
	s, inner := newCached(t)

	require.NoError(t, s.UpsertIndicators(ctx, []models.IndicatorSnapshot{{Symbol: "SPY", Date: day(0), Close: 100}}))
	require.NoError(t, s.UpsertIndicators(ctx, []models.IndicatorSnapshot{{Symbol: "TLT", Date: day(0), Close: 90}}))

	_, err := s.GetLatestIndicator(ctx, "SPY", time.Time{})
	require.NoError(t, err)
	_, err = s.GetLatestIndicator(ctx, "TLT", time.Time{})
	require.NoError(t, err)

	require.NoError(t, s.UpsertIndicators(ctx, []models.IndicatorSnapshot{{Symbol: "SPY", Date: day(1), Close: 105}}))

	got, err := s.GetLatestIndicator(ctx, "SPY", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 105.0, got.Close)

	_, err = s.GetLatestIndicator(ctx, "TLT", time.Time{})
	require.NoError(t, err)
	// SPY twice from the store, TLT once; the TLT entry survived the SPY write
	assert.Equal(t, 3, inner.indicatorReads)
}

func TestCachedStoreDoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	s, inner := newCached(t)

	_, err := s.GetLatestVix(ctx, day(3))
	assert.ErrorIs(t, err, domrepo.ErrNotFound)

	require.NoError(t, s.UpsertVix(ctx, []models.VixSnapshot{{Date: day(1), Close: 14, Regime: models.VixNormal}}))

	got, err := s.GetLatestVix(ctx, day(3))
	require.NoError(t, err)
	assert.Equal(t, models.VixNormal, got.Regime)
	assert.Equal(t, 2, inner.vixReads)
}
