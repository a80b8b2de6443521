package repository

import (
	"context"
	"errors"
	"time"

	"AssetRevest/internal/domain/models"
	domrepo "AssetRevest/internal/domain/repository"
	"AssetRevest/pkg/cache"
	applogger "AssetRevest/pkg/logger"
	"AssetRevest/pkg/util"
)

const (
	keyAsOf      = "asof"
	kindIndic    = "ind"
	kindStage    = "stage"
	kindVix      = "vix"
	kindVolume   = "vol"
	latestMarker = "latest"
)

// CachedStore serves as-of lookups from a cache in front of the wrapped Store.
// Writes go to the store first and then drop every cached lookup they may
// have changed. Cache failures fall through to the store.
type CachedStore struct {
	domrepo.Store
	cache cache.Service
	ttl   time.Duration
	l     *applogger.Logger
}

var _ domrepo.Store = (*CachedStore)(nil)

func NewCachedStore(store domrepo.Store, c cache.Service, ttl time.Duration) *CachedStore {
	return &CachedStore{Store: store, cache: c, ttl: ttl, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CachedStore) SetLogger(l *applogger.Logger) { s.l = applogger.OrNop(l) }

func (s *CachedStore) GetLatestIndicator(ctx context.Context, symbol string, asOf time.Time) (*models.IndicatorSnapshot, error) {
	return cached(ctx, s, asOfKey(kindIndic, symbol, asOf), func() (*models.IndicatorSnapshot, error) {
		return s.Store.GetLatestIndicator(ctx, symbol, asOf)
	})
}

func (s *CachedStore) GetLatestStage(ctx context.Context, symbol string, asOf time.Time) (*models.StageRecord, error) {
	return cached(ctx, s, asOfKey(kindStage, symbol, asOf), func() (*models.StageRecord, error) {
		return s.Store.GetLatestStage(ctx, symbol, asOf)
	})
}

func (s *CachedStore) GetLatestVix(ctx context.Context, asOf time.Time) (*models.VixSnapshot, error) {
	return cached(ctx, s, asOfKey(kindVix, "", asOf), func() (*models.VixSnapshot, error) {
		return s.Store.GetLatestVix(ctx, asOf)
	})
}

func (s *CachedStore) GetLatestVolume(ctx context.Context, asOf time.Time) (*models.VolumeSnapshot, error) {
	return cached(ctx, s, asOfKey(kindVolume, "", asOf), func() (*models.VolumeSnapshot, error) {
		return s.Store.GetLatestVolume(ctx, asOf)
	})
}

func (s *CachedStore) UpsertIndicators(ctx context.Context, snaps []models.IndicatorSnapshot) error {
	if err := s.Store.UpsertIndicators(ctx, snaps); err != nil {
		return err
	}
	seen := make(map[string]struct{})
	for _, snap := range snaps {
		if _, ok := seen[snap.Symbol]; ok {
			continue
		}
		seen[snap.Symbol] = struct{}{}
		s.invalidate(ctx, kindIndic, snap.Symbol)
	}
	return nil
}

func (s *CachedStore) UpsertStageRecords(ctx context.Context, recs []models.StageRecord) error {
	if err := s.Store.UpsertStageRecords(ctx, recs); err != nil {
		return err
	}
	seen := make(map[string]struct{})
	for _, rec := range recs {
		if _, ok := seen[rec.Symbol]; ok {
			continue
		}
		seen[rec.Symbol] = struct{}{}
		s.invalidate(ctx, kindStage, rec.Symbol)
	}
	return nil
}

func (s *CachedStore) UpsertVix(ctx context.Context, snaps []models.VixSnapshot) error {
	if err := s.Store.UpsertVix(ctx, snaps); err != nil {
		return err
	}
	if len(snaps) > 0 {
		s.invalidate(ctx, kindVix, "")
	}
	return nil
}

func (s *CachedStore) UpsertVolume(ctx context.Context, snaps []models.VolumeSnapshot) error {
	if err := s.Store.UpsertVolume(ctx, snaps); err != nil {
		return err
	}
	if len(snaps) > 0 {
		s.invalidate(ctx, kindVolume, "")
	}
	return nil
}

func (s *CachedStore) invalidate(ctx context.Context, kind, symbol string) {
	pattern := cache.BuildPattern(cache.GenerateKeyWithParams(keyAsOf, kind, symbol) + ":")
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.l.Warn("cache invalidate error",
			applogger.String("pattern", pattern),
			applogger.Error(err),
		)
	}
}

// cached reads key from the cache, falling back to load. Misses in the store
// are not cached.
func cached[T any](ctx context.Context, s *CachedStore, key string, load func() (*T, error)) (*T, error) {
	var v T
	err := s.cache.Get(ctx, key, &v)
	if err == nil {
		return &v, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.l.Warn("cache get error", applogger.String("key", key), applogger.Error(err))
	}

	res, err := load()
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, res, s.ttl); err != nil {
		s.l.Warn("cache set error", applogger.String("key", key), applogger.Error(err))
	}
	return res, nil
}

func asOfKey(kind, symbol string, asOf time.Time) string {
	date := latestMarker
	if !asOf.IsZero() {
		date = util.FormatDate(asOf)
	}
	return cache.GenerateKeyWithParams(keyAsOf, kind, symbol, date)
}
