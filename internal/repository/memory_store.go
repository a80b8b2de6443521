package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"AssetRevest/internal/domain/models"
	domrepo "AssetRevest/internal/domain/repository"
	"AssetRevest/pkg/util"
)

// series keeps records of one key sorted by date, one record per date.
type series[T any] struct {
	items []T
	date  func(T) time.Time
}

func newSeries[T any](date func(T) time.Time) *series[T] {
	return &series[T]{date: date}
}

// search returns the index of the first record dated on or after d.
func (s *series[T]) search(d time.Time) int {
	return sort.Search(len(s.items), func(i int) bool { return !s.date(s.items[i]).Before(d) })
}

func (s *series[T]) upsert(v T) {
	d := s.date(v)
	i := s.search(d)
	if i < len(s.items) && s.date(s.items[i]).Equal(d) {
		s.items[i] = v
		return
	}
	s.items = append(s.items, v)
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = v
}

// upto returns the index one past the last record dated on or before asOf.
func (s *series[T]) upto(asOf time.Time) int {
	if asOf.IsZero() {
		return len(s.items)
	}
	return sort.Search(len(s.items), func(i int) bool { return s.date(s.items[i]).After(asOf) })
}

func (s *series[T]) asOf(asOf time.Time) (T, bool) {
	var zero T
	i := s.upto(asOf)
	if i == 0 {
		return zero, false
	}
	return s.items[i-1], true
}

func (s *series[T]) between(from, to time.Time) []T {
	lo := 0
	if !from.IsZero() {
		lo = s.search(from)
	}
	hi := s.upto(to)
	if lo >= hi {
		return nil
	}
	out := make([]T, hi-lo)
	copy(out, s.items[lo:hi])
	return out
}

// recent returns up to n records on or before asOf, newest first.
func (s *series[T]) recent(asOf time.Time, n int) []T {
	hi := s.upto(asOf)
	lo := hi - n
	if lo < 0 {
		lo = 0
	}
	out := make([]T, 0, hi-lo)
	for i := hi - 1; i >= lo; i-- {
		out = append(out, s.items[i])
	}
	return out
}

// MemoryStore is an in-process Store. Each backtest or test gets its own
// instance; it is safe for concurrent use.
type MemoryStore struct {
	mu sync.RWMutex

	bars       map[string]*series[models.PriceBar]
	indicators map[string]*series[models.IndicatorSnapshot]
	stages     map[string]*series[models.StageRecord]
	vixBars    *series[models.VixBar]
	breadth    *series[models.BreadthBar]
	vix        *series[models.VixSnapshot]
	volume     *series[models.VolumeSnapshot]
	dailyLog   *series[models.DailyLogEntry]

	trades    map[string]models.Trade
	portfolio *models.PortfolioState
}

var _ domrepo.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bars:       map[string]*series[models.PriceBar]{},
		indicators: map[string]*series[models.IndicatorSnapshot]{},
		stages:     map[string]*series[models.StageRecord]{},
		vixBars:    newSeries(func(b models.VixBar) time.Time { return b.Date }),
		breadth:    newSeries(func(b models.BreadthBar) time.Time { return b.Date }),
		vix:        newSeries(func(v models.VixSnapshot) time.Time { return v.Date }),
		volume:     newSeries(func(v models.VolumeSnapshot) time.Time { return v.Date }),
		dailyLog:   newSeries(func(e models.DailyLogEntry) time.Time { return e.Date }),
		trades:     map[string]models.Trade{},
	}
}

func seriesFor[T any](m map[string]*series[T], symbol string, date func(T) time.Time) *series[T] {
	s, ok := m[symbol]
	if !ok {
		s = newSeries(date)
		m[symbol] = s
	}
	return s
}

func barDate(b models.PriceBar) time.Time { return b.Date }

func indicatorDate(s models.IndicatorSnapshot) time.Time { return s.Date }

func stageDate(r models.StageRecord) time.Time { return r.Date }

func (m *MemoryStore) UpsertBars(ctx context.Context, bars []models.PriceBar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range bars {
		b.Date = util.Day(b.Date)
		seriesFor(m.bars, b.Symbol, barDate).upsert(b)
	}
	return nil
}

func (m *MemoryStore) GetBar(ctx context.Context, symbol string, date time.Time) (*models.PriceBar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.bars[symbol]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	d := util.Day(date)
	i := s.search(d)
	if i >= len(s.items) || !s.items[i].Date.Equal(d) {
		return nil, domrepo.ErrNotFound
	}
	b := s.items[i]
	return &b, nil
}

func (m *MemoryStore) GetBarsInRange(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.bars[symbol]
	if !ok {
		return nil, nil
	}
	return s.between(util.Day(from), util.Day(to)), nil
}

func (m *MemoryStore) UpsertVixBars(ctx context.Context, bars []models.VixBar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range bars {
		b.Date = util.Day(b.Date)
		m.vixBars.upsert(b)
	}
	return nil
}

func (m *MemoryStore) GetVixBars(ctx context.Context, from, to time.Time) ([]models.VixBar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vixBars.between(util.Day(from), util.Day(to)), nil
}

func (m *MemoryStore) UpsertBreadth(ctx context.Context, bars []models.BreadthBar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range bars {
		b.Date = util.Day(b.Date)
		m.breadth.upsert(b)
	}
	return nil
}

func (m *MemoryStore) GetBreadth(ctx context.Context, from, to time.Time) ([]models.BreadthBar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.breadth.between(util.Day(from), util.Day(to)), nil
}

func (m *MemoryStore) UpsertIndicators(ctx context.Context, snaps []models.IndicatorSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range snaps {
		s.Date = util.Day(s.Date)
		seriesFor(m.indicators, s.Symbol, indicatorDate).upsert(s)
	}
	return nil
}

func (m *MemoryStore) GetLatestIndicator(ctx context.Context, symbol string, asOf time.Time) (*models.IndicatorSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.indicators[symbol]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	v, ok := s.asOf(util.Day(asOf))
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	return &v, nil
}

func (m *MemoryStore) GetRecentIndicators(ctx context.Context, symbol string, asOf time.Time, n int) ([]models.IndicatorSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.indicators[symbol]
	if !ok {
		return nil, nil
	}
	return s.recent(util.Day(asOf), n), nil
}

func (m *MemoryStore) UpsertVix(ctx context.Context, snaps []models.VixSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range snaps {
		s.Date = util.Day(s.Date)
		m.vix.upsert(s)
	}
	return nil
}

func (m *MemoryStore) GetLatestVix(ctx context.Context, asOf time.Time) (*models.VixSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vix.asOf(util.Day(asOf))
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	return &v, nil
}

func (m *MemoryStore) UpsertVolume(ctx context.Context, snaps []models.VolumeSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range snaps {
		s.Date = util.Day(s.Date)
		m.volume.upsert(s)
	}
	return nil
}

func (m *MemoryStore) GetLatestVolume(ctx context.Context, asOf time.Time) (*models.VolumeSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.volume.asOf(util.Day(asOf))
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	return &v, nil
}

func (m *MemoryStore) UpsertStageRecords(ctx context.Context, recs []models.StageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		r.Date = util.Day(r.Date)
		seriesFor(m.stages, r.Symbol, stageDate).upsert(r)
	}
	return nil
}

func (m *MemoryStore) GetLatestStage(ctx context.Context, symbol string, asOf time.Time) (*models.StageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stages[symbol]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	v, ok := s.asOf(util.Day(asOf))
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	return &v, nil
}

func (m *MemoryStore) UpsertTrade(ctx context.Context, t models.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades[t.ID] = t
	return nil
}

// GetTrades returns the most recent trades by entry date, newest first.
func (m *MemoryStore) GetTrades(ctx context.Context, limit int) ([]models.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Trade, 0, len(m.trades))
	for _, t := range m.trades {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryDate.Equal(out[j].EntryDate) {
			return out[i].EntryDate.After(out[j].EntryDate)
		}
		return out[i].ExitDate.After(out[j].ExitDate)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) GetPortfolioState(ctx context.Context) (*models.PortfolioState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.portfolio == nil {
		return nil, domrepo.ErrNotFound
	}
	s := *m.portfolio
	if s.Position != nil {
		p := *s.Position
		s.Position = &p
	}
	return &s, nil
}

func (m *MemoryStore) SavePortfolioState(ctx context.Context, s models.PortfolioState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Position != nil {
		p := *s.Position
		s.Position = &p
	}
	m.portfolio = &s
	return nil
}

func (m *MemoryStore) AppendDailyLog(ctx context.Context, e models.DailyLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.Date = util.Day(e.Date)
	m.dailyLog.upsert(e)
	return nil
}

// GetDailyLog returns the last limit entries in ascending date order.
func (m *MemoryStore) GetDailyLog(ctx context.Context, limit int) ([]models.DailyLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.dailyLog.items)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]models.DailyLogEntry, limit)
	copy(out, m.dailyLog.items[n-limit:])
	return out, nil
}

func (m *MemoryStore) Health(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
