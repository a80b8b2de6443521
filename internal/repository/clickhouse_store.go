package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"AssetRevest/internal/domain/models"
	domrepo "AssetRevest/internal/domain/repository"
	pkgch "AssetRevest/pkg/clickhouse"
	applogger "AssetRevest/pkg/logger"
	"AssetRevest/pkg/util"
)

// CHStore implements Store backed by ClickHouse.
type CHStore struct {
	ch *pkgch.Client
	db *sql.DB
	l  *applogger.Logger
}

var _ domrepo.Store = (*CHStore)(nil)

func NewCHStore(ch *pkgch.Client) *CHStore {
	return &CHStore{ch: ch, db: ch.DB(), l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CHStore) SetLogger(l *applogger.Logger) { s.l = applogger.OrNop(l) }

// InitSchema creates every table if missing.
func (s *CHStore) InitSchema(ctx context.Context) error {
	return s.ch.InitSchema(ctx, Schema())
}

func (s *CHStore) Health(ctx context.Context) error { return s.ch.Health(ctx) }

func (s *CHStore) Close() error { return s.ch.Close() }

func (s *CHStore) insert(ctx context.Context, op, table, query string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()
	if err := s.ch.InsertBatch(ctx, query, rows); err != nil {
		s.l.Error("clickhouse "+op+" insert error",
			applogger.String("table", table),
			applogger.Int("rows", len(rows)),
			applogger.Error(err),
		)
		return fmt.Errorf("%s: %w", op, err)
	}
	s.l.Debug("clickhouse "+op+" ok",
		applogger.String("table", table),
		applogger.Int("rows", len(rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// query runs q and hands every row to scan. It logs failures the same way for
// every table.
func (s *CHStore) query(ctx context.Context, op, table, symbol string, scan func(*sql.Rows) error, q string, args ...any) (int, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse "+op+" query error",
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		if err := scan(rows); err != nil {
			s.l.Error("clickhouse "+op+" scan error",
				applogger.String("table", table),
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
			return n, fmt.Errorf("%s scan: %w", op, err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		s.l.Error("clickhouse "+op+" rows error",
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return n, fmt.Errorf("%s rows: %w", op, err)
	}
	s.l.Debug("clickhouse "+op+" ok",
		applogger.String("table", table),
		applogger.String("symbol", symbol),
		applogger.Int("rows", n),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return n, nil
}

// asOfClause restricts a date column to asOf unless it is zero.
func asOfClause(asOf time.Time) (string, []any) {
	if asOf.IsZero() {
		return "", nil
	}
	return " AND date <= ?", []any{util.Day(asOf)}
}

// Date columns hold 1970-01-01 through 2149-06-06; a zero bound is open.
var (
	minDate = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	maxDate = time.Date(2149, 6, 6, 0, 0, 0, 0, time.UTC)
)

func rangeStart(from time.Time) time.Time {
	if from.IsZero() || from.Before(minDate) {
		return minDate
	}
	return util.Day(from)
}

func rangeEnd(to time.Time) time.Time {
	if to.IsZero() || to.After(maxDate) {
		return maxDate
	}
	return util.Day(to)
}

// ---- bars ----

func (s *CHStore) UpsertBars(ctx context.Context, bars []models.PriceBar) error {
	now := time.Now()
	rows := make([][]any, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, []any{b.Symbol, util.Day(b.Date), b.Open, b.High, b.Low, b.Close, b.Volume, now})
	}
	return s.insert(ctx, "upsert_bars", tablePrices,
		"INSERT INTO prices (symbol, date, open, high, low, close, volume, updated_at)", rows)
}

func scanBar(rows *sql.Rows, b *models.PriceBar) error {
	return rows.Scan(&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume)
}

func (s *CHStore) GetBar(ctx context.Context, symbol string, date time.Time) (*models.PriceBar, error) {
	var out *models.PriceBar
	_, err := s.query(ctx, "get_bar", tablePrices, symbol, func(rows *sql.Rows) error {
		var b models.PriceBar
		if err := scanBar(rows, &b); err != nil {
			return err
		}
		out = &b
		return nil
	}, `SELECT symbol, date, open, high, low, close, volume
		FROM prices FINAL
		WHERE symbol = ? AND date = ?
		LIMIT 1`, symbol, util.Day(date))
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, domrepo.ErrNotFound
	}
	return out, nil
}

func (s *CHStore) GetBarsInRange(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error) {
	out := make([]models.PriceBar, 0, 512)
	_, err := s.query(ctx, "get_bars_in_range", tablePrices, symbol, func(rows *sql.Rows) error {
		var b models.PriceBar
		if err := scanBar(rows, &b); err != nil {
			return err
		}
		out = append(out, b)
		return nil
	}, `SELECT symbol, date, open, high, low, close, volume
		FROM prices FINAL
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`, symbol, rangeStart(from), rangeEnd(to))
	return out, err
}

func (s *CHStore) UpsertVixBars(ctx context.Context, bars []models.VixBar) error {
	now := time.Now()
	rows := make([][]any, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, []any{util.Day(b.Date), b.Close, now})
	}
	return s.insert(ctx, "upsert_vix_bars", tableVixPrices,
		"INSERT INTO vix_prices (date, close, updated_at)", rows)
}

func (s *CHStore) GetVixBars(ctx context.Context, from, to time.Time) ([]models.VixBar, error) {
	var out []models.VixBar
	_, err := s.query(ctx, "get_vix_bars", tableVixPrices, "", func(rows *sql.Rows) error {
		var b models.VixBar
		if err := rows.Scan(&b.Date, &b.Close); err != nil {
			return err
		}
		out = append(out, b)
		return nil
	}, `SELECT date, close FROM vix_prices FINAL
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC`, rangeStart(from), rangeEnd(to))
	return out, err
}

func (s *CHStore) UpsertBreadth(ctx context.Context, bars []models.BreadthBar) error {
	now := time.Now()
	rows := make([][]any, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, []any{util.Day(b.Date), b.UpVolume, b.DownVolume, now})
	}
	return s.insert(ctx, "upsert_breadth", tableBreadth,
		"INSERT INTO breadth (date, up_volume, down_volume, updated_at)", rows)
}

func (s *CHStore) GetBreadth(ctx context.Context, from, to time.Time) ([]models.BreadthBar, error) {
	var out []models.BreadthBar
	_, err := s.query(ctx, "get_breadth", tableBreadth, "", func(rows *sql.Rows) error {
		var b models.BreadthBar
		if err := rows.Scan(&b.Date, &b.UpVolume, &b.DownVolume); err != nil {
			return err
		}
		out = append(out, b)
		return nil
	}, `SELECT date, up_volume, down_volume FROM breadth FINAL
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC`, rangeStart(from), rangeEnd(to))
	return out, err
}

// ---- indicators ----

const indicatorColumns = `symbol, date, close, sma_5, sma_20, sma_50, sma_150, sma_200,
	slope_50, slope_150, slope_200, bb_middle, bb_upper, bb_lower, bb_bandwidth, bb_percent_b,
	relative_strength, atr_14`

func (s *CHStore) UpsertIndicators(ctx context.Context, snaps []models.IndicatorSnapshot) error {
	now := time.Now()
	rows := make([][]any, 0, len(snaps))
	for _, i := range snaps {
		bb := i.Bollinger
		rows = append(rows, []any{
			i.Symbol, util.Day(i.Date), i.Close,
			i.SMA5, i.SMA20, i.SMA50, i.SMA150, i.SMA200,
			i.Slope50, i.Slope150, i.Slope200,
			bb.Middle, bb.Upper, bb.Lower, bb.Bandwidth, bb.PercentB,
			i.RelativeStrength, i.ATR, now,
		})
	}
	return s.insert(ctx, "upsert_indicators", tableIndicators,
		"INSERT INTO indicators ("+indicatorColumns+", updated_at)", rows)
}

func scanIndicator(rows *sql.Rows) (models.IndicatorSnapshot, error) {
	var i models.IndicatorSnapshot
	var n [15]sql.NullFloat64
	err := rows.Scan(&i.Symbol, &i.Date, &i.Close,
		&n[0], &n[1], &n[2], &n[3], &n[4],
		&n[5], &n[6], &n[7],
		&n[8], &n[9], &n[10], &n[11], &n[12],
		&n[13], &n[14],
	)
	if err != nil {
		return i, err
	}
	i.SMA5, i.SMA20, i.SMA50, i.SMA150, i.SMA200 = nf(n[0]), nf(n[1]), nf(n[2]), nf(n[3]), nf(n[4])
	i.Slope50, i.Slope150, i.Slope200 = nf(n[5]), nf(n[6]), nf(n[7])
	i.Bollinger = models.Bollinger{Middle: nf(n[8]), Upper: nf(n[9]), Lower: nf(n[10]), Bandwidth: nf(n[11]), PercentB: nf(n[12])}
	i.RelativeStrength, i.ATR = nf(n[13]), nf(n[14])
	return i, nil
}

func (s *CHStore) GetRecentIndicators(ctx context.Context, symbol string, asOf time.Time, n int) ([]models.IndicatorSnapshot, error) {
	clause, args := asOfClause(asOf)
	out := make([]models.IndicatorSnapshot, 0, n)
	q := "SELECT " + indicatorColumns + " FROM indicators FINAL WHERE symbol = ?" + clause + " ORDER BY date DESC LIMIT ?"
	_, err := s.query(ctx, "get_recent_indicators", tableIndicators, symbol, func(rows *sql.Rows) error {
		i, err := scanIndicator(rows)
		if err != nil {
			return err
		}
		out = append(out, i)
		return nil
	}, q, append(append([]any{symbol}, args...), n)...)
	return out, err
}

func (s *CHStore) GetLatestIndicator(ctx context.Context, symbol string, asOf time.Time) (*models.IndicatorSnapshot, error) {
	recent, err := s.GetRecentIndicators(ctx, symbol, asOf, 1)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return nil, domrepo.ErrNotFound
	}
	return &recent[0], nil
}

func (s *CHStore) UpsertVix(ctx context.Context, snaps []models.VixSnapshot) error {
	now := time.Now()
	rows := make([][]any, 0, len(snaps))
	for _, v := range snaps {
		rows = append(rows, []any{
			util.Day(v.Date), v.Close, string(v.Regime), v.SMAFast, v.SMASlow,
			string(v.Trend), v.DailyChangePct, boolToUInt8(v.Spike), now,
		})
	}
	return s.insert(ctx, "upsert_vix", tableVix,
		"INSERT INTO vix_indicators (date, close, regime, sma_fast, sma_slow, trend, daily_change_pct, spike, updated_at)", rows)
}

func (s *CHStore) GetLatestVix(ctx context.Context, asOf time.Time) (*models.VixSnapshot, error) {
	clause, args := asOfClause(asOf)
	var out *models.VixSnapshot
	q := "SELECT date, close, regime, sma_fast, sma_slow, trend, daily_change_pct, spike FROM vix_indicators FINAL WHERE 1 = 1" +
		clause + " ORDER BY date DESC LIMIT 1"
	_, err := s.query(ctx, "get_latest_vix", tableVix, "", func(rows *sql.Rows) error {
		var v models.VixSnapshot
		var regime, trend string
		var fast, slow, change sql.NullFloat64
		var spike uint8
		if err := rows.Scan(&v.Date, &v.Close, &regime, &fast, &slow, &trend, &change, &spike); err != nil {
			return err
		}
		v.Regime, v.Trend = models.VixRegime(regime), models.VixTrend(trend)
		v.SMAFast, v.SMASlow, v.DailyChangePct = nf(fast), nf(slow), nf(change)
		v.Spike = spike == 1
		out = &v
		return nil
	}, q, args...)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, domrepo.ErrNotFound
	}
	return out, nil
}

func (s *CHStore) UpsertVolume(ctx context.Context, snaps []models.VolumeSnapshot) error {
	now := time.Now()
	rows := make([][]any, 0, len(snaps))
	for _, v := range snaps {
		rows = append(rows, []any{util.Day(v.Date), v.PanicRatio, v.FomoRatio, v.PanicRatioMA, v.FomoRatioMA, now})
	}
	return s.insert(ctx, "upsert_volume", tableVolume,
		"INSERT INTO volume_indicators (date, panic_ratio, fomo_ratio, panic_ratio_ma, fomo_ratio_ma, updated_at)", rows)
}

func (s *CHStore) GetLatestVolume(ctx context.Context, asOf time.Time) (*models.VolumeSnapshot, error) {
	clause, args := asOfClause(asOf)
	var out *models.VolumeSnapshot
	q := "SELECT date, panic_ratio, fomo_ratio, panic_ratio_ma, fomo_ratio_ma FROM volume_indicators FINAL WHERE 1 = 1" +
		clause + " ORDER BY date DESC LIMIT 1"
	_, err := s.query(ctx, "get_latest_volume", tableVolume, "", func(rows *sql.Rows) error {
		var v models.VolumeSnapshot
		var n [4]sql.NullFloat64
		if err := rows.Scan(&v.Date, &n[0], &n[1], &n[2], &n[3]); err != nil {
			return err
		}
		v.PanicRatio, v.FomoRatio, v.PanicRatioMA, v.FomoRatioMA = nf(n[0]), nf(n[1]), nf(n[2]), nf(n[3])
		out = &v
		return nil
	}, q, args...)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, domrepo.ErrNotFound
	}
	return out, nil
}

// ---- stages ----

func (s *CHStore) UpsertStageRecords(ctx context.Context, recs []models.StageRecord) error {
	now := time.Now()
	rows := make([][]any, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []any{
			r.Symbol, util.Day(r.Date), string(r.RawStage), string(r.ConfirmedStage),
			boolToUInt8(r.Confirmed), uint32(r.ConsecutiveDays), now,
		})
	}
	return s.insert(ctx, "upsert_stages", tableStages,
		"INSERT INTO stage_history (symbol, date, raw_stage, confirmed_stage, confirmed, consecutive_days, updated_at)", rows)
}

func (s *CHStore) GetLatestStage(ctx context.Context, symbol string, asOf time.Time) (*models.StageRecord, error) {
	clause, args := asOfClause(asOf)
	var out *models.StageRecord
	q := "SELECT symbol, date, raw_stage, confirmed_stage, confirmed, consecutive_days FROM stage_history FINAL WHERE symbol = ?" +
		clause + " ORDER BY date DESC LIMIT 1"
	_, err := s.query(ctx, "get_latest_stage", tableStages, symbol, func(rows *sql.Rows) error {
		var r models.StageRecord
		var raw, confirmed string
		var ok uint8
		var days uint32
		if err := rows.Scan(&r.Symbol, &r.Date, &raw, &confirmed, &ok, &days); err != nil {
			return err
		}
		r.RawStage, r.ConfirmedStage = models.Stage(raw), models.Stage(confirmed)
		r.Confirmed, r.ConsecutiveDays = ok == 1, int(days)
		out = &r
		return nil
	}, q, append([]any{symbol}, args...)...)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, domrepo.ErrNotFound
	}
	return out, nil
}

// ---- ledger ----

func (s *CHStore) UpsertTrade(ctx context.Context, t models.Trade) error {
	return s.insert(ctx, "upsert_trade", tableTrades,
		`INSERT INTO trades (id, symbol, direction, trade_type, tier, entry_date, entry_price, exit_date,
			exit_price, exit_reason, shares, pnl_pct, pnl_dollar, holding_days, updated_at)`,
		[][]any{{
			t.ID, t.Symbol, string(t.Direction), string(t.TradeType), uint8(t.Tier),
			util.Day(t.EntryDate), t.EntryPrice, util.Day(t.ExitDate), t.ExitPrice, string(t.ExitReason),
			t.Shares, t.PnLPct, t.PnLDollar, int32(t.HoldingDays), time.Now(),
		}})
}

func (s *CHStore) GetTrades(ctx context.Context, limit int) ([]models.Trade, error) {
	if limit <= 0 {
		limit = 1000
	}
	var out []models.Trade
	_, err := s.query(ctx, "get_trades", tableTrades, "", func(rows *sql.Rows) error {
		var t models.Trade
		var dir, typ, reason string
		var tier uint8
		var holding int32
		if err := rows.Scan(&t.ID, &t.Symbol, &dir, &typ, &tier, &t.EntryDate, &t.EntryPrice,
			&t.ExitDate, &t.ExitPrice, &reason, &t.Shares, &t.PnLPct, &t.PnLDollar, &holding); err != nil {
			return err
		}
		t.Direction, t.TradeType, t.ExitReason = models.Direction(dir), models.TradeType(typ), models.ExitReason(reason)
		t.Tier, t.HoldingDays = int(tier), int(holding)
		out = append(out, t)
		return nil
	}, `SELECT id, symbol, direction, trade_type, tier, entry_date, entry_price, exit_date,
			exit_price, exit_reason, shares, pnl_pct, pnl_dollar, holding_days
		FROM trades FINAL
		ORDER BY entry_date DESC, exit_date DESC
		LIMIT ?`, limit)
	return out, err
}

func (s *CHStore) GetPortfolioState(ctx context.Context) (*models.PortfolioState, error) {
	var out *models.PortfolioState
	var decodeErr error
	_, err := s.query(ctx, "get_portfolio_state", tablePortfolio, "", func(rows *sql.Rows) error {
		var st models.PortfolioState
		var status, pos string
		var cooldown uint8
		if err := rows.Scan(&st.Date, &status, &st.Cash, &pos, &cooldown); err != nil {
			return err
		}
		st.Status, st.VixCooldown = models.PortfolioStatus(status), cooldown == 1
		if pos != "" {
			var p models.Position
			if err := json.Unmarshal([]byte(pos), &p); err != nil {
				decodeErr = err
				return nil
			}
			st.Position = &p
		}
		out = &st
		return nil
	}, `SELECT date, status, cash, position, vix_cooldown
		FROM portfolio_state FINAL
		WHERE id = ?
		LIMIT 1`, uint8(portfolioStateID))
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode position: %w", decodeErr)
	}
	if out == nil {
		return nil, domrepo.ErrNotFound
	}
	return out, nil
}

func (s *CHStore) SavePortfolioState(ctx context.Context, st models.PortfolioState) error {
	pos := ""
	if st.Position != nil {
		b, err := json.Marshal(st.Position)
		if err != nil {
			return fmt.Errorf("encode position: %w", err)
		}
		pos = string(b)
	}
	return s.insert(ctx, "save_portfolio_state", tablePortfolio,
		"INSERT INTO portfolio_state (id, date, status, cash, position, vix_cooldown, updated_at)",
		[][]any{{uint8(portfolioStateID), util.Day(st.Date), string(st.Status), st.Cash, pos, boolToUInt8(st.VixCooldown), time.Now()}})
}

func (s *CHStore) AppendDailyLog(ctx context.Context, e models.DailyLogEntry) error {
	return s.insert(ctx, "append_daily_log", tableDailyLog,
		"INSERT INTO daily_log (date, status, symbol, equity, cash, signal, notes, updated_at)",
		[][]any{{util.Day(e.Date), string(e.Status), e.Symbol, e.Equity, e.Cash, e.Signal, e.Notes, time.Now()}})
}

func (s *CHStore) GetDailyLog(ctx context.Context, limit int) ([]models.DailyLogEntry, error) {
	if limit <= 0 {
		limit = 10000
	}
	var out []models.DailyLogEntry
	_, err := s.query(ctx, "get_daily_log", tableDailyLog, "", func(rows *sql.Rows) error {
		var e models.DailyLogEntry
		var status string
		if err := rows.Scan(&e.Date, &status, &e.Symbol, &e.Equity, &e.Cash, &e.Signal, &e.Notes); err != nil {
			return err
		}
		e.Status = models.PortfolioStatus(status)
		out = append(out, e)
		return nil
	}, `SELECT date, status, symbol, equity, cash, signal, notes
		FROM daily_log FINAL
		ORDER BY date DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func nf(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	return models.Opt(n.Float64)
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
