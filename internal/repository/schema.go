package repository

// Table names of the ClickHouse store.
const (
	tablePrices      = "prices"
	tableVixPrices   = "vix_prices"
	tableBreadth     = "breadth"
	tableIndicators  = "indicators"
	tableVix         = "vix_indicators"
	tableVolume      = "volume_indicators"
	tableStages      = "stage_history"
	tableTrades      = "trades"
	tablePortfolio   = "portfolio_state"
	tableDailyLog    = "daily_log"
	portfolioStateID = 1
)

// Schema returns the idempotent DDL for every table. ReplacingMergeTree keeps
// the newest row per sorting key, which gives upsert semantics; reads use FINAL.
func Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS prices (
			symbol LowCardinality(String),
			date Date,
			open Float64,
			high Float64,
			low Float64,
			close Float64,
			volume Float64,
			updated_at DateTime64(3) DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(updated_at) ORDER BY (symbol, date)`,

		`CREATE TABLE IF NOT EXISTS vix_prices (
			date Date,
			close Float64,
			updated_at DateTime64(3) DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(updated_at) ORDER BY date`,

		`CREATE TABLE IF NOT EXISTS breadth (
			date Date,
			up_volume Float64,
			down_volume Float64,
			updated_at DateTime64(3) DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(updated_at) ORDER BY date`,

		`CREATE TABLE IF NOT EXISTS indicators (
			symbol LowCardinality(String),
			date Date,
			close Float64,
			sma_5 Nullable(Float64),
			sma_20 Nullable(Float64),
			sma_50 Nullable(Float64),
			sma_150 Nullable(Float64),
			sma_200 Nullable(Float64),
			slope_50 Nullable(Float64),
			slope_150 Nullable(Float64),
			slope_200 Nullable(Float64),
			bb_middle Nullable(Float64),
			bb_upper Nullable(Float64),
			bb_lower Nullable(Float64),
			bb_bandwidth Nullable(Float64),
			bb_percent_b Nullable(Float64),
			relative_strength Nullable(Float64),
			atr_14 Nullable(Float64),
			updated_at DateTime64(3) DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(updated_at) ORDER BY (symbol, date)`,

		`CREATE TABLE IF NOT EXISTS vix_indicators (
			date Date,
			close Float64,
			regime LowCardinality(String),
			sma_fast Nullable(Float64),
			sma_slow Nullable(Float64),
			trend LowCardinality(String),
			daily_change_pct Nullable(Float64),
			spike UInt8,
			updated_at DateTime64(3) DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(updated_at) ORDER BY date`,

		`CREATE TABLE IF NOT EXISTS volume_indicators (
			date Date,
			panic_ratio Nullable(Float64),
			fomo_ratio Nullable(Float64),
			panic_ratio_ma Nullable(Float64),
			fomo_ratio_ma Nullable(Float64),
			updated_at DateTime64(3) DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(updated_at) ORDER BY date`,

		`CREATE TABLE IF NOT EXISTS stage_history (
			symbol LowCardinality(String),
			date Date,
			raw_stage LowCardinality(String),
			confirmed_stage LowCardinality(String),
			confirmed UInt8,
			consecutive_days UInt32,
			updated_at DateTime64(3) DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(updated_at) ORDER BY (symbol, date)`,

		`CREATE TABLE IF NOT EXISTS trades (
			id String,
			symbol LowCardinality(String),
			direction LowCardinality(String),
			trade_type LowCardinality(String),
			tier UInt8,
			entry_date Date,
			entry_price Float64,
			exit_date Date,
			exit_price Float64,
			exit_reason LowCardinality(String),
			shares Float64,
			pnl_pct Float64,
			pnl_dollar Float64,
			holding_days Int32,
			updated_at DateTime64(3) DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(updated_at) ORDER BY id`,

		`CREATE TABLE IF NOT EXISTS portfolio_state (
			id UInt8,
			date Date,
			status LowCardinality(String),
			cash Float64,
			position String,
			vix_cooldown UInt8,
			updated_at DateTime64(3) DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(updated_at) ORDER BY id`,

		`CREATE TABLE IF NOT EXISTS daily_log (
			date Date,
			status LowCardinality(String),
			symbol String,
			equity Float64,
			cash Float64,
			signal String,
			notes String,
			updated_at DateTime64(3) DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(updated_at) ORDER BY date`,
	}
}
