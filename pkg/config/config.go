package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stderr"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Store struct {
		Backend string `yaml:"backend" default:"memory" validate:"oneof=memory clickhouse"`
	} `yaml:"store"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"revest"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async" default:"true"`
		MaxOpenConns     int           `yaml:"max_open_conns" default:"10" validate:"gte=1"`
		MaxIdleConns     int           `yaml:"max_idle_conns" default:"5" validate:"gte=0"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled     bool     `yaml:"enabled"`
		Brokers     []string `yaml:"brokers"`
		Compression string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		Topics      struct {
			Events     string `yaml:"events" default:"revest.events"`
			MarketData string `yaml:"market_data" default:"revest.market_data"`
			DLQ        string `yaml:"dlq" default:"revest.market_data.dlq"`
		} `yaml:"topics"`
		Producer struct {
			RequiredAcks int           `yaml:"required_acks" default:"-1"`
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"revest-ingest"`
			Workers    int           `yaml:"workers" default:"2" validate:"gte=1"`
			BufferSize int           `yaml:"buffer_size" default:"100" validate:"gte=1"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
			FromLatest bool          `yaml:"from_latest"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"revest"`
	} `yaml:"redis"`
	Cache struct {
		Enabled    bool          `yaml:"enabled" default:"true"`
		TTL        time.Duration `yaml:"ttl" default:"6h"`
		MemorySize int           `yaml:"memory_size" default:"4096" validate:"gte=1"`
	} `yaml:"cache"`
	Queue struct {
		Workers    int           `yaml:"workers" default:"1" validate:"gte=1"`
		RetryLimit int           `yaml:"retry_limit" default:"2"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"30s"`
	} `yaml:"queue"`
	Universe Universe `yaml:"universe"`
	Strategy Strategy `yaml:"strategy"`
}

// Universe lists the instruments the pipeline reads and trades.
type Universe struct {
	Equities       []string          `yaml:"equities" default:"[\"SPY\",\"QQQ\"]" validate:"min=1"`
	EquityInverse  map[string]string `yaml:"equity_inverse" default:"{\"SPY\":\"SH\",\"QQQ\":\"PSQ\"}"`
	Bonds          []string          `yaml:"bonds" default:"[\"TLT\"]"`
	DollarLong     string            `yaml:"dollar_long" default:"UUP"`
	DollarInverse  string            `yaml:"dollar_inverse" default:"UDN"`
	Cash           string            `yaml:"cash" default:"BIL" validate:"required"`
	Vix            string            `yaml:"vix" default:"^VIX"`
	WarningSymbols []string          `yaml:"warning_symbols" default:"[\"XLU\",\"GLD\",\"RSP\"]"`
	Utilities      string            `yaml:"utilities" default:"XLU"`
	Gold           string            `yaml:"gold" default:"GLD"`
	Benchmark      string            `yaml:"benchmark" default:"SPY" validate:"required"`
}

// AnalysisSymbols are the instruments that get the full indicator and stage treatment.
func (u Universe) AnalysisSymbols() []string {
	out := make([]string, 0, len(u.Equities)+len(u.Bonds)+2)
	out = append(out, u.Equities...)
	out = append(out, u.Bonds...)
	if u.DollarLong != "" {
		out = append(out, u.DollarLong)
	}
	if u.DollarInverse != "" {
		out = append(out, u.DollarInverse)
	}
	return out
}

// ComputeSymbols are analysis plus intermarket warning symbols.
func (u Universe) ComputeSymbols() []string {
	out := u.AnalysisSymbols()
	extra := make([]string, 0, len(u.WarningSymbols)+2)
	extra = append(extra, u.WarningSymbols...)
	extra = append(extra, u.Utilities, u.Gold)
	for _, s := range extra {
		if s != "" && !contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// PrimaryEquity is the equity whose stage gates the inverse tier.
func (u Universe) PrimaryEquity() string {
	if len(u.Equities) == 0 {
		return "SPY"
	}
	return u.Equities[0]
}

// InverseOf returns the inverse instrument for an equity, or "".
func (u Universe) InverseOf(symbol string) string {
	return u.EquityInverse[symbol]
}

var validate = validator.New()

// Default returns a fully defaulted configuration.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// An empty path yields the defaults.
func LoadWithEnv(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if path == "" {
		c = Default()
	} else if c, err = Load(path); err != nil {
		return nil, err
	}

	if v := os.Getenv("REVEST_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("REVEST_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("REVEST_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("REVEST_CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("REVEST_CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REVEST_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REVEST_REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks struct tags and the cross-section rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Universe.InverseOf(c.Universe.PrimaryEquity()) == "" {
		return fmt.Errorf("universe.equity_inverse has no entry for %s", c.Universe.PrimaryEquity())
	}
	periods := c.Strategy.Indicators.SMAPeriods
	for i := 1; i < len(periods); i++ {
		if periods[i] <= periods[i-1] {
			return fmt.Errorf("strategy.indicators.sma_periods must be ascending, got %v", periods)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
