package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"

	domrepo "AssetRevest/internal/domain/repository"
	"AssetRevest/internal/handler/api"
	"AssetRevest/internal/repository"
	"AssetRevest/internal/services/market"
	"AssetRevest/internal/usecase"
	"AssetRevest/pkg/cache"
	pkgch "AssetRevest/pkg/clickhouse"
	"AssetRevest/pkg/config"
	xhttp "AssetRevest/pkg/http"
	pkgkafka "AssetRevest/pkg/kafka"
	applogger "AssetRevest/pkg/logger"
	"AssetRevest/pkg/metrics"
	"AssetRevest/pkg/queue"
	"AssetRevest/pkg/server"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideClickHouseClient creates a ClickHouse client, or nil for the memory backend.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Store.Backend != "clickhouse" {
		return nil, nil
	}
	opts := []pkgch.ClientOption{
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(cfg.ClickHouse.MaxOpenConns, cfg.ClickHouse.MaxIdleConns),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pkgch.EnsureDatabase(ctx, opts...); err != nil {
		return nil, fmt.Errorf("clickhouse database: %w", err)
	}

	client, err := pkgch.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideRedisCache connects to Redis, or returns nil when redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache layers an in-process cache over Redis when redis is enabled
// and falls back to the memory cache alone otherwise.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemorySize))
	}
	return cache.NewLayeredCache(rc,
		cache.WithLayeredMemorySize(cfg.Cache.MemorySize),
		cache.WithLayeredMemoryTTL(time.Minute),
	)
}

// ProvideStore selects the store backend and puts the as-of cache in front of it.
func ProvideStore(cfg *config.Config, ch *pkgch.Client, c cache.Service, l *applogger.Logger) domrepo.Store {
	var store domrepo.Store
	if ch != nil {
		chs := repository.NewCHStore(ch)
		chs.SetLogger(l.With(applogger.String("component", "clickhouse_store")))
		store = chs
	} else {
		store = repository.NewMemoryStore()
	}
	if !cfg.Cache.Enabled {
		return store
	}
	cs := repository.NewCachedStore(store, c, cfg.Cache.TTL)
	cs.SetLogger(l.With(applogger.String("component", "cached_store")))
	return cs
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) domrepo.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.Producer.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher publishes domain events to the events topic.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer, l *applogger.Logger) domrepo.EventPublisher {
	if producer == nil {
		return repository.NopPublisher{}
	}
	pub := repository.NewKafkaPublisher(producer, cfg.Kafka.Topics.Events)
	pub.SetLogger(l.With(applogger.String("component", "kafka_publisher")))
	return pub
}

// ProvideKafkaConsumer creates the market data consumer, or nil when kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, m domrepo.Metrics, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	opts := []pkgkafka.ConsumerOption{
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Topics.DLQ),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l.With(applogger.String("component", "kafka_consumer"))),
	}
	if cfg.Kafka.Consumer.FromLatest {
		opts = append(opts, pkgkafka.WithConsumerStartFromLatest())
	}
	consumer, err := pkgkafka.NewConsumer(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(
		pkgkafka.TraceHook(),
		pkgkafka.HookFuncs{
			Err: func(context.Context, string, kafka.Message, []byte, error) { m.RecordError("ingest") },
		},
	))
	return consumer, nil
}

// ProvideMarketDataHandler upserts ingested bars into the store.
func ProvideMarketDataHandler(cfg *config.Config, store domrepo.Store, m domrepo.Metrics) *usecase.MarketDataHandler {
	return usecase.NewMarketDataHandler(cfg.Kafka.Topics.MarketData, store, m)
}

// ProvideRedisQueue creates the backtest job queue, or nil when redis is disabled.
func ProvideRedisQueue(cfg *config.Config, rc *cache.RedisCache, l *applogger.Logger) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	return queue.NewRedisQueue(
		l.With(applogger.String("component", "job_queue")),
		&queue.QueueConfig{
			Workers:    cfg.Queue.Workers,
			RetryLimit: cfg.Queue.RetryLimit,
			RetryDelay: cfg.Queue.RetryDelay,
		},
		rc.Client(),
		queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"),
	)
}

// ProvideLoader builds the as-of snapshot loader over the compute universe.
func ProvideLoader(cfg *config.Config, store domrepo.Store) *market.Loader {
	return market.NewLoader(store, cfg.Universe.ComputeSymbols())
}

func ProvidePipeline(cfg *config.Config, store domrepo.Store, m domrepo.Metrics, l *applogger.Logger) *usecase.Pipeline {
	p := usecase.NewPipeline(store, cfg.Universe, cfg.Strategy, m, cfg.Strategy.Backtest.Workers)
	p.SetLogger(l.With(applogger.String("component", "pipeline")))
	return p
}

func ProvidePortfolio(cfg *config.Config, store domrepo.Store, events domrepo.EventPublisher, m domrepo.Metrics, l *applogger.Logger) *usecase.Portfolio {
	p := usecase.NewPortfolio(store, events, m, cfg.Universe, cfg.Strategy)
	p.SetLogger(l.With(applogger.String("component", "portfolio")))
	return p
}

func ProvideDailySignal(
	cfg *config.Config,
	store domrepo.Store,
	loader *market.Loader,
	portfolio *usecase.Portfolio,
	c cache.Service,
	events domrepo.EventPublisher,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.DailySignal {
	d := usecase.NewDailySignal(store, loader, portfolio, c, events, m, cfg.Universe, cfg.Strategy)
	d.SetLogger(l.With(applogger.String("component", "daily_signal")))
	return d
}

func ProvideBacktests(
	cfg *config.Config,
	store domrepo.Store,
	loader *market.Loader,
	rq *queue.RedisQueue,
	c cache.Service,
	events domrepo.EventPublisher,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.Backtests {
	// A typed nil queue must not reach the usecase as a non-nil interface.
	var q queue.Publisher
	if rq != nil {
		q = rq
	}
	b := usecase.NewBacktests(store, loader, q, c, events, m, cfg.Universe, cfg.Strategy)
	b.SetLogger(l.With(applogger.String("component", "backtests")))
	return b
}

func ProvideBacktestJob(b *usecase.Backtests) *usecase.BacktestJob {
	return usecase.NewBacktestJob(b)
}

// ProvideAPIHandler creates the echo route handler.
func ProvideAPIHandler(l *applogger.Logger, daily *usecase.DailySignal, portfolio *usecase.Portfolio, backtests *usecase.Backtests) *api.Handler {
	return api.NewHandler(l.With(applogger.String("component", "api")), daily, portfolio, backtests)
}

// ProvideHTTPServer creates the HTTP server around the API handler.
func ProvideHTTPServer(cfg *config.Config, h *api.Handler, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l.With(applogger.String("component", "http"))),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	ch *pkgch.Client,
	store domrepo.Store,
	c cache.Service,
	events domrepo.EventPublisher,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	mdh *usecase.MarketDataHandler,
	rq *queue.RedisQueue,
	job *usecase.BacktestJob,
	pipeline *usecase.Pipeline,
	daily *usecase.DailySignal,
	portfolio *usecase.Portfolio,
	backtests *usecase.Backtests,
) *server.App {
	return server.New(cfg, l, server.Components{
		ClickHouse: ch,
		Store:      store,
		Cache:      c,
		Events:     events,
		HTTP:       srv,
		Consumer:   consumer,
		MarketData: mdh,
		Queue:      rq,
		Job:        job,
		Pipeline:   pipeline,
		Daily:      daily,
		Portfolio:  portfolio,
		Backtests:  backtests,
	})
}
