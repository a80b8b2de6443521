package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	domrepo "AssetRevest/internal/domain/repository"
	"AssetRevest/internal/repository"
	"AssetRevest/internal/usecase"
	"AssetRevest/pkg/cache"
	pkgch "AssetRevest/pkg/clickhouse"
	"AssetRevest/pkg/config"
	xhttp "AssetRevest/pkg/http"
	pkgkafka "AssetRevest/pkg/kafka"
	applogger "AssetRevest/pkg/logger"
	"AssetRevest/pkg/queue"
)

// App encapsulates the entire application lifecycle. Optional components
// (ClickHouse, Kafka, Redis) are nil when their section is disabled.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	chClient   *pkgch.Client
	store      domrepo.Store
	cache      cache.Service
	events     domrepo.EventPublisher
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	marketData pkgkafka.MessageHandler
	queue      *queue.RedisQueue
	job        queue.Job

	Pipeline  *usecase.Pipeline
	Daily     *usecase.DailySignal
	Portfolio *usecase.Portfolio
	Backtests *usecase.Backtests
}

// Components groups what the injector hands to New.
type Components struct {
	ClickHouse *pkgch.Client
	Store      domrepo.Store
	Cache      cache.Service
	Events     domrepo.EventPublisher
	HTTP       *xhttp.Server
	Consumer   *pkgkafka.Consumer
	MarketData pkgkafka.MessageHandler
	Queue      *queue.RedisQueue
	Job        queue.Job
	Pipeline   *usecase.Pipeline
	Daily      *usecase.DailySignal
	Portfolio  *usecase.Portfolio
	Backtests  *usecase.Backtests
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, c Components) *App {
	return &App{
		cfg:        cfg,
		logger:     applogger.OrNop(l),
		chClient:   c.ClickHouse,
		store:      c.Store,
		cache:      c.Cache,
		events:     c.Events,
		httpServer: c.HTTP,
		consumer:   c.Consumer,
		marketData: c.MarketData,
		queue:      c.Queue,
		job:        c.Job,
		Pipeline:   c.Pipeline,
		Daily:      c.Daily,
		Portfolio:  c.Portfolio,
		Backtests:  c.Backtests,
	}
}

// Logger returns the application logger.
func (a *App) Logger() *applogger.Logger { return a.logger }

// Config returns the loaded configuration.
func (a *App) Config() *config.Config { return a.cfg }

// InitSchema creates the ClickHouse tables. The memory backend needs none.
func (a *App) InitSchema(ctx context.Context) error {
	if a.chClient == nil {
		a.logger.Info("memory store selected, no schema to create")
		return nil
	}
	if err := a.chClient.InitSchema(ctx, repository.Schema()); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	a.logger.Info("clickhouse schema ready", applogger.String("database", a.chClient.Database()))
	return nil
}

// Serve runs the HTTP API with the queue in publisher mode and the market
// data consumer, and blocks until interrupted.
func (a *App) Serve(ctx context.Context) error {
	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			a.logger.Warn("job queue unavailable, backtest submission disabled", applogger.Error(err))
		}
	}
	a.startConsumer()

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.wait(ctx)
	return a.shutdown(ctx)
}

// Work consumes backtest jobs and market data until interrupted.
func (a *App) Work(ctx context.Context) error {
	if a.queue == nil {
		return errors.New("worker needs redis.enabled for the job queue")
	}
	a.queue.RegisterJob(a.job)
	if err := a.queue.Start(); err != nil {
		return fmt.Errorf("start job queue: %w", err)
	}
	a.startConsumer()
	a.wait(ctx)
	return a.shutdown(ctx)
}

func (a *App) startConsumer() {
	if a.consumer == nil || a.marketData == nil {
		return
	}
	a.consumer.RegisterHandler(a.marketData)
	if err := a.consumer.Start(); err != nil {
		a.logger.Error("kafka consumer error", applogger.Error(err))
		return
	}
	a.logger.Info("kafka consumer started", applogger.String("topic", a.marketData.Topic()))
}

func (a *App) wait(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		a.logger.Info("shutdown signal received")
	case <-ctx.Done():
		a.logger.Info("context cancelled")
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(shutdownCtx); err != nil {
			a.logger.Warn("job queue stop error", applogger.Error(err))
		}
	}

	err := a.Close()
	a.logger.Info("shutdown complete")
	return err
}

// Close releases the store, the event publisher and the cache. The store
// owns the ClickHouse client when the clickhouse backend is selected.
func (a *App) Close() error {
	var errs []error
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close events: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	return errors.Join(errs...)
}
