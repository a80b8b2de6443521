package di

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AssetRevest/internal/domain/models"
	"AssetRevest/pkg/config"
	"AssetRevest/pkg/queue"
)

func TestInitializeAppMemoryBackend(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Metrics.Enabled = false

	app, err := InitializeApp(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	require.NoError(t, app.InitSchema(ctx))

	res, err := app.Pipeline.Run(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Symbols, len(cfg.Universe.ComputeSymbols()))

	h, err := app.Portfolio.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg.Strategy.Backtest.InitialCapital, h.Equity)

	_, err = app.Backtests.Submit(ctx, models.BacktestRequest{Capital: 1000})
	assert.True(t, errors.Is(err, queue.ErrNotRunning))
}

func TestProvidersSkipDisabledInfrastructure(t *testing.T) {
	cfg := config.Default()

	ch, err := ProvideClickHouseClient(cfg)
	require.NoError(t, err)
	assert.Nil(t, ch)

	rc, err := ProvideRedisCache(cfg)
	require.NoError(t, err)
	assert.Nil(t, rc)
	assert.Nil(t, ProvideRedisQueue(cfg, rc, nil))

	producer, err := ProvideKafkaProducer(cfg)
	require.NoError(t, err)
	assert.Nil(t, producer)

	consumer, err := ProvideKafkaConsumer(cfg, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, consumer)
}
