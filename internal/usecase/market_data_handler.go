package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"AssetRevest/internal/domain/models"
	domrepo "AssetRevest/internal/domain/repository"
	pkgkafka "AssetRevest/pkg/kafka"
	"AssetRevest/pkg/util"
)

// MarketDataHandler consumes externally acquired bars, VIX closes and
// breadth from Kafka and writes them to the store.
type MarketDataHandler struct {
	topic   string
	store   domrepo.BarStore
	metrics domrepo.Metrics
}

func NewMarketDataHandler(topic string, store domrepo.BarStore, metrics domrepo.Metrics) *MarketDataHandler {
	return &MarketDataHandler{topic: topic, store: store, metrics: metrics}
}

func (h *MarketDataHandler) Topic() string { return h.topic }

// Handle upserts one message. Malformed input is permanent and goes straight
// to the dead-letter topic; store failures are retried.
func (h *MarketDataHandler) Handle(ctx context.Context, b []byte) error {
	var m models.MarketDataMessage
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("ingest_decode")
		return fmt.Errorf("%w: decode market data: %v", pkgkafka.ErrPermanent, err)
	}
	date, ok := util.ParseDate(m.Date)
	if !ok {
		h.metrics.RecordError("ingest_decode")
		return fmt.Errorf("%w: invalid date %q", pkgkafka.ErrPermanent, m.Date)
	}

	start := time.Now()
	var err error
	switch m.Kind {
	case "bar":
		if m.Symbol == "" || m.Close <= 0 {
			return fmt.Errorf("%w: bar needs symbol and positive close", pkgkafka.ErrPermanent)
		}
		high, low := m.High, m.Low
		if high <= 0 {
			high = m.Close
		}
		if low <= 0 {
			low = m.Close
		}
		err = h.store.UpsertBars(ctx, []models.PriceBar{{
			Symbol: m.Symbol,
			Date:   date,
			Open:   m.Open,
			High:   high,
			Low:    low,
			Close:  m.Close,
			Volume: m.Volume,
		}})
	case "vix":
		if m.Close <= 0 {
			return fmt.Errorf("%w: vix needs positive close", pkgkafka.ErrPermanent)
		}
		err = h.store.UpsertVixBars(ctx, []models.VixBar{{Date: date, Close: m.Close}})
	case "breadth":
		err = h.store.UpsertBreadth(ctx, []models.BreadthBar{{Date: date, UpVolume: m.UpVolume, DownVolume: m.DownVolume}})
	default:
		h.metrics.RecordError("ingest_kind")
		return fmt.Errorf("%w: unknown kind %q", pkgkafka.ErrPermanent, m.Kind)
	}
	h.metrics.RecordLatency("ingest_upsert", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("ingest_store")
		return fmt.Errorf("upsert %s %s: %w", m.Kind, m.Date, err)
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*MarketDataHandler)(nil)
