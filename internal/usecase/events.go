package usecase

import (
	"context"

	"AssetRevest/internal/domain/models"
	domrepo "AssetRevest/internal/domain/repository"
	applogger "AssetRevest/pkg/logger"
)

// publishEvent ships an event downstream. Delivery failures never undo the
// state change that produced the event; they are logged and counted.
func publishEvent(ctx context.Context, events domrepo.EventPublisher, metrics domrepo.Metrics, l *applogger.Logger, t models.EventType, key string, payload interface{}) {
	if err := events.Publish(ctx, models.Event{Type: t, Key: key, Payload: payload}); err != nil {
		metrics.RecordError("publish")
		l.Warn("publish event failed",
			applogger.String("type", string(t)),
			applogger.String("key", key),
			applogger.Error(err),
		)
	}
}
