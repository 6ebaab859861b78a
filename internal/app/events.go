package app

import (
	"context"

	"go.uber.org/zap"

	"staffqa/internal/events"
)

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// publishEvent never fails the caller; a nil publisher disables events.
func publishEvent(ctx context.Context, publisher EventPublisher, logger *zap.Logger, event events.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("publish event failed", zap.String("type", event.Type), zap.Error(err))
	}
}
