package events

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// LogPublisher logs status events. Used when no broker is configured.
type LogPublisher struct {
	logger *otelzap.Logger
}

func NewLogPublisher(logger *otelzap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, events ...StatusEvent) error {
	for _, e := range events {
		p.logger.Ctx(ctx).Info("Shipment status changed",
			zap.String("event_id", e.ID),
			zap.String("type", e.Type),
			zap.Int("store_id", e.StoreID),
			zap.String("request_index", e.RequestIndex),
			zap.String("order_ref", e.OrderRef),
			zap.String("track_number", e.TrackNumber),
			zap.String("message", e.Message),
		)
	}
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
