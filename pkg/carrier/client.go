// Package carrier provides integration with the carrier's label web service.
package carrier

import (
	"context"
	"errors"
	"time"

	"github.com/tournevent/labelbridge/pkg/shipment"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierName = "dhl-business"

// Client wraps an APIClient of one store with logging and tracing.
type Client struct {
	storeID   int
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// NewWithAPIClient creates a new client around a custom API client.
func NewWithAPIClient(storeID int, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	if tracer == nil {
		tracer = otel.Tracer("labelbridge/carrier")
	}
	return &Client{
		storeID:   storeID,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// CreateShipments creates labels for a batch of orders.
func (c *Client) CreateShipments(ctx context.Context, orders []ShipmentOrder) ([]CreatedShipment, error) {
	ctx, span := c.tracer.Start(ctx, "carrier.CreateShipments",
		trace.WithAttributes(
			attribute.String("carrier", carrierName),
			attribute.Int("store_id", c.storeID),
			attribute.Int("orders", len(orders)),
		))
	defer span.End()

	c.logger.Ctx(ctx).Info("Creating shipment orders",
		zap.Int("store_id", c.storeID),
		zap.Int("order_count", len(orders)),
	)

	start := time.Now()
	created, err := c.apiClient.CreateShipments(ctx, orders)
	if err != nil {
		c.fail(ctx, span, "Failed to create shipment orders", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("created", len(created)))
	c.logger.Ctx(ctx).Info("Shipment orders created",
		zap.Int("store_id", c.storeID),
		zap.Int("created_count", len(created)),
		zap.Int("omitted_count", len(orders)-len(created)),
		zap.Duration("duration", time.Since(start)),
	)
	return created, nil
}

// CancelShipments cancels a batch of shipment numbers.
func (c *Client) CancelShipments(ctx context.Context, shipmentNumbers []string) ([]string, error) {
	ctx, span := c.tracer.Start(ctx, "carrier.CancelShipments",
		trace.WithAttributes(
			attribute.String("carrier", carrierName),
			attribute.Int("store_id", c.storeID),
			attribute.Int("shipments", len(shipmentNumbers)),
		))
	defer span.End()

	c.logger.Ctx(ctx).Info("Cancelling shipments",
		zap.Int("store_id", c.storeID),
		zap.Strings("shipment_numbers", shipmentNumbers),
	)

	cancelled, err := c.apiClient.CancelShipments(ctx, shipmentNumbers)
	if err != nil {
		c.fail(ctx, span, "Failed to cancel shipments", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("cancelled", len(cancelled)))
	c.logger.Ctx(ctx).Info("Shipments cancelled",
		zap.Int("store_id", c.storeID),
		zap.Int("cancelled_count", len(cancelled)),
	)
	return cancelled, nil
}

func (c *Client) fail(ctx context.Context, span trace.Span, msg string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	fields := []zap.Field{zap.Int("store_id", c.storeID), zap.Error(err)}
	var serviceErr *shipment.ServiceError
	if errors.As(err, &serviceErr) {
		fields = append(fields,
			zap.String("code", serviceErr.Code),
			zap.Int("status_code", serviceErr.StatusCode),
			zap.Bool("retryable", serviceErr.Retryable),
		)
	}
	c.logger.Ctx(ctx).Error(msg, fields...)
}

var _ APIClient = (*Client)(nil)
