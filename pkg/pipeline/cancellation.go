package pipeline

import (
	"context"
	"fmt"

	"github.com/tournevent/labelbridge/internal/telemetry"
	"github.com/tournevent/labelbridge/pkg/mapper"
	"github.com/tournevent/labelbridge/pkg/shipment"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// CancellationItem is an in-flight cancellation request.
type CancellationItem = Item[*shipment.CancellationRequest]

// CancellationStage is a stage of the cancellation pipeline.
type CancellationStage = Stage[*shipment.CancellationRequest, *CancellationArtifacts]

func trackError(req *shipment.CancellationRequest, message string) ItemError {
	return ItemError{
		Message:     message,
		ShipmentRef: req.ShipmentRef,
		TrackRef:    req.TrackRef,
	}
}

// CancelMapRequestStage maps each item to its shipment number.
type CancelMapRequestStage struct{}

func (s CancelMapRequestStage) Name() string { return "map_request" }

func (s CancelMapRequestStage) Execute(ctx context.Context, items []CancellationItem, run *CancellationArtifacts) ([]CancellationItem, error) {
	out := make([]CancellationItem, 0, len(items))
	for _, item := range items {
		number, err := mapper.MapCancellation(item.Request)
		if err != nil {
			if !mapper.IsMappingFault(err) {
				return nil, fmt.Errorf("map item %s: %w", item.Index, err)
			}
			run.AddError(item.Index, trackError(item.Request, err.Error()))
			continue
		}
		run.APIRequests[item.Index] = number
		out = append(out, item)
	}
	return out, nil
}

// CancelSendRequestStage cancels all mapped shipment numbers in one call,
// retrying transient failures.
type CancelSendRequestStage struct {
	Clients ClientSource
	Options SendOptions
	Logger  *otelzap.Logger
	Metrics *telemetry.Metrics
}

func (s CancelSendRequestStage) Name() string { return "send_request" }

func (s CancelSendRequestStage) Execute(ctx context.Context, items []CancellationItem, run *CancellationArtifacts) ([]CancellationItem, error) {
	if len(items) == 0 {
		return items, nil
	}

	client, err := s.Clients.Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("carrier client for store %d: %w", run.StoreID, err)
	}

	numbers := make([]string, 0, len(items))
	for _, item := range items {
		numbers = append(numbers, run.APIRequests[item.Index])
	}

	cancelled, err := call(ctx, s.Options, s.Options.Retries, func(ctx context.Context) ([]string, error) {
		return client.CancelShipments(ctx, numbers)
	})
	if err != nil {
		s.Metrics.RecordError("cancel", errorType(err))
		s.Logger.Ctx(ctx).Warn("Cancellation batch failed",
			zap.Int("store_id", run.StoreID),
			zap.Strings("shipment_numbers", numbers),
			zap.Error(err),
		)

		msg := failureMessage(err)
		for _, item := range items {
			run.AddError(item.Index, trackError(item.Request, msg))
		}
		return nil, nil
	}

	for _, number := range cancelled {
		run.APIResponses[number] = number
	}
	return items, nil
}

// CancelMapResponseStage converts recorded faults and cancelled numbers into
// uniform results.
type CancelMapResponseStage struct{}

func (s CancelMapResponseStage) Name() string { return "map_response" }

func (s CancelMapResponseStage) Execute(ctx context.Context, items []CancellationItem, run *CancellationArtifacts) ([]CancellationItem, error) {
	for index, e := range run.Errors {
		run.ErrorResponses[index] = errorResponse(index, e)
	}

	for _, item := range items {
		if run.HasError(item.Index) {
			continue
		}
		number := run.APIRequests[item.Index]
		if _, ok := run.APIResponses[number]; !ok {
			msg := fmt.Sprintf("Shipment %s could not be cancelled.", number)
			run.ErrorResponses[item.Index] = errorResponse(item.Index, trackError(item.Request, msg))
			continue
		}
		run.Successes[item.Index] = mapper.TrackResponse(item.Index, number, item.Request)
	}
	return items, nil
}

// NewCancellationPipeline assembles the map, send and map-response stages.
// Cancellations have no business rules to validate.
func NewCancellationPipeline(
	clients ClientSource,
	opts SendOptions,
	logger *otelzap.Logger,
	metrics *telemetry.Metrics,
) *Pipeline[*shipment.CancellationRequest, *CancellationArtifacts] {
	return New[*shipment.CancellationRequest, *CancellationArtifacts]("cancel", logger, nil, metrics,
		CancelMapRequestStage{},
		CancelSendRequestStage{Clients: clients, Options: opts, Logger: logger, Metrics: metrics},
		CancelMapResponseStage{},
	)
}
