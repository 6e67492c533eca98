package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/tournevent/labelbridge/internal/telemetry"
	"github.com/tournevent/labelbridge/pkg/carrier"
	"github.com/tournevent/labelbridge/pkg/mapper"
	"github.com/tournevent/labelbridge/pkg/shipment"
	"github.com/tournevent/labelbridge/pkg/validator"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// CreationItem is an in-flight shipment request.
type CreationItem = Item[*shipment.ShipmentRequest]

// CreationStage is a stage of the label creation pipeline.
type CreationStage = Stage[*shipment.ShipmentRequest, *CreationArtifacts]

// RequestMapper maps one shipment request to a carrier order.
type RequestMapper interface {
	Map(seq string, req *shipment.ShipmentRequest) (carrier.ShipmentOrder, error)
}

func shipmentError(req *shipment.ShipmentRequest, message string) ItemError {
	return ItemError{
		Message:     message,
		OrderRef:    req.Order.IncrementID,
		ShipmentRef: req.ShipmentRef,
	}
}

// ValidateStage drops items that violate a business rule.
type ValidateStage struct {
	Validators []validator.Validator
}

func (s ValidateStage) Name() string { return "validate" }

func (s ValidateStage) Execute(ctx context.Context, items []CreationItem, run *CreationArtifacts) ([]CreationItem, error) {
	out := make([]CreationItem, 0, len(items))
	for _, item := range items {
		err := validator.Run(item.Request, s.Validators)
		if err == nil {
			out = append(out, item)
			continue
		}

		var validationErr *shipment.ValidationError
		if !errors.As(err, &validationErr) {
			return nil, fmt.Errorf("validate item %s: %w", item.Index, err)
		}
		run.AddError(item.Index, shipmentError(item.Request, validationErr.Message))
	}
	return out, nil
}

// MapRequestStage builds a carrier order per item, using the item index as
// sequence number. A package shared with an earlier item fails the later
// item, since mapping stamps the sequence number onto the package.
type MapRequestStage struct {
	Mapper RequestMapper
}

func (s MapRequestStage) Name() string { return "map_request" }

func (s MapRequestStage) Execute(ctx context.Context, items []CreationItem, run *CreationArtifacts) ([]CreationItem, error) {
	out := make([]CreationItem, 0, len(items))
	owners := make(map[*shipment.Package]string)
	for _, item := range items {
		if owner, shared := sharedPackage(owners, item); shared {
			msg := fmt.Sprintf("A package of this shipment is already part of request %s.", owner)
			run.AddError(item.Index, shipmentError(item.Request, msg))
			continue
		}
		for _, pkg := range item.Request.Packages {
			owners[pkg] = item.Index
		}

		order, err := s.Mapper.Map(item.Index, item.Request)
		if err != nil {
			if !mapper.IsMappingFault(err) {
				return nil, fmt.Errorf("map item %s: %w", item.Index, err)
			}
			run.AddError(item.Index, shipmentError(item.Request, err.Error()))
			continue
		}
		run.APIRequests[item.Index] = order
		out = append(out, item)
	}
	return out, nil
}

func sharedPackage(owners map[*shipment.Package]string, item CreationItem) (string, bool) {
	for _, pkg := range item.Request.Packages {
		if owner, ok := owners[pkg]; ok && owner != item.Index {
			return owner, true
		}
	}
	return "", false
}

// SendRequestStage sends all mapped orders in one carrier call. Creation
// calls are never retried.
type SendRequestStage struct {
	Clients ClientSource
	Options SendOptions
	Logger  *otelzap.Logger
	Metrics *telemetry.Metrics
}

func (s SendRequestStage) Name() string { return "send_request" }

func (s SendRequestStage) Execute(ctx context.Context, items []CreationItem, run *CreationArtifacts) ([]CreationItem, error) {
	if len(items) == 0 {
		return items, nil
	}

	client, err := s.Clients.Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("carrier client for store %d: %w", run.StoreID, err)
	}

	orders := make([]carrier.ShipmentOrder, 0, len(items))
	for _, item := range items {
		orders = append(orders, run.APIRequests[item.Index])
	}

	created, err := call(ctx, s.Options, 0, func(ctx context.Context) ([]carrier.CreatedShipment, error) {
		return client.CreateShipments(ctx, orders)
	})
	if err != nil {
		s.Metrics.RecordError("create", errorType(err))
		s.Logger.Ctx(ctx).Warn("Shipment order batch failed",
			zap.Int("store_id", run.StoreID),
			zap.Int("item_count", len(items)),
			zap.Error(err),
		)

		msg := failureMessage(err)
		for _, item := range items {
			run.AddError(item.Index, shipmentError(item.Request, msg))
		}
		return nil, nil
	}

	for _, cs := range created {
		run.APIResponses[cs.SequenceNumber] = cs
	}
	return items, nil
}

// MapResponseStage converts recorded faults and carrier responses into
// uniform results.
type MapResponseStage struct{}

func (s MapResponseStage) Name() string { return "map_response" }

func (s MapResponseStage) Execute(ctx context.Context, items []CreationItem, run *CreationArtifacts) ([]CreationItem, error) {
	for index, e := range run.Errors {
		run.ErrorResponses[index] = errorResponse(index, e)
	}

	for _, item := range items {
		if run.HasError(item.Index) {
			continue
		}
		created, ok := run.APIResponses[item.Request.SequenceNumber()]
		if !ok {
			msg := fmt.Sprintf("Label for order %s could not be created.", item.Request.Order.IncrementID)
			run.ErrorResponses[item.Index] = errorResponse(item.Index, shipmentError(item.Request, msg))
			continue
		}
		run.Successes[item.Index] = mapper.LabelResponse(item.Index, item.Request, created)
	}
	return items, nil
}

// NewCreationPipeline assembles the validate, map, send and map-response stages.
func NewCreationPipeline(
	validators []validator.Validator,
	requestMapper RequestMapper,
	clients ClientSource,
	opts SendOptions,
	logger *otelzap.Logger,
	metrics *telemetry.Metrics,
) *Pipeline[*shipment.ShipmentRequest, *CreationArtifacts] {
	return New[*shipment.ShipmentRequest, *CreationArtifacts]("create", logger, nil, metrics,
		ValidateStage{Validators: validators},
		MapRequestStage{Mapper: requestMapper},
		SendRequestStage{Clients: clients, Options: opts, Logger: logger, Metrics: metrics},
		MapResponseStage{},
	)
}
