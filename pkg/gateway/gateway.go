// Package gateway runs shipment batches of one store through the label
// pipelines and dispatches mixed-store batches to per-store gateways.
package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tournevent/labelbridge/internal/telemetry"
	"github.com/tournevent/labelbridge/pkg/carrier"
	"github.com/tournevent/labelbridge/pkg/mapper"
	"github.com/tournevent/labelbridge/pkg/pipeline"
	"github.com/tournevent/labelbridge/pkg/shipment"
	"github.com/tournevent/labelbridge/pkg/validator"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// CreateProcessor consumes the results of a label creation run.
type CreateProcessor interface {
	OnCreateResponse(ctx context.Context, storeID int, labels []shipment.LabelResponse, errs []shipment.ErrorResponse) error
}

// CancelProcessor consumes the results of a cancellation run.
type CancelProcessor interface {
	OnCancelResponse(ctx context.Context, storeID int, tracks []shipment.TrackResponse, errs []shipment.ErrorResponse) error
}

// Options configures gateways.
type Options struct {
	// Validators defaults to validator.Default().
	Validators  []validator.Validator
	EUCountries []string

	Timeout       time.Duration
	CancelRetries int
	RetryDelay    time.Duration

	CreateProcessors []CreateProcessor
	CancelProcessors []CancelProcessor

	Logger  *otelzap.Logger
	Metrics *telemetry.Metrics

	// Clock overrides the time source of ship date derivation.
	Clock func() time.Time
}

// Gateway is the entry point for the shipments of one store.
type Gateway struct {
	settings shipment.StoreSettings
	factory  carrier.Factory
	opts     Options

	creation     *pipeline.Pipeline[*shipment.ShipmentRequest, *pipeline.CreationArtifacts]
	cancellation *pipeline.Pipeline[*shipment.CancellationRequest, *pipeline.CancellationArtifacts]

	mu     sync.Mutex
	client carrier.APIClient
}

// New creates the gateway of one store.
func New(settings shipment.StoreSettings, factory carrier.Factory, opts Options) *Gateway {
	if opts.Validators == nil {
		opts.Validators = validator.Default()
	}
	if opts.Logger == nil {
		opts.Logger = otelzap.New(zap.NewNop())
	}

	mapperOpts := []mapper.Option{}
	if len(opts.EUCountries) > 0 {
		mapperOpts = append(mapperOpts, mapper.WithEUCountries(opts.EUCountries))
	}
	if opts.Clock != nil {
		mapperOpts = append(mapperOpts, mapper.WithClock(opts.Clock))
	}

	g := &Gateway{
		settings: settings,
		factory:  factory,
		opts:     opts,
	}

	send := pipeline.SendOptions{
		Timeout:    opts.Timeout,
		Retries:    opts.CancelRetries,
		RetryDelay: opts.RetryDelay,
	}
	g.creation = pipeline.NewCreationPipeline(
		opts.Validators,
		mapper.NewRequestMapper(settings, mapperOpts...),
		g, send, opts.Logger, opts.Metrics,
	)
	g.cancellation = pipeline.NewCancellationPipeline(g, send, opts.Logger, opts.Metrics)
	return g
}

// StoreID returns the store the gateway serves.
func (g *Gateway) StoreID() int {
	return g.settings.StoreID
}

// Client returns the store's carrier client, creating it on first use.
func (g *Gateway) Client(ctx context.Context) (carrier.APIClient, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}
	client, err := g.factory.NewClient(g.settings)
	if err != nil {
		return nil, err
	}
	g.client = client
	return client, nil
}

// CreateShipments creates labels for a batch of the store's shipments.
// Results list errors first, then successes, each in batch order. Item
// faults are reported as results; only fatal failures return an error.
func (g *Gateway) CreateShipments(ctx context.Context, reqs []*shipment.ShipmentRequest) ([]shipment.Response, error) {
	given := make([]string, len(reqs))
	for i, req := range reqs {
		given[i] = req.RequestIndex
	}
	if err := uniqueIndices(given); err != nil {
		return nil, err
	}
	indices := assignIndices(given)

	items := make([]pipeline.CreationItem, 0, len(reqs))
	for i, req := range reqs {
		items = append(items, pipeline.CreationItem{Index: indices[i], Request: req})
	}

	run := pipeline.NewArtifacts[carrier.ShipmentOrder, carrier.CreatedShipment, shipment.LabelResponse](g.StoreID())
	run.Indices = pipeline.Indices(items)

	if err := g.creation.Run(ctx, g.StoreID(), items, run); err != nil {
		return nil, err
	}
	if err := run.Complete(); err != nil {
		return nil, err
	}

	labels, errs := run.Results()
	g.opts.Metrics.RecordItems("create", g.StoreID(), len(labels), len(errs))

	for _, p := range g.opts.CreateProcessors {
		if err := p.OnCreateResponse(ctx, g.StoreID(), labels, errs); err != nil {
			g.processorFailed(ctx, p, err)
		}
	}

	return run.Responses(), nil
}

// CancelShipments cancels a batch of the store's shipments.
func (g *Gateway) CancelShipments(ctx context.Context, reqs []*shipment.CancellationRequest) ([]shipment.Response, error) {
	given := make([]string, len(reqs))
	for i, req := range reqs {
		given[i] = req.RequestIndex
	}
	if err := uniqueIndices(given); err != nil {
		return nil, err
	}
	indices := assignIndices(given)

	items := make([]pipeline.CancellationItem, 0, len(reqs))
	for i, req := range reqs {
		items = append(items, pipeline.CancellationItem{Index: indices[i], Request: req})
	}

	run := pipeline.NewArtifacts[string, string, shipment.TrackResponse](g.StoreID())
	run.Indices = pipeline.Indices(items)

	if err := g.cancellation.Run(ctx, g.StoreID(), items, run); err != nil {
		return nil, err
	}
	if err := run.Complete(); err != nil {
		return nil, err
	}

	tracks, errs := run.Results()
	g.opts.Metrics.RecordItems("cancel", g.StoreID(), len(tracks), len(errs))

	for _, p := range g.opts.CancelProcessors {
		if err := p.OnCancelResponse(ctx, g.StoreID(), tracks, errs); err != nil {
			g.processorFailed(ctx, p, err)
		}
	}

	return run.Responses(), nil
}

func (g *Gateway) processorFailed(ctx context.Context, p any, err error) {
	name := processorName(p)
	g.opts.Metrics.RecordProcessorError(name)
	g.opts.Logger.Ctx(ctx).Error("Response processor failed",
		zap.Int("store_id", g.StoreID()),
		zap.String("processor", name),
		zap.Error(err),
	)
}

func processorName(p any) string {
	if named, ok := p.(interface{ Name() string }); ok {
		return named.Name()
	}
	return fmt.Sprintf("%T", p)
}
