package pipeline_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/labelbridge/pkg/carrier"
	"github.com/tournevent/labelbridge/pkg/mapper"
	"github.com/tournevent/labelbridge/pkg/pipeline"
	"github.com/tournevent/labelbridge/pkg/shipment"
	"github.com/tournevent/labelbridge/pkg/validator"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func testLogger() *otelzap.Logger {
	return otelzap.New(zap.NewNop())
}

func testSettings() shipment.StoreSettings {
	return shipment.StoreSettings{
		StoreID:        1,
		AccountNumber:  "2222222222",
		Participations: map[string]string{carrier.ProductParcel: "01"},
		UseMock:        true,
	}
}

func shipmentRequest(index int) *shipment.ShipmentRequest {
	ref := strconv.Itoa(100000001 + index)
	return &shipment.ShipmentRequest{
		RequestIndex: strconv.Itoa(index),
		StoreID:      1,
		ShipmentRef:  "S-" + ref,
		ShipDate:     time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Order:        shipment.Order{IncrementID: ref, GrandTotal: 50, Currency: "EUR", QtyOrdered: 1},
		Shipper: shipment.Address{
			Name: "Shop GmbH", Street: "Nonnenstraße", StreetNumber: "11", PostalCode: "04229", City: "Leipzig", CountryCode: "DE",
		},
		Recipient: shipment.Address{
			Name: "Jane Doe", Street: "Hauptstraße", StreetNumber: "1", PostalCode: "53113", City: "Bonn", CountryCode: "DE",
		},
		Packages: []*shipment.Package{{
			Weight:      1,
			WeightUnit:  shipment.WeightKG,
			ProductCode: carrier.ProductParcel,
			Items:       []shipment.PackageItem{{Qty: 1, Value: 50}},
		}},
	}
}

func creationItems(reqs ...*shipment.ShipmentRequest) []pipeline.CreationItem {
	items := make([]pipeline.CreationItem, 0, len(reqs))
	for _, req := range reqs {
		items = append(items, pipeline.CreationItem{Index: req.RequestIndex, Request: req})
	}
	return items
}

func runCreation(t *testing.T, client carrier.APIClient, reqs ...*shipment.ShipmentRequest) *pipeline.CreationArtifacts {
	t.Helper()

	clients := pipeline.ClientSourceFunc(func(context.Context) (carrier.APIClient, error) { return client, nil })
	p := pipeline.NewCreationPipeline(
		validator.Default(),
		mapper.NewRequestMapper(testSettings()),
		clients,
		pipeline.SendOptions{Timeout: time.Second},
		testLogger(),
		nil,
	)

	items := creationItems(reqs...)
	run := pipeline.NewArtifacts[carrier.ShipmentOrder, carrier.CreatedShipment, shipment.LabelResponse](1)
	run.Indices = pipeline.Indices(items)

	require.NoError(t, p.Run(context.Background(), 1, items, run))
	require.NoError(t, run.Complete())
	return run
}

func TestCreationPipeline_AllSucceed(t *testing.T) {
	mockAPI := carrier.NewMockAPIClient()
	run := runCreation(t, mockAPI, shipmentRequest(0), shipmentRequest(1))

	successes, failures := run.Results()
	assert.Empty(t, failures)
	require.Len(t, successes, 2)
	assert.Equal(t, "0", successes[0].RequestIndex)
	assert.Equal(t, "100000001", successes[0].OrderRef)
	assert.Equal(t, carrier.MockLabel, successes[0].LabelContent)
	assert.NotEmpty(t, successes[0].TrackingNumber)
	assert.Len(t, mockAPI.CreateCalls(), 1, "one batched carrier call")
}

func TestCreationPipeline_ValidationIsolation(t *testing.T) {
	mockAPI := carrier.NewMockAPIClient()

	partial := shipmentRequest(1)
	partial.Order.QtyOrdered = 3
	partial.Order.CashOnDelivery = true

	run := runCreation(t, mockAPI, shipmentRequest(0), partial)

	successes, failures := run.Results()
	require.Len(t, successes, 1)
	require.Len(t, failures, 1)
	assert.Equal(t, "0", successes[0].RequestIndex)
	assert.Equal(t, "1", failures[0].RequestIndex)
	assert.Contains(t, failures[0].Message, "cash on delivery")
	assert.Equal(t, "S-100000002", failures[0].ShipmentRef)

	calls := mockAPI.CreateCalls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 1, "only the valid item reaches the carrier")
	assert.Equal(t, "0", calls[0][0].SequenceNumber)
}

func TestCreationPipeline_MappingIsolation(t *testing.T) {
	mockAPI := carrier.NewMockAPIClient()

	broken := shipmentRequest(0)
	broken.Recipient.City = ""

	run := runCreation(t, mockAPI, broken, shipmentRequest(1))

	successes, failures := run.Results()
	require.Len(t, successes, 1)
	require.Len(t, failures, 1)
	assert.Equal(t, "0", failures[0].RequestIndex)
	assert.Equal(t, "The receiver city is required.", failures[0].Message)
	assert.Equal(t, "1", successes[0].RequestIndex)
}

func TestCreationPipeline_SharedPackageFailsLaterItem(t *testing.T) {
	mockAPI := carrier.NewMockAPIClient()

	first := shipmentRequest(0)
	second := shipmentRequest(1)
	second.Packages = first.Packages

	run := runCreation(t, mockAPI, first, second)

	successes, failures := run.Results()
	require.Len(t, successes, 1)
	require.Len(t, failures, 1)
	assert.Equal(t, "0", successes[0].RequestIndex)
	assert.Equal(t, "1", failures[0].RequestIndex)
	assert.Contains(t, failures[0].Message, "already part of request 0")
	assert.Equal(t, "0", first.Packages[0].SequenceNumber)
}

func TestCreationPipeline_TransportFaultFailsBatch(t *testing.T) {
	mockAPI := carrier.NewMockAPIClient()
	mockAPI.SimulateErrors = true

	run := runCreation(t, mockAPI, shipmentRequest(0), shipmentRequest(1))

	successes, failures := run.Results()
	assert.Empty(t, successes)
	require.Len(t, failures, 2)
	for _, f := range failures {
		assert.Equal(t, pipeline.GenericFailureMessage, f.Message)
	}
	assert.Len(t, mockAPI.CreateCalls(), 1, "creation is never retried")
}

func TestCreationPipeline_DetailedFaultFailsBatch(t *testing.T) {
	mockAPI := carrier.NewMockAPIClient()
	mockAPI.OnCreateShipments = func(ctx context.Context, orders []carrier.ShipmentOrder) ([]carrier.CreatedShipment, error) {
		return nil, &shipment.DetailedServiceError{Code: "1101", Messages: []string{"Hard validation error occured."}}
	}

	run := runCreation(t, mockAPI, shipmentRequest(0), shipmentRequest(1))

	successes, failures := run.Results()
	assert.Empty(t, successes)
	require.Len(t, failures, 2)
	assert.Equal(t, "Hard validation error occured.", failures[0].Message)
	assert.Equal(t, "Hard validation error occured.", failures[1].Message)
}

func TestCreationPipeline_SilentOmission(t *testing.T) {
	mockAPI := carrier.NewMockAPIClient()
	mockAPI.OnCreateShipments = func(ctx context.Context, orders []carrier.ShipmentOrder) ([]carrier.CreatedShipment, error) {
		return []carrier.CreatedShipment{{SequenceNumber: orders[0].SequenceNumber, ShipmentNumber: "111", Label: []byte("x")}}, nil
	}

	run := runCreation(t, mockAPI, shipmentRequest(0), shipmentRequest(1))

	successes, failures := run.Results()
	require.Len(t, successes, 1)
	require.Len(t, failures, 1)
	assert.Equal(t, "111", successes[0].TrackingNumber)
	assert.Equal(t, "Label for order 100000002 could not be created.", failures[0].Message)
}

func TestCreationPipeline_ClientFailureIsFatal(t *testing.T) {
	clients := pipeline.ClientSourceFunc(func(context.Context) (carrier.APIClient, error) {
		return nil, errors.New("no credentials")
	})
	p := pipeline.NewCreationPipeline(nil, mapper.NewRequestMapper(testSettings()), clients, pipeline.SendOptions{}, testLogger(), nil)

	items := creationItems(shipmentRequest(0))
	run := pipeline.NewArtifacts[carrier.ShipmentOrder, carrier.CreatedShipment, shipment.LabelResponse](1)
	run.Indices = pipeline.Indices(items)

	err := p.Run(context.Background(), 1, items, run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credentials")
}

func TestCreationPipeline_NoCarrierCallWhenAllFail(t *testing.T) {
	mockAPI := carrier.NewMockAPIClient()

	broken := shipmentRequest(0)
	broken.Packages = nil

	run := runCreation(t, mockAPI, broken)

	_, failures := run.Results()
	require.Len(t, failures, 1)
	assert.Empty(t, mockAPI.CreateCalls())
}

type unexpectedMapper struct{}

func (unexpectedMapper) Map(string, *shipment.ShipmentRequest) (carrier.ShipmentOrder, error) {
	return carrier.ShipmentOrder{}, errors.New("nil builder")
}

func TestMapRequestStage_ProgrammingErrorAborts(t *testing.T) {
	run := pipeline.NewArtifacts[carrier.ShipmentOrder, carrier.CreatedShipment, shipment.LabelResponse](1)
	stage := pipeline.MapRequestStage{Mapper: unexpectedMapper{}}

	_, err := stage.Execute(context.Background(), creationItems(shipmentRequest(0)), run)
	require.Error(t, err)
	assert.Empty(t, run.Errors)
}
