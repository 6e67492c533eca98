package carrier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/labelbridge/pkg/shipment"
)

// MockLabel is the label content returned by the mock for every created shipment.
var MockLabel = []byte("%PDF-1.4 mock label")

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCreateShipments func(ctx context.Context, orders []ShipmentOrder) ([]CreatedShipment, error)
	OnCancelShipments func(ctx context.Context, shipmentNumbers []string) ([]string, error)

	mu          sync.Mutex
	createCalls [][]ShipmentOrder
	cancelCalls [][]string
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// CreateShipments returns one mock shipment per order.
func (m *MockAPIClient) CreateShipments(ctx context.Context, orders []ShipmentOrder) ([]CreatedShipment, error) {
	m.mu.Lock()
	m.createCalls = append(m.createCalls, orders)
	m.mu.Unlock()

	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, shipment.NewServiceError("MOCK_ERROR", "Simulated API error")
	}

	if m.OnCreateShipments != nil {
		return m.OnCreateShipments(ctx, orders)
	}

	created := make([]CreatedShipment, 0, len(orders))
	for _, o := range orders {
		cs := CreatedShipment{
			SequenceNumber: o.SequenceNumber,
			ShipmentNumber: fmt.Sprintf("22%d", time.Now().UnixNano()%1000000000000),
			Label:          MockLabel,
		}
		if o.ReturnReceiver != nil {
			cs.ReturnShipmentNumber = "ret-" + uuid.New().String()[:8]
			cs.ReturnLabel = MockLabel
		}
		created = append(created, cs)
	}
	return created, nil
}

// CancelShipments reports every shipment number as cancelled.
func (m *MockAPIClient) CancelShipments(ctx context.Context, shipmentNumbers []string) ([]string, error) {
	m.mu.Lock()
	m.cancelCalls = append(m.cancelCalls, shipmentNumbers)
	m.mu.Unlock()

	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, shipment.NewServiceError("MOCK_ERROR", "Simulated API error")
	}

	if m.OnCancelShipments != nil {
		return m.OnCancelShipments(ctx, shipmentNumbers)
	}

	return append([]string(nil), shipmentNumbers...), nil
}

// CreateCalls returns the order batches passed to CreateShipments.
func (m *MockAPIClient) CreateCalls() [][]ShipmentOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]ShipmentOrder(nil), m.createCalls...)
}

// CancelCalls returns the number batches passed to CancelShipments.
func (m *MockAPIClient) CancelCalls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.cancelCalls...)
}

// Ensure MockAPIClient implements APIClient
var _ APIClient = (*MockAPIClient)(nil)
