package carrier

import (
	"fmt"
	"time"

	"github.com/tournevent/labelbridge/pkg/shipment"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
)

// Factory creates the API client of a store.
type Factory interface {
	NewClient(settings shipment.StoreSettings) (APIClient, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(settings shipment.StoreSettings) (APIClient, error)

// NewClient implements Factory.
func (f FactoryFunc) NewClient(settings shipment.StoreSettings) (APIClient, error) {
	return f(settings)
}

// ClientFactory builds SOAP or mock clients from store settings.
type ClientFactory struct {
	timeout time.Duration
	logger  *otelzap.Logger
	tracer  trace.Tracer
}

// NewClientFactory creates a factory whose SOAP clients use the given HTTP timeout.
func NewClientFactory(timeout time.Duration, logger *otelzap.Logger, tracer trace.Tracer) *ClientFactory {
	return &ClientFactory{timeout: timeout, logger: logger, tracer: tracer}
}

// NewClient implements Factory.
func (f *ClientFactory) NewClient(settings shipment.StoreSettings) (APIClient, error) {
	var apiClient APIClient

	if settings.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		if settings.Endpoint == "" || settings.Username == "" {
			return nil, fmt.Errorf("store %d: endpoint and credentials are required", settings.StoreID)
		}
		apiClient = NewSOAPAPIClient(SOAPAPIClientConfig{
			Endpoint: settings.Endpoint,
			Username: settings.Username,
			Password: settings.Password,
			Timeout:  f.timeout,
		})
	}

	return NewWithAPIClient(settings.StoreID, apiClient, f.logger, f.tracer), nil
}
