package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/tournevent/labelbridge/pkg/carrier"
	"github.com/tournevent/labelbridge/pkg/shipment"
)

// GenericFailureMessage is reported for every item of a batch whose carrier
// call failed without a carrier-provided explanation.
const GenericFailureMessage = "Web service request failed."

// DefaultTimeout bounds one carrier call.
const DefaultTimeout = 30 * time.Second

// ClientSource yields the carrier client of the current store.
type ClientSource interface {
	Client(ctx context.Context) (carrier.APIClient, error)
}

// ClientSourceFunc adapts a function to ClientSource.
type ClientSourceFunc func(ctx context.Context) (carrier.APIClient, error)

// Client implements ClientSource.
func (f ClientSourceFunc) Client(ctx context.Context) (carrier.APIClient, error) {
	return f(ctx)
}

// SendOptions controls timeouts and retries of carrier calls.
type SendOptions struct {
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
}

func (o SendOptions) timeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}

// call runs fn under the call timeout, retrying up to retries times while the
// error is retryable.
func call[T any](ctx context.Context, opts SendOptions, retries int, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for attempt := 0; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, opts.timeout())
		result, err = fn(callCtx)
		cancel()

		if err == nil || attempt >= retries || !shipment.IsRetryable(err) {
			return result, err
		}

		select {
		case <-ctx.Done():
			return result, err
		case <-time.After(opts.RetryDelay * time.Duration(attempt+1)):
		}
	}
}

// failureMessage returns the message every item of a failed batch receives.
func failureMessage(err error) string {
	var detailed *shipment.DetailedServiceError
	if errors.As(err, &detailed) {
		return detailed.Error()
	}
	return GenericFailureMessage
}

// errorType classifies a carrier failure for metrics.
func errorType(err error) string {
	var detailed *shipment.DetailedServiceError
	if errors.As(err, &detailed) {
		return "rejected"
	}
	var serviceErr *shipment.ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "unknown"
}
