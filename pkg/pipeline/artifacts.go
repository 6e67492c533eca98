package pipeline

import (
	"fmt"

	"github.com/tournevent/labelbridge/pkg/carrier"
	"github.com/tournevent/labelbridge/pkg/shipment"
)

// ItemError is a fault recorded for one batch item.
type ItemError struct {
	Message     string
	OrderRef    string
	ShipmentRef string
	TrackRef    string
}

// Artifacts accumulates the state of one pipeline run. Q is the carrier
// request type, P the carrier response type and S the success result type.
type Artifacts[Q, P any, S shipment.Response] struct {
	StoreID int

	// Indices holds the batch indices in input order.
	Indices []string

	Errors         map[string]ItemError
	APIRequests    map[string]Q
	APIResponses   map[string]P
	Successes      map[string]S
	ErrorResponses map[string]shipment.ErrorResponse
}

// CreationArtifacts is the accumulator of a label creation run.
type CreationArtifacts = Artifacts[carrier.ShipmentOrder, carrier.CreatedShipment, shipment.LabelResponse]

// CancellationArtifacts is the accumulator of a cancellation run. Requests
// and responses are shipment numbers.
type CancellationArtifacts = Artifacts[string, string, shipment.TrackResponse]

// NewArtifacts creates an empty accumulator for a store batch.
func NewArtifacts[Q, P any, S shipment.Response](storeID int) *Artifacts[Q, P, S] {
	return &Artifacts[Q, P, S]{
		StoreID:        storeID,
		Errors:         make(map[string]ItemError),
		APIRequests:    make(map[string]Q),
		APIResponses:   make(map[string]P),
		Successes:      make(map[string]S),
		ErrorResponses: make(map[string]shipment.ErrorResponse),
	}
}

// Indices returns the batch indices of items, in order.
func Indices[R any](items []Item[R]) []string {
	indices := make([]string, 0, len(items))
	for _, item := range items {
		indices = append(indices, item.Index)
	}
	return indices
}

// AddError records a fault for index. The first fault of an item wins.
func (a *Artifacts[Q, P, S]) AddError(index string, e ItemError) {
	if _, ok := a.Errors[index]; ok {
		return
	}
	a.Errors[index] = e
}

// HasError reports whether a fault was recorded for index.
func (a *Artifacts[Q, P, S]) HasError(index string) bool {
	_, ok := a.Errors[index]
	return ok
}

// Complete verifies that every batch index has exactly one outcome.
func (a *Artifacts[Q, P, S]) Complete() error {
	for _, index := range a.Indices {
		_, ok := a.Successes[index]
		_, failed := a.ErrorResponses[index]
		if ok == failed {
			return fmt.Errorf("%w: item %s has %d outcomes", shipment.ErrIncompleteRun, index, btoi(ok)+btoi(failed))
		}
	}
	return nil
}

// Results returns error results followed by success results, each group in
// batch order.
func (a *Artifacts[Q, P, S]) Results() (successes []S, failures []shipment.ErrorResponse) {
	for _, index := range a.Indices {
		if resp, ok := a.ErrorResponses[index]; ok {
			failures = append(failures, resp)
		}
	}
	for _, index := range a.Indices {
		if resp, ok := a.Successes[index]; ok {
			successes = append(successes, resp)
		}
	}
	return successes, failures
}

// Responses flattens Results into one list, errors first.
func (a *Artifacts[Q, P, S]) Responses() []shipment.Response {
	successes, failures := a.Results()
	out := make([]shipment.Response, 0, len(successes)+len(failures))
	for _, f := range failures {
		out = append(out, f)
	}
	for _, s := range successes {
		out = append(out, s)
	}
	return out
}

func errorResponse(index string, e ItemError) shipment.ErrorResponse {
	return shipment.ErrorResponse{
		RequestIndex: index,
		Message:      e.Message,
		OrderRef:     e.OrderRef,
		ShipmentRef:  e.ShipmentRef,
		TrackRef:     e.TrackRef,
	}
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
