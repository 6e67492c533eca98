package processor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/labelbridge/internal/events"
	"github.com/tournevent/labelbridge/internal/processor"
	"github.com/tournevent/labelbridge/internal/store"
	"github.com/tournevent/labelbridge/pkg/shipment"
)

type recordingPublisher struct {
	events []events.StatusEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, evs ...events.StatusEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evs...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestTracks_CreateThenCancel(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	p := processor.NewTracks(s)

	err := p.OnCreateResponse(ctx, 3, []shipment.LabelResponse{
		{RequestIndex: "0", OrderRef: "100000001", ShipmentRef: "S-1", TrackingNumber: "111", ReturnTrackingNumber: "r-111"},
		{RequestIndex: "1", OrderRef: "100000002", ShipmentRef: "S-2", TrackingNumber: "222"},
	}, []shipment.ErrorResponse{{RequestIndex: "2", Message: "failed"}})
	require.NoError(t, err)

	track, err := s.GetTrack(ctx, 3, "111")
	require.NoError(t, err)
	assert.Equal(t, "100000001", track.OrderRef)
	assert.Equal(t, "r-111", track.ReturnTrackNumber)
	assert.Equal(t, store.StatusCreated, track.Status)

	err = p.OnCancelResponse(ctx, 3, []shipment.TrackResponse{{RequestIndex: "0", TrackNumber: "111"}}, nil)
	require.NoError(t, err)

	track, err = s.GetTrack(ctx, 3, "111")
	require.NoError(t, err)
	assert.Equal(t, store.StatusCancelled, track.Status)

	track, err = s.GetTrack(ctx, 3, "222")
	require.NoError(t, err)
	assert.Equal(t, store.StatusCreated, track.Status)
}

func TestTracks_StoreFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := processor.NewTracks(store.NewMemoryStore())
	err := p.OnCreateResponse(ctx, 1, []shipment.LabelResponse{{TrackingNumber: "111"}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvents_OnCreateResponse(t *testing.T) {
	pub := &recordingPublisher{}
	p := processor.NewEvents(pub)

	err := p.OnCreateResponse(context.Background(), 1,
		[]shipment.LabelResponse{{RequestIndex: "0", OrderRef: "100000001", TrackingNumber: "111"}},
		[]shipment.ErrorResponse{{RequestIndex: "1", OrderRef: "100000002", Message: "The receiver city is required."}},
	)
	require.NoError(t, err)
	require.Len(t, pub.events, 2)

	assert.Equal(t, events.LabelFailed, pub.events[0].Type)
	assert.Equal(t, "1", pub.events[0].RequestIndex)
	assert.Equal(t, "The receiver city is required.", pub.events[0].Message)

	assert.Equal(t, events.LabelCreated, pub.events[1].Type)
	assert.Equal(t, 1, pub.events[1].StoreID)
	assert.Equal(t, "111", pub.events[1].TrackNumber)
	assert.NotEmpty(t, pub.events[1].ID)
}

func TestEvents_OnCancelResponse(t *testing.T) {
	pub := &recordingPublisher{}
	p := processor.NewEvents(pub)

	err := p.OnCancelResponse(context.Background(), 2,
		[]shipment.TrackResponse{{RequestIndex: "0", TrackNumber: "111"}},
		[]shipment.ErrorResponse{{RequestIndex: "1", Message: "Shipment 222 could not be cancelled."}},
	)
	require.NoError(t, err)
	require.Len(t, pub.events, 2)
	assert.Equal(t, events.CancellationFailed, pub.events[0].Type)
	assert.Equal(t, events.LabelCancelled, pub.events[1].Type)
	assert.Equal(t, 2, pub.events[1].StoreID)
}

func TestEvents_PublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	p := processor.NewEvents(pub)

	err := p.OnCancelResponse(context.Background(), 1, []shipment.TrackResponse{{TrackNumber: "111"}}, nil)
	assert.EqualError(t, err, "broker down")
}
