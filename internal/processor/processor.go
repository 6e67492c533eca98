// Package processor holds the response processors run after each gateway
// batch: track persistence and status events.
package processor

import (
	"context"
	"fmt"

	"github.com/tournevent/labelbridge/internal/events"
	"github.com/tournevent/labelbridge/internal/store"
	"github.com/tournevent/labelbridge/pkg/shipment"
)

// Tracks persists created labels and flags cancelled ones.
type Tracks struct {
	store store.TrackStore
}

func NewTracks(s store.TrackStore) *Tracks {
	return &Tracks{store: s}
}

func (p *Tracks) Name() string { return "tracks" }

func (p *Tracks) OnCreateResponse(ctx context.Context, storeID int, labels []shipment.LabelResponse, errs []shipment.ErrorResponse) error {
	if len(labels) == 0 {
		return nil
	}
	tracks := make([]store.Track, 0, len(labels))
	for _, label := range labels {
		tracks = append(tracks, store.Track{
			StoreID:           storeID,
			TrackNumber:       label.TrackingNumber,
			ReturnTrackNumber: label.ReturnTrackingNumber,
			OrderRef:          label.OrderRef,
			ShipmentRef:       label.ShipmentRef,
			Status:            store.StatusCreated,
		})
	}
	if err := p.store.SaveTracks(ctx, tracks); err != nil {
		return fmt.Errorf("save tracks of store %d: %w", storeID, err)
	}
	return nil
}

func (p *Tracks) OnCancelResponse(ctx context.Context, storeID int, tracks []shipment.TrackResponse, errs []shipment.ErrorResponse) error {
	if len(tracks) == 0 {
		return nil
	}
	numbers := make([]string, 0, len(tracks))
	for _, track := range tracks {
		numbers = append(numbers, track.TrackNumber)
	}
	if err := p.store.MarkCancelled(ctx, storeID, numbers); err != nil {
		return fmt.Errorf("cancel tracks of store %d: %w", storeID, err)
	}
	return nil
}

// Events publishes one status event per batch item.
type Events struct {
	publisher events.Publisher
}

func NewEvents(p events.Publisher) *Events {
	return &Events{publisher: p}
}

func (p *Events) Name() string { return "events" }

func (p *Events) OnCreateResponse(ctx context.Context, storeID int, labels []shipment.LabelResponse, errs []shipment.ErrorResponse) error {
	out := make([]events.StatusEvent, 0, len(labels)+len(errs))
	for _, e := range errs {
		out = append(out, failureEvent(events.LabelFailed, storeID, e))
	}
	for _, label := range labels {
		ev := events.NewStatusEvent(events.LabelCreated, storeID, label.RequestIndex)
		ev.OrderRef = label.OrderRef
		ev.ShipmentRef = label.ShipmentRef
		ev.TrackNumber = label.TrackingNumber
		out = append(out, ev)
	}
	return p.publisher.Publish(ctx, out...)
}

func (p *Events) OnCancelResponse(ctx context.Context, storeID int, tracks []shipment.TrackResponse, errs []shipment.ErrorResponse) error {
	out := make([]events.StatusEvent, 0, len(tracks)+len(errs))
	for _, e := range errs {
		out = append(out, failureEvent(events.CancellationFailed, storeID, e))
	}
	for _, track := range tracks {
		ev := events.NewStatusEvent(events.LabelCancelled, storeID, track.RequestIndex)
		ev.ShipmentRef = track.ShipmentRef
		ev.TrackNumber = track.TrackNumber
		out = append(out, ev)
	}
	return p.publisher.Publish(ctx, out...)
}

func failureEvent(eventType string, storeID int, e shipment.ErrorResponse) events.StatusEvent {
	ev := events.NewStatusEvent(eventType, storeID, e.RequestIndex)
	ev.OrderRef = e.OrderRef
	ev.ShipmentRef = e.ShipmentRef
	ev.Message = e.Message
	return ev
}
