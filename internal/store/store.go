// Package store persists the tracking numbers of created and cancelled labels.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrTrackNotFound is returned when a tracking number is unknown.
var ErrTrackNotFound = errors.New("track not found")

// Track statuses.
const (
	StatusCreated   = "created"
	StatusCancelled = "cancelled"
)

// Track is the persisted record of one label.
type Track struct {
	StoreID           int
	TrackNumber       string
	ReturnTrackNumber string
	OrderRef          string
	ShipmentRef       string
	Status            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TrackStore defines persistence for label tracking numbers.
type TrackStore interface {
	// SaveTracks inserts tracks or replaces existing ones with the same
	// store id and tracking number.
	SaveTracks(ctx context.Context, tracks []Track) error
	// MarkCancelled flags the given tracking numbers of a store as cancelled.
	// Unknown numbers are ignored.
	MarkCancelled(ctx context.Context, storeID int, trackNumbers []string) error
	GetTrack(ctx context.Context, storeID int, trackNumber string) (*Track, error)
	Close() error
}
