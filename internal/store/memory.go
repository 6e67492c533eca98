package store

import (
	"context"
	"sync"
	"time"
)

type trackKey struct {
	storeID     int
	trackNumber string
}

// MemoryStore is a TrackStore kept in process memory.
type MemoryStore struct {
	tracks map[trackKey]Track
	mu     sync.RWMutex
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tracks: make(map[trackKey]Track),
		now:    time.Now,
	}
}

func (s *MemoryStore) SaveTracks(ctx context.Context, tracks []Track) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, track := range tracks {
		key := trackKey{track.StoreID, track.TrackNumber}
		if existing, ok := s.tracks[key]; ok {
			track.CreatedAt = existing.CreatedAt
		} else {
			track.CreatedAt = now
		}
		track.UpdatedAt = now
		s.tracks[key] = track
	}
	return nil
}

func (s *MemoryStore) MarkCancelled(ctx context.Context, storeID int, trackNumbers []string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, number := range trackNumbers {
		key := trackKey{storeID, number}
		track, ok := s.tracks[key]
		if !ok {
			continue
		}
		track.Status = StatusCancelled
		track.UpdatedAt = now
		s.tracks[key] = track
	}
	return nil
}

func (s *MemoryStore) GetTrack(ctx context.Context, storeID int, trackNumber string) (*Track, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	track, ok := s.tracks[trackKey{storeID, trackNumber}]
	if !ok {
		return nil, ErrTrackNotFound
	}
	return &track, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
