package services

import (
	"context"
	"fmt"

	"groupride-api/models"
	"groupride-api/storage"
)

// StoreTrackLoader parses track files fetched from a TrackStore.
type StoreTrackLoader struct {
	store storage.TrackStore
}

func NewStoreTrackLoader(store storage.TrackStore) *StoreTrackLoader {
	return &StoreTrackLoader{store: store}
}

func (l *StoreTrackLoader) LoadTrack(ctx context.Context, key string) (*models.Track, error) {
	if key == "" {
		return nil, ErrTrackNotFound
	}
	data, err := l.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load track %s: %w", key, err)
	}
	track, err := ParseTrack(data)
	if err != nil {
		return nil, fmt.Errorf("load track %s: %w", key, err)
	}
	return track, nil
}
