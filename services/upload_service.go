package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"groupride-api/models"
	"groupride-api/repositories"
	"groupride-api/storage"
)

// UploadStore persists activity uploads.
type UploadStore interface {
	FindUploadByHash(ctx context.Context, userID, hash string) (*models.ActivityUpload, error)
	CreateUpload(ctx context.Context, upload *models.ActivityUpload) error
	ListUploads(ctx context.Context, userID string, offset, limit int) ([]models.ActivityUpload, int64, error)
}

type UploadService struct {
	uploads UploadStore
	rides   RideStore
	store   storage.TrackStore
	matcher *RideMatcher
	window  time.Duration
}

// NewUploadService builds the upload flow. window bounds the scheduled times,
// either side of the upload's start, of rides considered for auto-matching.
func NewUploadService(uploads UploadStore, rides RideStore, store storage.TrackStore, matcher *RideMatcher, window time.Duration) *UploadService {
	return &UploadService{
		uploads: uploads,
		rides:   rides,
		store:   store,
		matcher: matcher,
		window:  window,
	}
}

// Upload stores an activity and tries to match it to a planned ride.
// Re-uploading identical content returns the earlier upload with duplicate set.
func (s *UploadService) Upload(ctx context.Context, userID string, raw []byte) (upload *models.ActivityUpload, duplicate bool, err error) {
	hash := storage.ContentHash(raw)

	existing, err := s.uploads.FindUploadByHash(ctx, userID, hash)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to look up upload: %w", err)
	}

	track, err := ParseTrack(raw)
	if err != nil {
		return nil, false, err
	}

	key := storage.TrackKey("uploads", hash)
	if err := s.store.Put(ctx, key, raw); err != nil {
		return nil, false, err
	}

	upload = &models.ActivityUpload{
		ID:                  uuid.New().String(),
		UserID:              userID,
		ContentHash:         hash,
		TrackFileKey:        key,
		Name:                track.Name,
		PointCount:          len(track.Points),
		StartTime:           track.StartTime,
		DistanceKm:          track.DistanceKm,
		MovingTimeSec:       track.MovingTimeSec,
		ElevationGainM:      track.ElevationGainM,
		AverageSpeedKmh:     track.AverageSpeedKmh,
		AverageHeartRateBpm: track.AverageHeartRateBpm,
	}

	if match := s.autoMatch(ctx, track); match != nil {
		upload.MatchedRideID = &match.RideID
		upload.MatchScorePct = &match.MatchScorePct
	}

	err = s.uploads.CreateUpload(ctx, upload)
	if errors.Is(err, repositories.ErrDuplicate) {
		// A concurrent upload of the same content won the insert
		existing, err := s.uploads.FindUploadByHash(ctx, userID, hash)
		if err != nil {
			return nil, false, fmt.Errorf("failed to look up upload: %w", err)
		}
		return existing, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to save upload: %w", err)
	}
	return upload, false, nil
}

func (s *UploadService) ListUploads(ctx context.Context, userID string, page, limit int) ([]models.ActivityUpload, int64, error) {
	return s.uploads.ListUploads(ctx, userID, (page-1)*limit, limit)
}

// autoMatch is best effort: lookup failures leave the upload unmatched.
func (s *UploadService) autoMatch(ctx context.Context, track *models.Track) *models.MatchCandidate {
	if track.StartTime == nil {
		return nil
	}
	start := *track.StartTime
	rides, err := s.rides.FindRidesScheduledBetween(ctx, start.Add(-s.window), start.Add(s.window))
	if err != nil {
		log.Printf("Auto-match ride lookup failed: %v", err)
		return nil
	}

	candidates := make([]models.CandidateRide, 0, len(rides))
	for _, ride := range rides {
		candidates = append(candidates, ride.Candidate())
	}
	return s.matcher.MatchUpload(ctx, track, candidates)
}
