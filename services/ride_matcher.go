package services

import (
	"context"
	"log"

	"groupride-api/models"
)

// Uploads scoring below this are not matched to any ride.
const AutoMatchThreshold = 0.7

// TrackLoader resolves a stored track file into a parsed track.
type TrackLoader interface {
	LoadTrack(ctx context.Context, key string) (*models.Track, error)
}

type RideMatcher struct {
	loader    TrackLoader
	threshold float64
}

func NewRideMatcher(loader TrackLoader) *RideMatcher {
	return &RideMatcher{loader: loader, threshold: AutoMatchThreshold}
}

// MatchUpload picks the planned ride that best matches an uploaded activity.
// Only candidates scheduled on the same calendar day as the upload's start
// (in the candidate's own time zone) are scored. The highest score at or above
// the threshold wins; on equal scores the earlier candidate is kept. Returns
// nil when nothing qualifies.
func (m *RideMatcher) MatchUpload(ctx context.Context, uploaded *models.Track, candidates []models.CandidateRide) *models.MatchCandidate {
	if uploaded == nil || uploaded.StartTime == nil {
		return nil
	}

	var (
		best      *models.CandidateRide
		bestScore float64
	)
	for i := range candidates {
		candidate := &candidates[i]
		if !sameCalendarDay(*uploaded, candidate) {
			continue
		}

		planned, err := m.loader.LoadTrack(ctx, candidate.TrackFileKey)
		if err != nil {
			log.Printf("Skipping ride %s in auto-match: %v", candidate.ID, err)
			continue
		}

		score := RouteSimilarity(uploaded, planned)
		if score < m.threshold {
			continue
		}
		if best == nil || score > bestScore {
			best = candidate
			bestScore = score
		}
	}

	if best == nil {
		return nil
	}
	return &models.MatchCandidate{
		RideID:        best.ID,
		MatchScorePct: bestScore * 100,
		RideName:      best.Name,
	}
}

func sameCalendarDay(uploaded models.Track, candidate *models.CandidateRide) bool {
	start := uploaded.StartTime.In(candidate.ScheduledAt.Location())
	y1, m1, d1 := start.Date()
	y2, m2, d2 := candidate.ScheduledAt.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
