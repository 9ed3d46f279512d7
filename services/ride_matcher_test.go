package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupride-api/models"
)

func TestRideMatcherMatchUpload(t *testing.T) {
	ctx := context.Background()
	uploaded := straightTrack(30, 46, 7, 300, rideStart.Add(time.Hour), time.Minute)
	sameRoute := straightTrack(30, 46, 7, 300, rideStart, time.Minute)
	otherRoute := straightTrack(30, 47, 8, 300, rideStart, time.Minute)
	shorter := straightTrack(15, 46, 7, 300, rideStart, time.Minute)

	loader := mapLoader{
		"same":    sameRoute,
		"other":   otherRoute,
		"shorter": shorter,
		"broken":  nil,
	}
	matcher := NewRideMatcher(loader)

	sameDay := rideStart.Add(-2 * time.Hour)
	nextDay := rideStart.Add(24 * time.Hour)

	t.Run("matches ride on the same day", func(t *testing.T) {
		match := matcher.MatchUpload(ctx, uploaded, []models.CandidateRide{
			{ID: "ride-other", ScheduledAt: sameDay, TrackFileKey: "other"},
			{ID: "ride-same", Name: "Lake loop", ScheduledAt: sameDay, TrackFileKey: "same"},
		})
		require.NotNil(t, match)
		assert.Equal(t, "ride-same", match.RideID)
		assert.Equal(t, "Lake loop", match.RideName)
		assert.InDelta(t, 100.0, match.MatchScorePct, 1e-9)
	})

	t.Run("ignores rides on other days", func(t *testing.T) {
		match := matcher.MatchUpload(ctx, uploaded, []models.CandidateRide{
			{ID: "ride-tomorrow", ScheduledAt: nextDay, TrackFileKey: "same"},
		})
		assert.Nil(t, match)
	})

	t.Run("higher score wins over earlier candidate", func(t *testing.T) {
		match := matcher.MatchUpload(ctx, uploaded, []models.CandidateRide{
			{ID: "ride-shorter", ScheduledAt: sameDay, TrackFileKey: "shorter"},
			{ID: "ride-same", ScheduledAt: sameDay, TrackFileKey: "same"},
		})
		require.NotNil(t, match)
		assert.Equal(t, "ride-same", match.RideID)
	})

	t.Run("first candidate kept on tie", func(t *testing.T) {
		match := matcher.MatchUpload(ctx, uploaded, []models.CandidateRide{
			{ID: "ride-a", ScheduledAt: sameDay, TrackFileKey: "same"},
			{ID: "ride-b", ScheduledAt: sameDay, TrackFileKey: "same"},
		})
		require.NotNil(t, match)
		assert.Equal(t, "ride-a", match.RideID)
	})

	t.Run("below threshold", func(t *testing.T) {
		match := matcher.MatchUpload(ctx, uploaded, []models.CandidateRide{
			{ID: "ride-other", ScheduledAt: sameDay, TrackFileKey: "other"},
		})
		assert.Nil(t, match)
	})

	t.Run("skips candidates that fail to load", func(t *testing.T) {
		match := matcher.MatchUpload(ctx, uploaded, []models.CandidateRide{
			{ID: "ride-broken", ScheduledAt: sameDay, TrackFileKey: "broken"},
			{ID: "ride-missing", ScheduledAt: sameDay, TrackFileKey: "missing"},
			{ID: "ride-same", ScheduledAt: sameDay, TrackFileKey: "same"},
		})
		require.NotNil(t, match)
		assert.Equal(t, "ride-same", match.RideID)
	})

	t.Run("no candidates", func(t *testing.T) {
		assert.Nil(t, matcher.MatchUpload(ctx, uploaded, nil))
	})
}

func TestRideMatcherUsesRideTimeZone(t *testing.T) {
	ctx := context.Background()
	pacific := time.FixedZone("PDT", -7*60*60)

	// 02:00 UTC on 1 May is still 30 April in the ride's zone.
	uploadStart := time.Date(2024, 5, 1, 2, 0, 0, 0, time.UTC)
	uploaded := straightTrack(10, 46, 7, 300, uploadStart, time.Minute)
	planned := straightTrack(10, 46, 7, 300, uploadStart, time.Minute)
	matcher := NewRideMatcher(mapLoader{"planned": planned})

	match := matcher.MatchUpload(ctx, uploaded, []models.CandidateRide{
		{ID: "evening-ride", ScheduledAt: time.Date(2024, 4, 30, 18, 0, 0, 0, pacific), TrackFileKey: "planned"},
	})
	require.NotNil(t, match)
	assert.Equal(t, "evening-ride", match.RideID)

	match = matcher.MatchUpload(ctx, uploaded, []models.CandidateRide{
		{ID: "next-morning", ScheduledAt: time.Date(2024, 5, 1, 8, 0, 0, 0, pacific), TrackFileKey: "planned"},
	})
	assert.Nil(t, match)
}

func TestRideMatcherRequiresStartTime(t *testing.T) {
	untimed := &models.Track{Points: []models.TrackPoint{{Latitude: 46, Longitude: 7}, {Latitude: 46.1, Longitude: 7}}}
	ComputeTrackMetrics(untimed)
	matcher := NewRideMatcher(mapLoader{"planned": untimed})

	match := matcher.MatchUpload(context.Background(), untimed, []models.CandidateRide{
		{ID: "ride", ScheduledAt: rideStart, TrackFileKey: "planned"},
	})
	assert.Nil(t, match)
}
