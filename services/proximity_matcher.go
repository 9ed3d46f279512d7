package services

import (
	"math"
	"time"

	"groupride-api/models"
	"groupride-api/utils"
)

// CheckProximity measures how much of the organizer's timeline the participant
// was near. For each timed organizer point the participant points are scanned
// in order and the first one within the time window and radius counts as a
// match. Consecutive matches are reported as segments. cfg is used as given;
// defaults belong to the caller.
func CheckProximity(organizer, participant *models.Track, cfg models.ProximityConfig) models.ProximityResult {
	result := models.ProximityResult{MatchedSegments: []models.MatchedSegment{}}
	if organizer == nil || participant == nil {
		return result
	}

	orgPoints := timedPoints(organizer.Points)
	partPoints := timedPoints(participant.Points)
	if len(orgPoints) == 0 || len(partPoints) == 0 {
		return result
	}

	window := time.Duration(cfg.TimeWindowSec * float64(time.Second))

	var (
		segStart, segEnd time.Time
		inSegment        bool
	)
	closeSegment := func() {
		if !inSegment {
			return
		}
		result.MatchedSegments = append(result.MatchedSegments, models.MatchedSegment{
			StartTime:   segStart,
			EndTime:     segEnd,
			DurationSec: int(segEnd.Sub(segStart).Seconds()),
		})
		inSegment = false
	}

	for _, op := range orgPoints {
		if hasNearbyPoint(op, partPoints, window, cfg.ProximityRadiusM) {
			result.MatchedPoints++
			if !inSegment {
				segStart = *op.Time
				inSegment = true
			}
			segEnd = *op.Time
			continue
		}
		closeSegment()
	}
	closeSegment()

	result.TotalOrganizerPoints = len(orgPoints)
	result.ProximityScorePct = float64(result.MatchedPoints) / float64(result.TotalOrganizerPoints) * 100
	result.IsCompleted = result.ProximityScorePct >= cfg.MinMatchPercent
	return result
}

func hasNearbyPoint(op models.TrackPoint, candidates []models.TrackPoint, window time.Duration, radiusM float64) bool {
	if !op.HasPosition() {
		return false
	}
	for _, pp := range candidates {
		if !pp.HasPosition() {
			continue
		}
		dt := op.Time.Sub(*pp.Time)
		if dt < 0 {
			dt = -dt
		}
		if dt > window {
			continue
		}
		d := utils.DistanceMeters(op.Latitude, op.Longitude, pp.Latitude, pp.Longitude)
		if !math.IsNaN(d) && d <= radiusM {
			return true
		}
	}
	return false
}

func timedPoints(points []models.TrackPoint) []models.TrackPoint {
	timed := make([]models.TrackPoint, 0, len(points))
	for _, p := range points {
		if p.Time != nil {
			timed = append(timed, p)
		}
	}
	return timed
}
