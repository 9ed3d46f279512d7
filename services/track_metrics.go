package services

import (
	"math"
	"time"

	"groupride-api/models"
	"groupride-api/utils"
)

// Segments slower than this are treated as stationary.
const movingSpeedThresholdKmh = 0.5

// ComputeTrackMetrics fills the derived fields of track from its points.
// Metrics the points cannot support stay nil.
func ComputeTrackMetrics(track *models.Track) {
	points := track.Points

	track.DistanceKm = nil
	track.TotalDurationSec = nil
	track.MovingTimeSec = nil
	track.ElevationGainM = nil
	track.AverageSpeedKmh = nil
	track.AverageHeartRateBpm = nil
	track.MaxHeartRateBpm = nil
	track.StartTime = nil

	if len(points) == 0 {
		return
	}

	distance := trackDistanceKm(points)
	track.DistanceKm = &distance

	if gain, ok := elevationGain(points); ok {
		track.ElevationGainM = &gain
	}

	var (
		minTime, maxTime time.Time
		timed            int
	)
	for _, p := range points {
		if p.Time == nil {
			continue
		}
		if timed == 0 || p.Time.Before(minTime) {
			minTime = *p.Time
		}
		if timed == 0 || p.Time.After(maxTime) {
			maxTime = *p.Time
		}
		timed++
	}
	if timed > 0 {
		start := minTime
		track.StartTime = &start
	}

	if timed >= 2 {
		duration := int(maxTime.Sub(minTime).Seconds())
		track.TotalDurationSec = &duration

		moving := movingTime(points)
		movingSec := int(moving.Seconds())
		track.MovingTimeSec = &movingSec

		if distance > 0 && movingSec > 0 {
			speed := distance / (float64(movingSec) / 3600)
			track.AverageSpeedKmh = &speed
		}
	}

	if avg, peak, ok := heartRateStats(points); ok {
		track.AverageHeartRateBpm = &avg
		track.MaxHeartRateBpm = &peak
	}
}

// trackDistanceKm sums consecutive segments in point order. A segment with an
// invalid endpoint is skipped, not bridged.
func trackDistanceKm(points []models.TrackPoint) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		if !prev.HasPosition() || !cur.HasPosition() {
			continue
		}
		total += utils.DistanceKm(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude)
	}
	return total
}

// elevationGain sums positive deltas against the previous known elevation.
func elevationGain(points []models.TrackPoint) (float64, bool) {
	var (
		gain    float64
		prevEle *float64
	)
	for _, p := range points {
		if p.Elevation == nil {
			continue
		}
		if prevEle != nil && *p.Elevation > *prevEle {
			gain += *p.Elevation - *prevEle
		}
		prevEle = p.Elevation
	}
	return gain, prevEle != nil
}

func movingTime(points []models.TrackPoint) time.Duration {
	var total time.Duration
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		if prev.Time == nil || cur.Time == nil || !prev.HasPosition() || !cur.HasPosition() {
			continue
		}
		dt := cur.Time.Sub(*prev.Time)
		if dt <= 0 {
			continue
		}
		km := utils.DistanceKm(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude)
		if km/dt.Hours() > movingSpeedThresholdKmh {
			total += dt
		}
	}
	return total
}

func heartRateStats(points []models.TrackPoint) (avg int, peak int, ok bool) {
	var sum, count int
	for _, p := range points {
		if p.HeartRate == nil {
			continue
		}
		sum += *p.HeartRate
		if count == 0 || *p.HeartRate > peak {
			peak = *p.HeartRate
		}
		count++
	}
	if count == 0 {
		return 0, 0, false
	}
	return int(math.Round(float64(sum) / float64(count))), peak, true
}
