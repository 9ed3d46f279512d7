package services

import (
	"math"

	"groupride-api/models"
	"groupride-api/utils"
)

// Route similarity weights and radii.
const (
	similarityDistanceWeight = 0.6
	similarityWaypointWeight = 0.4

	// Distance ratios above this count as identical length.
	nearIdenticalDistanceRatio = 0.95

	waypointNearRadiusM = 200.0
	waypointFarRadiusM  = 2000.0

	sameAreaRadiusM = 50.0
	sameAreaBonus   = 0.1
)

// RouteSimilarity scores how alike two whole tracks are, from their total
// distance and the proximity of their start and end points. The result is in
// [0,1]; tracks without a positioned point score 0.
func RouteSimilarity(a, b *models.Track) float64 {
	if a == nil || b == nil {
		return 0
	}
	startA, endA, okA := endpoints(a.Points)
	startB, endB, okB := endpoints(b.Points)
	if !okA || !okB {
		return 0
	}

	distScore := distanceScore(trackDistance(a), trackDistance(b))

	startM := utils.DistanceMeters(startA.Latitude, startA.Longitude, startB.Latitude, startB.Longitude)
	endM := utils.DistanceMeters(endA.Latitude, endA.Longitude, endB.Latitude, endB.Longitude)
	waypointScore := (waypointProximity(startM) + waypointProximity(endM)) / 2

	score := distScore*similarityDistanceWeight + waypointScore*similarityWaypointWeight
	if startM <= sameAreaRadiusM {
		score += sameAreaBonus
	}

	if math.IsNaN(score) {
		return 0
	}
	return math.Max(0, math.Min(1, score))
}

// trackDistance prefers the parsed distance and falls back to the points.
func trackDistance(t *models.Track) float64 {
	if t.DistanceKm != nil {
		return *t.DistanceKm
	}
	return trackDistanceKm(t.Points)
}

func distanceScore(distA, distB float64) float64 {
	longer := math.Max(distA, distB)
	shorter := math.Min(distA, distB)
	if longer <= 0 {
		return 1
	}
	ratio := shorter / longer
	if ratio > nearIdenticalDistanceRatio {
		return 1
	}
	return ratio
}

func waypointProximity(distanceM float64) float64 {
	if distanceM <= waypointNearRadiusM {
		return 1
	}
	return math.Max(0, 1-distanceM/waypointFarRadiusM)
}

// endpoints returns the first and last points that carry a position.
func endpoints(points []models.TrackPoint) (first, last models.TrackPoint, ok bool) {
	firstIdx := -1
	for i, p := range points {
		if p.HasPosition() {
			firstIdx = i
			break
		}
	}
	if firstIdx < 0 {
		return first, last, false
	}
	for i := len(points) - 1; i >= firstIdx; i-- {
		if points[i].HasPosition() {
			return points[firstIdx], points[i], true
		}
	}
	return first, last, false
}
