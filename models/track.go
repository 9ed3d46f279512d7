package models

import "time"

// TrackPoint is one GPS sample. Invalid marks a point whose coordinates could
// not be read; it keeps its place in the sequence but has no position.
type TrackPoint struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Invalid   bool       `json:"invalid,omitempty"`
	Elevation *float64   `json:"elevation,omitempty"` // meters
	Time      *time.Time `json:"time,omitempty"`
	HeartRate *int       `json:"heart_rate,omitempty"` // bpm
}

// HasPosition reports whether the point carries usable coordinates.
func (p TrackPoint) HasPosition() bool {
	return !p.Invalid
}

// Track is an ordered point sequence plus summary metrics derived from it.
// A nil metric means the points cannot support it, never zero.
type Track struct {
	Name                string       `json:"name,omitempty"`
	Points              []TrackPoint `json:"points,omitempty"`
	Truncated           bool         `json:"truncated,omitempty"`
	DistanceKm          *float64     `json:"distance_km,omitempty"`
	TotalDurationSec    *int         `json:"total_duration_sec,omitempty"`
	MovingTimeSec       *int         `json:"moving_time_sec,omitempty"`
	ElevationGainM      *float64     `json:"elevation_gain_m,omitempty"`
	AverageSpeedKmh     *float64     `json:"average_speed_kmh,omitempty"`
	AverageHeartRateBpm *int         `json:"average_heart_rate_bpm,omitempty"`
	MaxHeartRateBpm     *int         `json:"max_heart_rate_bpm,omitempty"`
	StartTime           *time.Time   `json:"start_time,omitempty"`
}

// TrackSummary is a Track without its points, as returned by the API.
type TrackSummary struct {
	Name                string     `json:"name,omitempty"`
	PointCount          int        `json:"point_count"`
	Truncated           bool       `json:"truncated,omitempty"`
	DistanceKm          *float64   `json:"distance_km,omitempty"`
	TotalDurationSec    *int       `json:"total_duration_sec,omitempty"`
	MovingTimeSec       *int       `json:"moving_time_sec,omitempty"`
	ElevationGainM      *float64   `json:"elevation_gain_m,omitempty"`
	AverageSpeedKmh     *float64   `json:"average_speed_kmh,omitempty"`
	AverageHeartRateBpm *int       `json:"average_heart_rate_bpm,omitempty"`
	MaxHeartRateBpm     *int       `json:"max_heart_rate_bpm,omitempty"`
	StartTime           *time.Time `json:"start_time,omitempty"`
}

func (t *Track) Summary() TrackSummary {
	return TrackSummary{
		Name:                t.Name,
		PointCount:          len(t.Points),
		Truncated:           t.Truncated,
		DistanceKm:          t.DistanceKm,
		TotalDurationSec:    t.TotalDurationSec,
		MovingTimeSec:       t.MovingTimeSec,
		ElevationGainM:      t.ElevationGainM,
		AverageSpeedKmh:     t.AverageSpeedKmh,
		AverageHeartRateBpm: t.AverageHeartRateBpm,
		MaxHeartRateBpm:     t.MaxHeartRateBpm,
		StartTime:           t.StartTime,
	}
}

// Proximity matching defaults.
const (
	DefaultProximityRadiusM = 50.0
	DefaultTimeWindowSec    = 15.0
	DefaultMinMatchPercent  = 80.0
)

type ProximityConfig struct {
	ProximityRadiusM float64 `json:"proximity_radius_m" form:"proximity_radius_m" binding:"gte=0"`
	TimeWindowSec    float64 `json:"time_window_sec" form:"time_window_sec" binding:"gte=0"`
	MinMatchPercent  float64 `json:"min_match_percent" form:"min_match_percent" binding:"gte=0,lte=100"`
}

func DefaultProximityConfig() ProximityConfig {
	return ProximityConfig{
		ProximityRadiusM: DefaultProximityRadiusM,
		TimeWindowSec:    DefaultTimeWindowSec,
		MinMatchPercent:  DefaultMinMatchPercent,
	}
}

// MatchedSegment is a run of consecutive organizer points that were matched.
type MatchedSegment struct {
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	DurationSec int       `json:"duration_sec"`
}

type ProximityResult struct {
	MatchedPoints        int              `json:"matched_points"`
	TotalOrganizerPoints int              `json:"total_organizer_points"`
	ProximityScorePct    float64          `json:"proximity_score_pct"`
	IsCompleted          bool             `json:"is_completed"`
	MatchedSegments      []MatchedSegment `json:"matched_segments"`
}

// CandidateRide is a planned ride an upload may be matched against.
type CandidateRide struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	TrackFileKey string    `json:"track_file_key"`
}

type MatchCandidate struct {
	RideID        string  `json:"ride_id"`
	MatchScorePct float64 `json:"match_score_pct"`
	RideName      string  `json:"ride_name"`
}
