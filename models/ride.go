// File: /models/ride.go
package models

import (
	"time"
)

// GroupRide is owned by the ride planning side of the platform; this service
// only reads it.
type GroupRide struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	OrganizerID  string    `json:"organizer_id" gorm:"not null"`
	Name         string    `json:"name" gorm:"not null"`
	ScheduledAt  time.Time `json:"scheduled_at" gorm:"not null;index"`
	TrackFileKey string    `json:"track_file_key"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (r GroupRide) Candidate() CandidateRide {
	return CandidateRide{
		ID:           r.ID,
		Name:         r.Name,
		ScheduledAt:  r.ScheduledAt,
		TrackFileKey: r.TrackFileKey,
	}
}

// Verification statuses for a ride participant
const (
	VerificationPending      = "pending"
	VerificationCompleted    = "completed"
	VerificationNotCompleted = "not_completed"
	VerificationFailed       = "failed"
)

type RideParticipant struct {
	ID                   uint            `json:"id" gorm:"primaryKey"`
	RideID               string          `json:"ride_id" gorm:"not null;size:64;uniqueIndex:idx_ride_participant"`
	UserID               string          `json:"user_id" gorm:"not null;size:64;uniqueIndex:idx_ride_participant"`
	Email                string          `json:"-"`
	TrackFileKey         string          `json:"track_file_key"`
	Status               string          `json:"status" gorm:"default:pending;index"`
	MatchedPoints        int             `json:"matched_points"`
	TotalOrganizerPoints int             `json:"total_organizer_points"`
	ProximityScorePct    float64         `json:"proximity_score_pct"`
	MatchedSegments      MatchedSegments `json:"matched_segments" gorm:"type:json"`
	FailureReason        string          `json:"failure_reason,omitempty"`
	VerifiedAt           *time.Time      `json:"verified_at"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`

	Ride GroupRide `json:"-" gorm:"foreignKey:RideID"`
}

// ApplyResult copies a proximity verdict onto the participant.
func (p *RideParticipant) ApplyResult(result ProximityResult, at time.Time) {
	p.MatchedPoints = result.MatchedPoints
	p.TotalOrganizerPoints = result.TotalOrganizerPoints
	p.ProximityScorePct = result.ProximityScorePct
	p.MatchedSegments = MatchedSegments(result.MatchedSegments)
	p.FailureReason = ""
	p.VerifiedAt = &at
	if result.IsCompleted {
		p.Status = VerificationCompleted
	} else {
		p.Status = VerificationNotCompleted
	}
}

type ActivityUpload struct {
	ID                  string     `json:"id" gorm:"primaryKey"`
	UserID              string     `json:"user_id" gorm:"not null;size:64;uniqueIndex:idx_uploads_user_hash"`
	ContentHash         string     `json:"content_hash" gorm:"not null;size:64;uniqueIndex:idx_uploads_user_hash"`
	TrackFileKey        string     `json:"track_file_key" gorm:"not null"`
	Name                string     `json:"name"`
	PointCount          int        `json:"point_count"`
	StartTime           *time.Time `json:"start_time"`
	DistanceKm          *float64   `json:"distance_km"`
	MovingTimeSec       *int       `json:"moving_time_sec"`
	ElevationGainM      *float64   `json:"elevation_gain_m"`
	AverageSpeedKmh     *float64   `json:"average_speed_kmh"`
	AverageHeartRateBpm *int       `json:"average_heart_rate_bpm"`
	MatchedRideID       *string    `json:"matched_ride_id"`
	MatchScorePct       *float64   `json:"match_score_pct"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}
