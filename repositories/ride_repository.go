package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"groupride-api/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

type RideRepository struct {
	db *gorm.DB
}

func NewRideRepository(db *gorm.DB) *RideRepository {
	return &RideRepository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func duplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// GetRide retrieves a planned ride by ID
func (r *RideRepository) GetRide(ctx context.Context, rideID string) (*models.GroupRide, error) {
	var ride models.GroupRide
	if err := r.db.WithContext(ctx).Where("id = ?", rideID).First(&ride).Error; err != nil {
		return nil, notFound(err)
	}
	return &ride, nil
}

// FindRidesScheduledBetween returns rides with a stored track scheduled in [from, to], oldest first
func (r *RideRepository) FindRidesScheduledBetween(ctx context.Context, from, to time.Time) ([]models.GroupRide, error) {
	var rides []models.GroupRide
	err := r.db.WithContext(ctx).
		Where("scheduled_at BETWEEN ? AND ?", from, to).
		Where("track_file_key <> ''").
		Order("scheduled_at ASC, id ASC").
		Find(&rides).Error
	return rides, err
}

// GetParticipant retrieves the participation of a user in a ride
func (r *RideRepository) GetParticipant(ctx context.Context, rideID, userID string) (*models.RideParticipant, error) {
	var participant models.RideParticipant
	err := r.db.WithContext(ctx).
		Where("ride_id = ? AND user_id = ?", rideID, userID).
		First(&participant).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &participant, nil
}

// SaveParticipant creates or updates a participant row
func (r *RideRepository) SaveParticipant(ctx context.Context, participant *models.RideParticipant) error {
	return r.db.WithContext(ctx).Save(participant).Error
}

// ListPendingParticipants returns participants with a track awaiting verification
func (r *RideRepository) ListPendingParticipants(ctx context.Context, limit int) ([]models.RideParticipant, error) {
	var participants []models.RideParticipant
	err := r.db.WithContext(ctx).
		Where("status = ?", models.VerificationPending).
		Where("track_file_key <> ''").
		Order("updated_at ASC").
		Limit(limit).
		Find(&participants).Error
	return participants, err
}

// FindUploadByHash finds an earlier upload of identical content by the same user
func (r *RideRepository) FindUploadByHash(ctx context.Context, userID, hash string) (*models.ActivityUpload, error) {
	var upload models.ActivityUpload
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND content_hash = ?", userID, hash).
		First(&upload).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &upload, nil
}

// CreateUpload inserts an upload. A second upload of the same content by the
// same user fails with ErrDuplicate.
func (r *RideRepository) CreateUpload(ctx context.Context, upload *models.ActivityUpload) error {
	return duplicate(r.db.WithContext(ctx).Create(upload).Error)
}

// ListUploads returns a page of a user's uploads, newest first, with the total count
func (r *RideRepository) ListUploads(ctx context.Context, userID string, offset, limit int) ([]models.ActivityUpload, int64, error) {
	var (
		uploads []models.ActivityUpload
		total   int64
	)
	if err := r.db.WithContext(ctx).Model(&models.ActivityUpload{}).
		Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&uploads).Error; err != nil {
		return nil, 0, err
	}
	return uploads, total, nil
}
