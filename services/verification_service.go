package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"groupride-api/models"
	"groupride-api/repositories"
	"groupride-api/storage"
)

var (
	ErrRideNotFound        = errors.New("ride not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrTrackNotFound       = errors.New("track not found")
	ErrForbidden           = errors.New("not allowed to access this participant")
)

// RideStore is the persistence the verification and upload flows need.
type RideStore interface {
	GetRide(ctx context.Context, rideID string) (*models.GroupRide, error)
	FindRidesScheduledBetween(ctx context.Context, from, to time.Time) ([]models.GroupRide, error)
	GetParticipant(ctx context.Context, rideID, userID string) (*models.RideParticipant, error)
	SaveParticipant(ctx context.Context, participant *models.RideParticipant) error
	ListPendingParticipants(ctx context.Context, limit int) ([]models.RideParticipant, error)
}

type VerificationService struct {
	rides    RideStore
	store    storage.TrackStore
	loader   TrackLoader
	notifier Notifier
	config   models.ProximityConfig
	now      func() time.Time
}

// NewVerificationService wires the verification flow. notifier may be nil.
func NewVerificationService(rides RideStore, store storage.TrackStore, loader TrackLoader, notifier Notifier, cfg models.ProximityConfig) *VerificationService {
	return &VerificationService{
		rides:    rides,
		store:    store,
		loader:   loader,
		notifier: notifier,
		config:   cfg,
		now:      time.Now,
	}
}

// SubmitParticipantTrack stores a participant's track for a ride and verifies
// it against the organizer's track straight away.
func (s *VerificationService) SubmitParticipantTrack(ctx context.Context, rideID, userID, email string, raw []byte) (*models.RideParticipant, error) {
	ride, err := s.getRide(ctx, rideID)
	if err != nil {
		return nil, err
	}

	track, err := ParseTrack(raw)
	if err != nil {
		return nil, err
	}

	key := storage.TrackKey("participants", storage.ContentHash(raw))
	if err := s.store.Put(ctx, key, raw); err != nil {
		return nil, err
	}

	participant, err := s.rides.GetParticipant(ctx, rideID, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		participant = &models.RideParticipant{RideID: rideID, UserID: userID}
	} else if err != nil {
		return nil, err
	}
	participant.TrackFileKey = key
	participant.Status = models.VerificationPending
	if email != "" {
		participant.Email = email
	}

	if err := s.verify(ctx, ride, participant, track); err != nil {
		return participant, err
	}
	return participant, nil
}

// VerifyParticipant re-runs verification for a participant's stored track.
// Only the participant and the ride's organizer may do so.
func (s *VerificationService) VerifyParticipant(ctx context.Context, rideID, userID, callerID string) (*models.RideParticipant, error) {
	ride, err := s.authorizedRide(ctx, rideID, userID, callerID)
	if err != nil {
		return nil, err
	}
	participant, err := s.getParticipant(ctx, rideID, userID)
	if err != nil {
		return nil, err
	}
	return participant, s.verifyStored(ctx, ride, participant)
}

// GetVerification returns the stored verdict for a participant to the
// participant or the ride's organizer.
func (s *VerificationService) GetVerification(ctx context.Context, rideID, userID, callerID string) (*models.RideParticipant, error) {
	if _, err := s.authorizedRide(ctx, rideID, userID, callerID); err != nil {
		return nil, err
	}
	return s.getParticipant(ctx, rideID, userID)
}

func (s *VerificationService) authorizedRide(ctx context.Context, rideID, userID, callerID string) (*models.GroupRide, error) {
	ride, err := s.getRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if callerID == "" || (callerID != userID && callerID != ride.OrganizerID) {
		return nil, ErrForbidden
	}
	return ride, nil
}

// VerifyPending verifies up to limit pending participants, running at most
// workers verifications at once. Individual failures are recorded on the
// participant and do not stop the batch. Returns how many were processed.
func (s *VerificationService) VerifyPending(ctx context.Context, limit, workers int) (int, error) {
	pending, err := s.rides.ListPendingParticipants(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending participants: %w", err)
	}

	var processed int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range pending {
		participant := &pending[i]
		g.Go(func() error {
			ride, err := s.getRide(gctx, participant.RideID)
			if err != nil {
				s.markFailed(gctx, participant, err)
			} else if err := s.verifyStored(gctx, ride, participant); err != nil {
				log.Printf("Verification of user %s on ride %s failed: %v", participant.UserID, participant.RideID, err)
			}
			atomic.AddInt64(&processed, 1)
			return nil
		})
	}
	err = g.Wait()
	return int(processed), err
}

func (s *VerificationService) verifyStored(ctx context.Context, ride *models.GroupRide, participant *models.RideParticipant) error {
	track, err := s.loader.LoadTrack(ctx, participant.TrackFileKey)
	if err != nil {
		s.markFailed(ctx, participant, err)
		return err
	}
	return s.verify(ctx, ride, participant, track)
}

func (s *VerificationService) verify(ctx context.Context, ride *models.GroupRide, participant *models.RideParticipant, track *models.Track) error {
	organizer, err := s.loader.LoadTrack(ctx, ride.TrackFileKey)
	if err != nil {
		err = fmt.Errorf("organizer track: %w", err)
		s.markFailed(ctx, participant, err)
		return err
	}

	wasCompleted := participant.Status == models.VerificationCompleted
	result := CheckProximity(organizer, track, s.config)
	participant.ApplyResult(result, s.now())

	if err := s.rides.SaveParticipant(ctx, participant); err != nil {
		return fmt.Errorf("failed to save verification: %w", err)
	}

	if result.IsCompleted && !wasCompleted && s.notifier != nil {
		if err := s.notifier.NotifyRideCompleted(ctx, participant, ride); err != nil {
			log.Printf("Completion notification for user %s failed: %v", participant.UserID, err)
		}
	}
	return nil
}

func (s *VerificationService) markFailed(ctx context.Context, participant *models.RideParticipant, cause error) {
	participant.Status = models.VerificationFailed
	participant.FailureReason = cause.Error()
	if err := s.rides.SaveParticipant(ctx, participant); err != nil {
		log.Printf("Failed to record verification failure for user %s: %v", participant.UserID, err)
	}
}

func (s *VerificationService) getRide(ctx context.Context, rideID string) (*models.GroupRide, error) {
	ride, err := s.rides.GetRide(ctx, rideID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrRideNotFound
	}
	return ride, err
}

func (s *VerificationService) getParticipant(ctx context.Context, rideID, userID string) (*models.RideParticipant, error) {
	participant, err := s.rides.GetParticipant(ctx, rideID, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrParticipantNotFound
	}
	return participant, err
}
