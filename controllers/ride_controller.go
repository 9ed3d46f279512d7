// File: /controllers/ride_controller.go
package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"groupride-api/models"
	"groupride-api/utils"
)

// ParticipantVerifier is the verification flow behind the ride endpoints.
type ParticipantVerifier interface {
	SubmitParticipantTrack(ctx context.Context, rideID, userID, email string, raw []byte) (*models.RideParticipant, error)
	VerifyParticipant(ctx context.Context, rideID, userID, callerID string) (*models.RideParticipant, error)
	GetVerification(ctx context.Context, rideID, userID, callerID string) (*models.RideParticipant, error)
}

type RideController struct {
	verifier ParticipantVerifier
}

func NewRideController(verifier ParticipantVerifier) *RideController {
	return &RideController{verifier: verifier}
}

// SubmitTrack stores the caller's track for a ride and returns the verdict.
func (rc *RideController) SubmitTrack(c *gin.Context) {
	userID := c.GetString("user_id")
	rideID := c.Param("id")

	raw, err := readTrackFile(c, "file")
	if err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	participant, err := rc.verifier.SubmitParticipantTrack(c.Request.Context(), rideID, userID, c.GetString("email"), raw)
	if err != nil {
		sendServiceError(c, err)
		return
	}

	utils.SendCreated(c, "Track submitted", participant)
}

// Verify re-runs verification. The caller must be the participant or the organizer.
func (rc *RideController) Verify(c *gin.Context) {
	participant, err := rc.verifier.VerifyParticipant(c.Request.Context(), c.Param("id"), c.Param("user_id"), c.GetString("user_id"))
	if err != nil {
		sendServiceError(c, err)
		return
	}

	utils.SendSuccess(c, "Verification completed", participant)
}

func (rc *RideController) GetVerification(c *gin.Context) {
	participant, err := rc.verifier.GetVerification(c.Request.Context(), c.Param("id"), c.Param("user_id"), c.GetString("user_id"))
	if err != nil {
		sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, participant)
}
