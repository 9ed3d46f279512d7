package controllers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"groupride-api/services"
	"groupride-api/utils"
)

var errMissingFile = errors.New("missing file")

// readTrackFile reads the multipart file posted under field.
func readTrackFile(c *gin.Context, field string) ([]byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errMissingFile, field)
	}
	if !utils.IsValidTrackFilename(header.Filename) {
		return nil, fmt.Errorf("%s: unsupported file type %q", field, header.Filename)
	}
	if !utils.IsValidTrackFileSize(header.Size) {
		return nil, fmt.Errorf("%s: file must be between 1 byte and %d MB", field, utils.MaxTrackFileBytes>>20)
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, utils.MaxTrackFileBytes))
}

// sendServiceError maps service errors onto HTTP responses.
func sendServiceError(c *gin.Context, err error) {
	switch {
	case services.IsParseError(err):
		utils.SendErrorMessage(c, http.StatusUnprocessableEntity, "Invalid track file", err.Error())
	case errors.Is(err, services.ErrForbidden):
		utils.SendError(c, http.StatusForbidden, "You are not allowed to access this participant")
	case errors.Is(err, services.ErrRideNotFound):
		utils.SendError(c, http.StatusNotFound, "Ride not found")
	case errors.Is(err, services.ErrParticipantNotFound):
		utils.SendError(c, http.StatusNotFound, "Participant not found")
	case errors.Is(err, services.ErrTrackNotFound):
		utils.SendError(c, http.StatusNotFound, "Track not found")
	default:
		log.Printf("Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		utils.SendErrorMessage(c, http.StatusInternalServerError, "Internal server error", "An unexpected error occurred")
	}
}
