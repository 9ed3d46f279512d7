// File: /controllers/track_controller.go
package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"groupride-api/models"
	"groupride-api/services"
	"groupride-api/utils"
)

// TrackController exposes the matching engine on uploaded files without
// persisting anything.
type TrackController struct {
	proximity models.ProximityConfig
}

func NewTrackController(proximity models.ProximityConfig) *TrackController {
	return &TrackController{proximity: proximity}
}

type AnalyzeResponse struct {
	models.TrackSummary
	Points []models.TrackPoint `json:"points,omitempty"`
}

type SimilarityResponse struct {
	Score  float64             `json:"score"`
	TrackA models.TrackSummary `json:"track_a"`
	TrackB models.TrackSummary `json:"track_b"`
}

func (tc *TrackController) Analyze(c *gin.Context) {
	track, ok := tc.parseFile(c, "file")
	if !ok {
		return
	}

	resp := AnalyzeResponse{TrackSummary: track.Summary()}
	if c.Query("include_points") == "true" {
		resp.Points = track.Points
	}
	c.JSON(http.StatusOK, resp)
}

func (tc *TrackController) Similarity(c *gin.Context) {
	a, ok := tc.parseFile(c, "track_a")
	if !ok {
		return
	}
	b, ok := tc.parseFile(c, "track_b")
	if !ok {
		return
	}

	c.JSON(http.StatusOK, SimilarityResponse{
		Score:  services.RouteSimilarity(a, b),
		TrackA: a.Summary(),
		TrackB: b.Summary(),
	})
}

func (tc *TrackController) Proximity(c *gin.Context) {
	// Unset form fields keep the server defaults; explicit zeros are honored
	cfg := tc.proximity
	if err := c.ShouldBind(&cfg); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	organizer, ok := tc.parseFile(c, "organizer")
	if !ok {
		return
	}
	participant, ok := tc.parseFile(c, "participant")
	if !ok {
		return
	}

	c.JSON(http.StatusOK, services.CheckProximity(organizer, participant, cfg))
}

// Export re-serializes an uploaded track as a clean GPX 1.1 document.
func (tc *TrackController) Export(c *gin.Context) {
	track, ok := tc.parseFile(c, "file")
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := services.WriteGPX(&buf, track); err != nil {
		sendServiceError(c, err)
		return
	}

	name := exportFilename(track.Name)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "application/gpx+xml", buf.Bytes())
}

func (tc *TrackController) parseFile(c *gin.Context, field string) (*models.Track, bool) {
	raw, err := readTrackFile(c, field)
	if err != nil {
		utils.SendValidationError(c, err.Error())
		return nil, false
	}
	track, err := services.ParseTrack(raw)
	if err != nil {
		sendServiceError(c, err)
		return nil, false
	}
	return track, true
}

func exportFilename(trackName string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, trackName)
	if name == "" {
		name = "track"
	}
	return name + ".gpx"
}
