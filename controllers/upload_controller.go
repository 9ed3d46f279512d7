// File: /controllers/upload_controller.go
package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"groupride-api/models"
	"groupride-api/utils"
)

type ActivityUploader interface {
	Upload(ctx context.Context, userID string, raw []byte) (*models.ActivityUpload, bool, error)
	ListUploads(ctx context.Context, userID string, page, limit int) ([]models.ActivityUpload, int64, error)
}

type UploadController struct {
	uploads ActivityUploader
}

func NewUploadController(uploads ActivityUploader) *UploadController {
	return &UploadController{uploads: uploads}
}

type UploadResponse struct {
	Upload    *models.ActivityUpload `json:"upload"`
	Duplicate bool                   `json:"duplicate"`
}

// CreateUpload stores an activity. Re-posting the same file returns the
// existing upload with 200 instead of 201.
func (uc *UploadController) CreateUpload(c *gin.Context) {
	userID := c.GetString("user_id")

	raw, err := readTrackFile(c, "file")
	if err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	upload, duplicate, err := uc.uploads.Upload(c.Request.Context(), userID, raw)
	if err != nil {
		sendServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if duplicate {
		status = http.StatusOK
	}
	c.JSON(status, UploadResponse{Upload: upload, Duplicate: duplicate})
}

func (uc *UploadController) GetUploads(c *gin.Context) {
	userID := c.GetString("user_id")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	uploads, total, err := uc.uploads.ListUploads(c.Request.Context(), userID, page, limit)
	if err != nil {
		sendServiceError(c, err)
		return
	}

	utils.SendPaginated(c, uploads, page, limit, total)
}
