// File: /routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"groupride-api/config"
	"groupride-api/controllers"
	"groupride-api/middleware"
	"groupride-api/models"
)

// Services are the flows the HTTP API is built on.
type Services struct {
	Verification controllers.ParticipantVerifier
	Uploads      controllers.ActivityUploader
}

func SetupRoutes(r *gin.Engine, cfg *config.Config, svc Services) {
	// Controllers
	trackController := controllers.NewTrackController(models.ProximityConfig{
		ProximityRadiusM: cfg.ProximityRadiusM,
		TimeWindowSec:    cfg.TimeWindowSec,
		MinMatchPercent:  cfg.MinMatchPercent,
	})
	rideController := controllers.NewRideController(svc.Verification)
	uploadController := controllers.NewUploadController(svc.Uploads)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})

	v1 := r.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	// Track files are parsed in memory, so every write endpoint is rate limited
	limited := middleware.RateLimit(cfg.RateLimitPerMinute, cfg.RateLimitBurst)

	tracks := v1.Group("/tracks")
	tracks.Use(limited, middleware.RequireMultipart())
	{
		tracks.POST("/analyze", trackController.Analyze)
		tracks.POST("/similarity", trackController.Similarity)
		tracks.POST("/proximity", trackController.Proximity)
		tracks.POST("/export", trackController.Export)
	}

	uploads := v1.Group("/uploads")
	{
		uploads.POST("", limited, middleware.RequireMultipart(), uploadController.CreateUpload)
		uploads.GET("", middleware.PaginationDefaults(), uploadController.GetUploads)
	}

	rides := v1.Group("/rides/:id/participants")
	{
		rides.POST("/track", limited, middleware.RequireMultipart(), rideController.SubmitTrack)
		rides.POST("/:user_id/verify", limited, rideController.Verify)
		rides.GET("/:user_id/verification", rideController.GetVerification)
	}
}

// SetupCORS allows browser clients on any origin to call the API with a bearer token.
func SetupCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		c.Header("Access-Control-Expose-Headers", "Content-Disposition, X-RateLimit-Remaining, X-RateLimit-Reset")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
