// File: /main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"groupride-api/config"
	"groupride-api/database"
	"groupride-api/jobs"
	"groupride-api/middleware"
	"groupride-api/models"
	"groupride-api/repositories"
	"groupride-api/routes"
	"groupride-api/services"
	"groupride-api/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	store, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize track storage:", err)
	}

	var notifier services.Notifier
	if cfg.NotificationsEnabled {
		notifier = services.NewNotificationService(cfg)
	}

	rideRepo := repositories.NewRideRepository(db)
	loader := services.NewStoreTrackLoader(store)
	proximity := models.ProximityConfig{
		ProximityRadiusM: cfg.ProximityRadiusM,
		TimeWindowSec:    cfg.TimeWindowSec,
		MinMatchPercent:  cfg.MinMatchPercent,
	}
	verificationService := services.NewVerificationService(rideRepo, store, loader, notifier, proximity)
	uploadService := services.NewUploadService(rideRepo, rideRepo, store, services.NewRideMatcher(loader),
		time.Duration(cfg.AutoMatchWindowHours)*time.Hour)

	// A zero interval disables the background sweep
	if cfg.VerificationInterval > 0 {
		verificationJob := jobs.NewVerificationJob(verificationService, cfg.VerificationInterval, cfg.VerificationWorkers)
		verificationJob.Start(ctx)
		defer verificationJob.Stop()
	}

	// Set Gin mode based on environment
	if cfg.Port == "8080" { // Development
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(routes.SetupCORS())
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.ErrorHandler())
	router.MaxMultipartMemory = 32 << 20

	routes.SetupRoutes(router, cfg, routes.Services{
		Verification: verificationService,
		Uploads:      uploadService,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting GroupRide API server on port %s", cfg.Port)
		log.Printf("Health check available at: http://localhost:%s/ping", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
}
