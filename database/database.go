// File: /database/database.go
package database

import (
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"groupride-api/models"
)

func Initialize(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.GroupRide{},
		&models.RideParticipant{},
		&models.ActivityUpload{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	addCustomIndexes(db)
	return nil
}

// customIndexes back the verification sweep and the uploads listing.
var customIndexes = []struct {
	name  string
	model interface{}
	sql   string
}{
	{
		name:  "idx_ride_participants_status_updated",
		model: &models.RideParticipant{},
		sql:   "CREATE INDEX idx_ride_participants_status_updated ON ride_participants(status, updated_at)",
	},
	{
		name:  "idx_activity_uploads_user_created",
		model: &models.ActivityUpload{},
		sql:   "CREATE INDEX idx_activity_uploads_user_created ON activity_uploads(user_id, created_at DESC)",
	},
}

// addCustomIndexes creates indexes gorm tags cannot express. Failures are
// logged, not fatal.
func addCustomIndexes(db *gorm.DB) {
	migrator := db.Migrator()
	for _, idx := range customIndexes {
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}
		if err := db.Exec(idx.sql).Error; err != nil {
			log.Printf("Warning: Could not create index %s: %v", idx.name, err)
		}
	}
}
