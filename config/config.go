// File: /config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT" validate:"required"`
	DatabaseURL string `mapstructure:"DATABASE_URL" validate:"required"`
	JWTSecret   string `mapstructure:"JWT_SECRET" validate:"required"`

	// Email Configuration
	NotificationsEnabled bool   `mapstructure:"NOTIFICATIONS_ENABLED"`
	SMTPHost             string `mapstructure:"SMTP_HOST" validate:"required_if=NotificationsEnabled true"`
	SMTPPort             int    `mapstructure:"SMTP_PORT" validate:"gte=0,lte=65535"`
	SMTPUsername         string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword         string `mapstructure:"SMTP_PASSWORD"`
	FromEmail            string `mapstructure:"FROM_EMAIL" validate:"omitempty,email"`
	FromName             string `mapstructure:"FROM_NAME"`

	// Track file storage
	TrackStorage    string `mapstructure:"TRACK_STORAGE" validate:"oneof=local minio"`
	TrackStorageDir string `mapstructure:"TRACK_STORAGE_DIR" validate:"required_if=TrackStorage local"`
	MinioEndpoint   string `mapstructure:"MINIO_ENDPOINT" validate:"required_if=TrackStorage minio"`
	MinioAccessKey  string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey  string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket     string `mapstructure:"MINIO_BUCKET" validate:"required_if=TrackStorage minio"`
	MinioUseSSL     bool   `mapstructure:"MINIO_USE_SSL"`

	// Matching
	ProximityRadiusM     float64 `mapstructure:"PROXIMITY_RADIUS_M" validate:"gt=0"`
	TimeWindowSec        float64 `mapstructure:"TIME_WINDOW_SEC" validate:"gt=0"`
	MinMatchPercent      float64 `mapstructure:"MIN_MATCH_PERCENT" validate:"gt=0,lte=100"`
	AutoMatchWindowHours int     `mapstructure:"AUTO_MATCH_WINDOW_HOURS" validate:"gte=24"`

	// Background verification
	VerificationInterval time.Duration `mapstructure:"VERIFICATION_INTERVAL" validate:"gte=0"`
	VerificationWorkers  int           `mapstructure:"VERIFICATION_WORKERS" validate:"gte=1"`

	RateLimitPerMinute int `mapstructure:"RATE_LIMIT_PER_MINUTE" validate:"gte=1"`
	RateLimitBurst     int `mapstructure:"RATE_LIMIT_BURST" validate:"gte=1"`
}

var defaults = map[string]interface{}{
	"PORT":                    "8080",
	"DATABASE_URL":            "user:password@tcp(localhost:3306)/groupride?charset=utf8mb4&parseTime=True&loc=Local",
	"JWT_SECRET":              "your-secret-key",
	"NOTIFICATIONS_ENABLED":   false,
	"SMTP_HOST":               "localhost",
	"SMTP_PORT":               2525,
	"SMTP_USERNAME":           "",
	"SMTP_PASSWORD":           "",
	"FROM_EMAIL":              "noreply@groupride.local",
	"FROM_NAME":               "GroupRide",
	"TRACK_STORAGE":           "local",
	"TRACK_STORAGE_DIR":       "./data/tracks",
	"MINIO_ENDPOINT":          "",
	"MINIO_ACCESS_KEY":        "",
	"MINIO_SECRET_KEY":        "",
	"MINIO_BUCKET":            "tracks",
	"MINIO_USE_SSL":           false,
	"PROXIMITY_RADIUS_M":      50.0,
	"TIME_WINDOW_SEC":         15.0,
	"MIN_MATCH_PERCENT":       80.0,
	"AUTO_MATCH_WINDOW_HOURS": 36,
	"VERIFICATION_INTERVAL":   "5m",
	"VERIFICATION_WORKERS":    4,
	"RATE_LIMIT_PER_MINUTE":   30,
	"RATE_LIMIT_BURST":        10,
}

// Load reads configuration from the environment, optionally layered over the
// YAML/TOML/JSON file named by CONFIG_FILE, and validates it.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
