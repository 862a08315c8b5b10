package database

import (
	"fmt"
	"log"
	"path/filepath"
	"runtime"

	"github.com/plantguardian/garden-helper/internal/config"
	"github.com/plantguardian/garden-helper/internal/database/migrations"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// LinkedAccount ties a Telegram chat to a backend garden account.
type LinkedAccount struct {
	gorm.Model
	TelegramID    int64 `gorm:"uniqueIndex"`
	BackendUserID int
	Username      string
	Language      string `gorm:"default:en"`
}

// DiagnosisRecord is one saved diagnosis run, kept for the user's history.
type DiagnosisRecord struct {
	gorm.Model
	TelegramID    int64 `gorm:"index"`
	BackendUserID int
	ImageURL      string
	PlantName     string
	DiseaseName   string
	Confidence    float64
	Severity      string
	UsedProvider  string // "backend" or "gemini"
	Summary       string
}

func NewPostgresDB(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return nil, fmt.Errorf("failed to get current file path")
	}
	migrationsDir := filepath.Join(filepath.Dir(filename), "migrations")

	if err := migrations.LoadSQLMigrations(db, migrationsDir); err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Auto-migrate the schema for models that don't have explicit migrations
	if err := db.AutoMigrate(&LinkedAccount{}, &DiagnosisRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	log.Println("Database connection established and migrations completed")
	return db, nil
}
