package domain

import (
	"context"
)

// AuthService handles account creation and session lifecycle
type AuthService interface {
	Login(ctx context.Context, chatID int64, username, password string) (*Session, error)
	Register(ctx context.Context, chatID int64, username, email, password string) (*Session, error)
	Logout(chatID int64) error
	Current(chatID int64) (*Session, bool)
}

// GardenService handles plant and growth log operations
type GardenService interface {
	Plants(ctx context.Context, userID int) ([]PlantRecord, error)
	AddPlant(ctx context.Context, userID int, name, species, datePlanted string) error
	DeletePlant(ctx context.Context, userID, plantID int) error
	Logs(ctx context.Context, plantID int) ([]GrowthLogEntry, error)
	AddLog(ctx context.Context, plantID int, date, note, status string, image []byte, imageName string) error
}

// DiagnosisService analyzes plant photos
type DiagnosisService interface {
	Diagnose(ctx context.Context, chatID int64, userID int, image []byte, imageName, language string) (*DiagnosisResult, error)
	History(ctx context.Context, chatID int64, limit int) ([]DiagnosisHistoryEntry, error)
}

// AssistantService answers free-text gardening questions
type AssistantService interface {
	Ask(ctx context.Context, query string) (*AssistantAnswer, error)
}
