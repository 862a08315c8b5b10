package services

import (
	"context"

	"github.com/plantguardian/garden-helper/internal/api"
	"github.com/plantguardian/garden-helper/internal/database"
	"github.com/plantguardian/garden-helper/internal/domain"
	apperrors "github.com/plantguardian/garden-helper/internal/errors"
	"github.com/plantguardian/garden-helper/internal/logger"
	"gorm.io/gorm"
)

// DiagnosisService analyzes plant photos. The backend is the primary
// diagnoser; when it is unreachable the service falls back to asking Gemini
// directly and maps the answer onto the same result shape. Every completed
// diagnosis is recorded for the chat's history.
type DiagnosisService struct {
	client   *api.Client
	ai       *AIService
	db       *gorm.DB
	language string
}

func NewDiagnosisService(client *api.Client, ai *AIService, db *gorm.DB, language string) *DiagnosisService {
	return &DiagnosisService{
		client:   client,
		ai:       ai,
		db:       db,
		language: language,
	}
}

// Diagnose runs a photo through the backend, falling back to Gemini when the
// backend cannot be reached. The result is transient: nothing is written to
// the garden unless the user saves a growth log from it.
func (s *DiagnosisService) Diagnose(ctx context.Context, chatID int64, userID int, image []byte, imageName, language string) (*domain.DiagnosisResult, error) {
	if len(image) == 0 {
		return nil, apperrors.NewValidationError("No image data received")
	}
	if language == "" {
		language = s.language
	}

	result, err := s.client.Predict(ctx, imageName, image, language)
	provider := "backend"
	if err != nil {
		if s.ai == nil || !fallbackWorthy(err) {
			return nil, err
		}
		logger.Warningf("Backend diagnosis failed, falling back to Gemini: %v", err)
		result, err = s.diagnoseWithGemini(ctx, image)
		if err != nil {
			return nil, err
		}
		provider = "gemini"
	}

	s.record(chatID, userID, result, provider)
	return result, nil
}

// History returns the chat's most recent diagnoses, newest first.
func (s *DiagnosisService) History(ctx context.Context, chatID int64, limit int) ([]domain.DiagnosisHistoryEntry, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	var records []database.DiagnosisRecord
	err := s.db.WithContext(ctx).
		Where("telegram_id = ?", chatID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	entries := make([]domain.DiagnosisHistoryEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, domain.DiagnosisHistoryEntry{
			When:        r.CreatedAt,
			PlantName:   r.PlantName,
			DiseaseName: r.DiseaseName,
			Confidence:  r.Confidence,
			Provider:    r.UsedProvider,
		})
	}
	return entries, nil
}

// fallbackWorthy reports whether an error means the backend itself is down
// rather than the request being wrong. Validation and auth failures would
// fail against Gemini just the same, so they propagate as-is.
func fallbackWorthy(err error) bool {
	return apperrors.IsType(err, apperrors.ErrorTypeNetwork) ||
		apperrors.IsType(err, apperrors.ErrorTypeTimeout) ||
		apperrors.IsType(err, apperrors.ErrorTypeExternal)
}

func (s *DiagnosisService) diagnoseWithGemini(ctx context.Context, image []byte) (*domain.DiagnosisResult, error) {
	analysis, err := s.ai.AnalyzePlantImage(ctx, image)
	if err != nil {
		return nil, apperrors.NewExternalAPIError(err, "Gemini")
	}
	return &domain.DiagnosisResult{
		PlantName:   analysis.PlantName,
		DiseaseName: analysis.DiseaseName,
		Confidence:  analysis.Confidence,
		Details: &domain.DiseaseDetails{
			Name:       analysis.DiseaseName,
			Severity:   "Moderate",
			Symptoms:   analysis.Details.Description,
			Prevention: analysis.Details.Prevention,
			Treatments: []domain.Treatment{{
				Type:        "General",
				Description: analysis.Details.Treatment,
				CostApprox:  "Varies",
			}},
		},
	}, nil
}

// record persists the diagnosis for history. Auxiliary; a database failure
// must not fail the diagnosis itself.
func (s *DiagnosisService) record(chatID int64, userID int, result *domain.DiagnosisResult, provider string) {
	if s.db == nil {
		return
	}
	rec := database.DiagnosisRecord{
		TelegramID:    chatID,
		BackendUserID: userID,
		PlantName:     result.PlantName,
		DiseaseName:   result.DiseaseName,
		Confidence:    result.Confidence,
		UsedProvider:  provider,
	}
	if result.Details != nil {
		rec.Severity = result.Details.Severity
		rec.Summary = result.Details.Symptoms
	}
	if err := s.db.Create(&rec).Error; err != nil {
		logger.Errorf("Failed to record diagnosis for chat %d: %v", chatID, err)
	}
}
