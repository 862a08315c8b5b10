package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/plantguardian/garden-helper/internal/bot/menus"
	"github.com/plantguardian/garden-helper/internal/bot/state"
	"github.com/plantguardian/garden-helper/internal/domain"
	apperrors "github.com/plantguardian/garden-helper/internal/errors"
	"github.com/plantguardian/garden-helper/internal/logger"
)

// PhotoHandler handles photo messages
type PhotoHandler struct {
	api          *tgbotapi.BotAPI
	deps         Dependencies
	stateManager state.StateManager
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(api *tgbotapi.BotAPI, deps Dependencies, stateManager state.StateManager) *PhotoHandler {
	return &PhotoHandler{
		api:          api,
		deps:         deps,
		stateManager: stateManager,
	}
}

// Handle processes a photo message by diagnosing the plant in it. A manual
// diagnosis takes over from auto-recheck, so any running recheck for this
// chat is stopped first.
func (h *PhotoHandler) Handle(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	h.deps.AutoChecker.Stop(chatID)

	// Get the largest photo
	photo := message.Photo[len(message.Photo)-1]
	data, err := downloadTelegramFile(h.api, photo.FileID)
	if err != nil {
		logger.Errorf("Failed to download photo for chat %d: %v", chatID, err)
		msg := tgbotapi.NewMessage(chatID, "Could not download the photo. Please try again.")
		_, sendErr := h.api.Send(msg)
		return sendErr
	}

	// Send "processing" message
	processingMsg := tgbotapi.NewMessage(chatID, "Analyzing the photo...")
	sentMsg, err := h.api.Send(processingMsg)
	if err != nil {
		return fmt.Errorf("failed to send processing message: %w", err)
	}

	session, authenticated := h.deps.AuthSvc.Current(chatID)
	userID := 0
	if authenticated {
		userID = session.UserID
	}

	logger.Infof("Starting diagnosis for chat %d", chatID)
	result, err := h.deps.DiagnosisSvc.Diagnose(ctx, chatID, userID, data, "photo.jpg", "")

	// Delete processing message
	deleteMsg := tgbotapi.NewDeleteMessage(chatID, sentMsg.MessageID)
	h.api.Send(deleteMsg)

	if err != nil {
		logger.Errorf("Diagnosis failed for chat %d: %v", chatID, err)
		msg := tgbotapi.NewMessage(chatID, "❌ "+apperrors.UserMessage(err))
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔄 Try again", "diagnose"),
				tgbotapi.NewInlineKeyboardButtonData("◀️ Main menu", "main_menu"),
			),
		)
		_, sendErr := h.api.Send(msg)
		return sendErr
	}
	logger.Infof("Diagnosis completed for chat %d: %s / %s", chatID, result.PlantName, result.DiseaseName)

	h.rememberDiagnosis(chatID, photo.FileID, result)
	h.stateManager.SetUserState(chatID, state.None)

	return menus.SendDiagnosisResult(h.api, chatID, photo.FileID, result, authenticated, false)
}

// rememberDiagnosis stashes the result and the photo so that save-as-log and
// auto-recheck can reuse them.
func (h *PhotoHandler) rememberDiagnosis(chatID int64, fileID string, result *domain.DiagnosisResult) {
	h.stateManager.SetTempData(chatID, state.TempLastPhoto, fileID)
	encoded, err := json.Marshal(result)
	if err != nil {
		logger.Errorf("Failed to encode diagnosis for chat %d: %v", chatID, err)
		return
	}
	h.stateManager.SetTempData(chatID, state.TempDiagnosis, string(encoded))
}

// downloadTelegramFile fetches the raw bytes of a telegram file
func downloadTelegramFile(api *tgbotapi.BotAPI, fileID string) ([]byte, error) {
	file, err := api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	resp, err := http.Get(file.Link(api.Token))
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
