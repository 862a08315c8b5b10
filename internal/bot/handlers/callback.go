package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/plantguardian/garden-helper/internal/bot/keyboards"
	"github.com/plantguardian/garden-helper/internal/bot/menus"
	"github.com/plantguardian/garden-helper/internal/bot/state"
	"github.com/plantguardian/garden-helper/internal/domain"
	apperrors "github.com/plantguardian/garden-helper/internal/errors"
	"github.com/plantguardian/garden-helper/internal/logger"
	"github.com/plantguardian/garden-helper/internal/store"
)

// CallbackHandler handles callback query messages
type CallbackHandler struct {
	api          *tgbotapi.BotAPI
	deps         Dependencies
	stateManager state.StateManager
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(api *tgbotapi.BotAPI, deps Dependencies, stateManager state.StateManager) *CallbackHandler {
	return &CallbackHandler{
		api:          api,
		deps:         deps,
		stateManager: stateManager,
	}
}

// Handle processes a callback query
func (h *CallbackHandler) Handle(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	// Answer the callback query first
	callback := tgbotapi.NewCallback(query.ID, "")
	if _, err := h.api.Request(callback); err != nil {
		logger.Warningf("Failed to answer callback query: %v", err)
	}

	chatID := query.Message.Chat.ID
	action, arg := splitCallback(query.Data)

	switch action {
	case "main_menu":
		return h.handleMainMenu(chatID)
	case "login":
		return h.handleLogin(chatID)
	case "register":
		return h.handleRegister(chatID)
	case "logout":
		return h.handleLogout(chatID)
	case "my_garden":
		return h.handleMyGarden(ctx, chatID)
	case "add_plant":
		return h.handleAddPlant(chatID)
	case "plant":
		return h.handlePlant(ctx, chatID, arg)
	case "logs":
		return h.handleLogs(ctx, chatID, arg)
	case "sel_log":
		return h.handleSelectLog(ctx, chatID, arg)
	case "compare":
		return h.handleCompare(chatID, arg)
	case "add_log":
		return h.handleAddLog(chatID, arg)
	case "log_status":
		return h.handleLogStatus(ctx, chatID, arg)
	case "delete_plant":
		return h.handleDeletePlant(ctx, chatID, arg)
	case "diagnose":
		return h.handleDiagnose(chatID)
	case "save_log":
		return h.handleSaveLog(ctx, chatID)
	case "save_to":
		return h.handleSaveTo(ctx, chatID, arg)
	case "auto_check":
		return h.handleAutoCheck(ctx, chatID)
	case "history":
		return h.handleHistory(ctx, chatID)
	case "assistant":
		return h.handleAssistant(chatID)
	default:
		return h.handleUnknownCallback(chatID)
	}
}

func splitCallback(data string) (action, arg string) {
	if i := strings.IndexByte(data, ':'); i >= 0 {
		return data[:i], data[i+1:]
	}
	return data, ""
}

func (h *CallbackHandler) handleMainMenu(chatID int64) error {
	h.stateManager.SetUserState(chatID, state.None)
	session, _ := h.deps.AuthSvc.Current(chatID)
	return menus.SendMainMenu(h.api, chatID, session)
}

func (h *CallbackHandler) handleLogin(chatID int64) error {
	h.stateManager.SetUserState(chatID, state.WaitingForLoginName)
	msg := tgbotapi.NewMessage(chatID, "Enter your username:")
	msg.ReplyMarkup = keyboards.BackToMenu()
	_, err := h.api.Send(msg)
	return err
}

func (h *CallbackHandler) handleRegister(chatID int64) error {
	h.stateManager.SetUserState(chatID, state.WaitingForRegName)
	msg := tgbotapi.NewMessage(chatID, "Choose a username:")
	msg.ReplyMarkup = keyboards.BackToMenu()
	_, err := h.api.Send(msg)
	return err
}

func (h *CallbackHandler) handleLogout(chatID int64) error {
	h.deps.AutoChecker.Stop(chatID)
	if err := h.deps.AuthSvc.Logout(chatID); err != nil {
		logger.Errorf("Logout failed for chat %d: %v", chatID, err)
	}
	msg := tgbotapi.NewMessage(chatID, "You are logged out. See you soon! 🌱")
	_, err := h.api.Send(msg)
	if err != nil {
		return err
	}
	return menus.SendMainMenu(h.api, chatID, nil)
}

func (h *CallbackHandler) handleMyGarden(ctx context.Context, chatID int64) error {
	session, err := h.requireSession(chatID)
	if err != nil || session == nil {
		return err
	}
	plants, loadErr := h.deps.GardenSvc.Plants(ctx, session.UserID)
	if loadErr != nil && plants == nil {
		logger.Errorf("Failed to load garden for chat %d: %v", chatID, loadErr)
		msg := tgbotapi.NewMessage(chatID, "❌ "+apperrors.UserMessage(loadErr))
		msg.ReplyMarkup = keyboards.BackToMenu()
		_, sendErr := h.api.Send(msg)
		return sendErr
	}
	return menus.SendGardenMenu(h.api, chatID, plants, loadErr != nil)
}

func (h *CallbackHandler) handleAddPlant(chatID int64) error {
	if session, err := h.requireSession(chatID); err != nil || session == nil {
		return err
	}
	h.stateManager.SetUserState(chatID, state.WaitingForPlantName)
	msg := tgbotapi.NewMessage(chatID, "What do you call this plant? (e.g. Balcony tomato)")
	msg.ReplyMarkup = keyboards.BackToMenu()
	_, err := h.api.Send(msg)
	return err
}

func (h *CallbackHandler) handlePlant(ctx context.Context, chatID int64, arg string) error {
	session, err := h.requireSession(chatID)
	if err != nil || session == nil {
		return err
	}
	plantID, err := strconv.Atoi(arg)
	if err != nil {
		return h.handleUnknownCallback(chatID)
	}
	h.stateManager.SetTempData(chatID, state.TempCurrentPlant, arg)

	plants, _ := h.deps.GardenSvc.Plants(ctx, session.UserID)
	var plant *domain.PlantRecord
	for i := range plants {
		if plants[i].ID == plantID {
			plant = &plants[i]
			break
		}
	}
	if plant == nil {
		msg := tgbotapi.NewMessage(chatID, "This plant is no longer in your garden.")
		msg.ReplyMarkup = keyboards.BackToMenu()
		_, sendErr := h.api.Send(msg)
		return sendErr
	}

	text := fmt.Sprintf("🌿 *%s*\nSpecies: %s\nPlanted: %s", plant.Name, plant.Species, plant.DatePlanted)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = keyboards.PlantMenu(plantID)
	_, err = h.api.Send(msg)
	return err
}

func (h *CallbackHandler) handleLogs(ctx context.Context, chatID int64, arg string) error {
	if session, err := h.requireSession(chatID); err != nil || session == nil {
		return err
	}
	plantID, err := strconv.Atoi(arg)
	if err != nil {
		return h.handleUnknownCallback(chatID)
	}
	h.stateManager.SetTempData(chatID, state.TempCurrentPlant, arg)
	h.stateManager.SetTempData(chatID, state.TempSelectedLogs, "")

	logs, loadErr := h.deps.GardenSvc.Logs(ctx, plantID)
	if loadErr != nil && logs == nil {
		logger.Errorf("Failed to load logs for plant %d: %v", plantID, loadErr)
		msg := tgbotapi.NewMessage(chatID, "❌ "+apperrors.UserMessage(loadErr))
		msg.ReplyMarkup = keyboards.BackToMenu()
		_, sendErr := h.api.Send(msg)
		return sendErr
	}
	return menus.SendLogsMenu(h.api, chatID, plantID, logs, nil, loadErr != nil)
}

// handleSelectLog toggles one entry in the comparison selection and re-renders
// the log list from the cached collection.
func (h *CallbackHandler) handleSelectLog(ctx context.Context, chatID int64, arg string) error {
	logID, err := strconv.Atoi(arg)
	if err != nil {
		return h.handleUnknownCallback(chatID)
	}
	plantID, ok := h.currentPlant(chatID)
	if !ok {
		return h.handleUnknownCallback(chatID)
	}

	raw, _ := h.stateManager.GetTempData(chatID, state.TempSelectedLogs)
	selected := ToggleSelection(decodeSelection(raw), logID)
	h.stateManager.SetTempData(chatID, state.TempSelectedLogs, encodeSelection(selected))

	logs, ok := h.cachedLogs(plantID)
	if !ok {
		var err error
		logs, err = h.deps.GardenSvc.Logs(ctx, plantID)
		if err != nil && logs == nil {
			msg := tgbotapi.NewMessage(chatID, "❌ "+apperrors.UserMessage(err))
			_, sendErr := h.api.Send(msg)
			return sendErr
		}
	}
	return menus.SendLogsMenu(h.api, chatID, plantID, logs, selected, false)
}

// handleCompare renders the two selected growth log entries side by side
func (h *CallbackHandler) handleCompare(chatID int64, arg string) error {
	plantID, err := strconv.Atoi(arg)
	if err != nil {
		return h.handleUnknownCallback(chatID)
	}
	raw, _ := h.stateManager.GetTempData(chatID, state.TempSelectedLogs)
	selected := decodeSelection(raw)
	if len(selected) != 2 {
		msg := tgbotapi.NewMessage(chatID, "Select exactly two entries to compare.")
		_, sendErr := h.api.Send(msg)
		return sendErr
	}

	logs, ok := h.cachedLogs(plantID)
	if !ok {
		msg := tgbotapi.NewMessage(chatID, "The log list is no longer loaded. Open the growth log again.")
		msg.ReplyMarkup = keyboards.PlantMenu(plantID)
		_, sendErr := h.api.Send(msg)
		return sendErr
	}

	var first, second *domain.GrowthLogEntry
	for i := range logs {
		switch logs[i].ID {
		case selected[0]:
			first = &logs[i]
		case selected[1]:
			second = &logs[i]
		}
	}
	if first == nil || second == nil {
		msg := tgbotapi.NewMessage(chatID, "One of the selected entries no longer exists.")
		msg.ReplyMarkup = keyboards.PlantMenu(plantID)
		_, sendErr := h.api.Send(msg)
		return sendErr
	}
	// Logs render newest first; show the comparison oldest to newest.
	if first.Date > second.Date {
		first, second = second, first
	}

	progress := "Status unchanged."
	if first.Status != second.Status {
		progress = fmt.Sprintf("Status changed: %s → %s", first.Status, second.Status)
	}
	text := fmt.Sprintf("🔍 *Comparison*\n\n"+
		"📅 %s [%s]\n%s\n\n"+
		"📅 %s [%s]\n%s\n\n%s",
		first.Date, first.Status, first.Note,
		second.Date, second.Status, second.Note,
		progress,
	)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = keyboards.PlantMenu(plantID)
	_, err = h.api.Send(msg)
	return err
}

func (h *CallbackHandler) handleAddLog(chatID int64, arg string) error {
	if session, err := h.requireSession(chatID); err != nil || session == nil {
		return err
	}
	if _, err := strconv.Atoi(arg); err != nil {
		return h.handleUnknownCallback(chatID)
	}
	h.stateManager.SetTempData(chatID, state.TempCurrentPlant, arg)
	h.stateManager.SetUserState(chatID, state.WaitingForLogNote)

	msg := tgbotapi.NewMessage(chatID, "Describe how the plant looks today:")
	msg.ReplyMarkup = keyboards.BackToMenu()
	_, err := h.api.Send(msg)
	return err
}

func (h *CallbackHandler) handleLogStatus(ctx context.Context, chatID int64, status string) error {
	if session, err := h.requireSession(chatID); err != nil || session == nil {
		return err
	}
	plantID, ok := h.currentPlant(chatID)
	if !ok {
		return h.handleUnknownCallback(chatID)
	}
	note, _ := h.stateManager.GetTempData(chatID, state.TempLogNote)

	if err := h.deps.GardenSvc.AddLog(ctx, plantID, "", note, status, nil, ""); err != nil {
		return h.sendMutationError(chatID, plantID, err)
	}

	logs, loadErr := h.deps.GardenSvc.Logs(ctx, plantID)
	return menus.SendLogsMenu(h.api, chatID, plantID, logs, nil, loadErr != nil)
}

func (h *CallbackHandler) handleDeletePlant(ctx context.Context, chatID int64, arg string) error {
	session, err := h.requireSession(chatID)
	if err != nil || session == nil {
		return err
	}
	plantID, err := strconv.Atoi(arg)
	if err != nil {
		return h.handleUnknownCallback(chatID)
	}

	if err := h.deps.GardenSvc.DeletePlant(ctx, session.UserID, plantID); err != nil {
		return h.sendMutationError(chatID, plantID, err)
	}

	msg := tgbotapi.NewMessage(chatID, "🗑️ Plant removed from your garden.")
	if _, err := h.api.Send(msg); err != nil {
		return err
	}
	plants, loadErr := h.deps.GardenSvc.Plants(ctx, session.UserID)
	return menus.SendGardenMenu(h.api, chatID, plants, loadErr != nil)
}

func (h *CallbackHandler) handleDiagnose(chatID int64) error {
	h.stateManager.SetUserState(chatID, state.Diagnosing)
	msg := tgbotapi.NewMessage(chatID, "📷 Send a photo of the plant you want diagnosed.")
	msg.ReplyMarkup = keyboards.BackToMenu()
	_, err := h.api.Send(msg)
	return err
}

// handleSaveLog starts saving the last diagnosis as a growth log entry by
// asking which plant it belongs to.
func (h *CallbackHandler) handleSaveLog(ctx context.Context, chatID int64) error {
	session, err := h.requireSession(chatID)
	if err != nil || session == nil {
		return err
	}
	if _, ok := h.lastDiagnosis(chatID); !ok {
		msg := tgbotapi.NewMessage(chatID, "There is no diagnosis to save. Run one first.")
		msg.ReplyMarkup = keyboards.BackToMenu()
		_, sendErr := h.api.Send(msg)
		return sendErr
	}

	plants, loadErr := h.deps.GardenSvc.Plants(ctx, session.UserID)
	if len(plants) == 0 {
		text := "You have no plants yet. Add one first, then save the diagnosis."
		if loadErr != nil {
			text = "❌ " + apperrors.UserMessage(loadErr)
		}
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = keyboards.BackToMenu()
		_, sendErr := h.api.Send(msg)
		return sendErr
	}

	msg := tgbotapi.NewMessage(chatID, "Which plant is this diagnosis for?")
	msg.ReplyMarkup = keyboards.SavePlantPicker(plants)
	_, err = h.api.Send(msg)
	return err
}

// handleSaveTo writes the stashed diagnosis into the chosen plant's growth
// log, re-uploading the analyzed photo so the entry keeps its image.
func (h *CallbackHandler) handleSaveTo(ctx context.Context, chatID int64, arg string) error {
	if session, err := h.requireSession(chatID); err != nil || session == nil {
		return err
	}
	plantID, err := strconv.Atoi(arg)
	if err != nil {
		return h.handleUnknownCallback(chatID)
	}
	result, ok := h.lastDiagnosis(chatID)
	if !ok {
		msg := tgbotapi.NewMessage(chatID, "There is no diagnosis to save. Run one first.")
		msg.ReplyMarkup = keyboards.BackToMenu()
		_, sendErr := h.api.Send(msg)
		return sendErr
	}

	note := fmt.Sprintf("Diagnosis: %s (%.0f%% confidence)", result.DiseaseName, result.Confidence*100)
	if result.Details != nil && result.Details.Symptoms != "" {
		note += ". " + result.Details.Symptoms
	}

	var image []byte
	if fileID, ok := h.stateManager.GetTempData(chatID, state.TempLastPhoto); ok && fileID != "" {
		image, err = downloadTelegramFile(h.api, fileID)
		if err != nil {
			logger.Warningf("Could not re-download diagnosis photo for chat %d: %v", chatID, err)
			image = nil
		}
	}

	if err := h.deps.GardenSvc.AddLog(ctx, plantID, "", note, result.SuggestedStatus(), image, "diagnosis.jpg"); err != nil {
		return h.sendMutationError(chatID, plantID, err)
	}

	msg := tgbotapi.NewMessage(chatID, "💾 Diagnosis saved to the growth log.")
	if _, err := h.api.Send(msg); err != nil {
		return err
	}
	logs, loadErr := h.deps.GardenSvc.Logs(ctx, plantID)
	return menus.SendLogsMenu(h.api, chatID, plantID, logs, nil, loadErr != nil)
}

// handleAutoCheck toggles periodic re-diagnosis of the last analyzed photo
func (h *CallbackHandler) handleAutoCheck(ctx context.Context, chatID int64) error {
	fileID, ok := h.stateManager.GetTempData(chatID, state.TempLastPhoto)
	if !ok || fileID == "" {
		msg := tgbotapi.NewMessage(chatID, "Diagnose a plant first, then turn on auto-recheck.")
		msg.ReplyMarkup = keyboards.BackToMenu()
		_, err := h.api.Send(msg)
		return err
	}

	session, authenticated := h.deps.AuthSvc.Current(chatID)
	userID := 0
	if authenticated {
		userID = session.UserID
	}

	active := h.deps.AutoChecker.Toggle(ctx, chatID, func(ctx context.Context) {
		h.runAutoCheck(ctx, chatID, userID, fileID)
	})

	var text string
	if active {
		text = "▶️ Auto-recheck is on. I will re-analyze the last photo periodically until you stop me or run a new diagnosis."
	} else {
		text = "⏹️ Auto-recheck stopped."
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboards.DiagnosisMenu(authenticated, active)
	_, err := h.api.Send(msg)
	return err
}

// runAutoCheck is one periodic re-diagnosis tick
func (h *CallbackHandler) runAutoCheck(ctx context.Context, chatID int64, userID int, fileID string) {
	data, err := downloadTelegramFile(h.api, fileID)
	if err != nil {
		logger.Warningf("Auto-recheck download failed for chat %d: %v", chatID, err)
		return
	}
	result, err := h.deps.DiagnosisSvc.Diagnose(ctx, chatID, userID, data, "photo.jpg", "")
	if err != nil {
		logger.Warningf("Auto-recheck diagnosis failed for chat %d: %v", chatID, err)
		return
	}
	text := fmt.Sprintf("🔁 Auto-recheck: %s / %s (%.0f%%)",
		result.PlantName, result.DiseaseName, result.Confidence*100)
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.api.Send(msg); err != nil {
		logger.Warningf("Failed to send auto-recheck update to chat %d: %v", chatID, err)
	}
}

func (h *CallbackHandler) handleHistory(ctx context.Context, chatID int64) error {
	entries, err := h.deps.DiagnosisSvc.History(ctx, chatID, 10)
	if err != nil {
		logger.Errorf("Failed to load history for chat %d: %v", chatID, err)
		msg := tgbotapi.NewMessage(chatID, "❌ "+apperrors.UserMessage(err))
		msg.ReplyMarkup = keyboards.BackToMenu()
		_, sendErr := h.api.Send(msg)
		return sendErr
	}

	var text string
	if len(entries) == 0 {
		text = "No diagnoses yet. Send a plant photo to get started!"
	} else {
		text = "📜 Your recent diagnoses:\n\n"
		for _, e := range entries {
			text += fmt.Sprintf("• %s — %s / %s (%.0f%%)\n",
				e.When.Format("2006-01-02"), e.PlantName, e.DiseaseName, e.Confidence*100)
		}
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboards.BackToMenu()
	_, err = h.api.Send(msg)
	return err
}

func (h *CallbackHandler) handleAssistant(chatID int64) error {
	h.stateManager.SetUserState(chatID, state.WaitingForAssistant)
	msg := tgbotapi.NewMessage(chatID, "💬 What would you like to know? Ask anything about plant care, or name a website to open.")
	msg.ReplyMarkup = keyboards.BackToMenu()
	_, err := h.api.Send(msg)
	return err
}

// handleUnknownCallback handles unknown callbacks
func (h *CallbackHandler) handleUnknownCallback(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "Unknown action")
	_, err := h.api.Send(msg)
	return err
}

// requireSession returns the chat's session or prompts for login. A nil
// session with a nil error means the prompt was sent.
func (h *CallbackHandler) requireSession(chatID int64) (*domain.Session, error) {
	session, ok := h.deps.AuthSvc.Current(chatID)
	if ok {
		return session, nil
	}
	msg := tgbotapi.NewMessage(chatID, "Please log in to manage your garden.")
	msg.ReplyMarkup = keyboards.MainMenu(false)
	_, err := h.api.Send(msg)
	return nil, err
}

func (h *CallbackHandler) currentPlant(chatID int64) (int, bool) {
	raw, ok := h.stateManager.GetTempData(chatID, state.TempCurrentPlant)
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (h *CallbackHandler) lastDiagnosis(chatID int64) (*domain.DiagnosisResult, bool) {
	raw, ok := h.stateManager.GetTempData(chatID, state.TempDiagnosis)
	if !ok || raw == "" {
		return nil, false
	}
	var result domain.DiagnosisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, false
	}
	return &result, true
}

// cachedLogs reads a plant's log collection from the store without touching
// the network.
func (h *CallbackHandler) cachedLogs(plantID int) ([]domain.GrowthLogEntry, bool) {
	snap := h.deps.Store.Get(store.LogsKey(plantID))
	if !snap.HasData {
		return nil, false
	}
	logs, ok := snap.Data.([]domain.GrowthLogEntry)
	return logs, ok
}

// sendMutationError reports a failed garden write. A busy rejection gets its
// own wording since the user's change was not lost, just not started.
func (h *CallbackHandler) sendMutationError(chatID int64, plantID int, err error) error {
	text := "❌ " + apperrors.UserMessage(err)
	if apperrors.IsType(err, apperrors.ErrorTypeBusy) {
		text = "⏳ Another change is still in progress. Wait for it to finish and try again."
	}
	logger.Warningf("Garden mutation failed for chat %d plant %d: %v", chatID, plantID, err)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboards.PlantMenu(plantID)
	_, sendErr := h.api.Send(msg)
	return sendErr
}
