package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/plantguardian/garden-helper/internal/bot/keyboards"
	"github.com/plantguardian/garden-helper/internal/bot/menus"
	"github.com/plantguardian/garden-helper/internal/bot/state"
	apperrors "github.com/plantguardian/garden-helper/internal/errors"
	"github.com/plantguardian/garden-helper/internal/logger"
)

// TextHandler handles text messages
type TextHandler struct {
	api          *tgbotapi.BotAPI
	deps         Dependencies
	stateManager state.StateManager
}

// NewTextHandler creates a new text handler
func NewTextHandler(api *tgbotapi.BotAPI, deps Dependencies, stateManager state.StateManager) *TextHandler {
	return &TextHandler{
		api:          api,
		deps:         deps,
		stateManager: stateManager,
	}
}

// Handle processes a text message
func (h *TextHandler) Handle(ctx context.Context, message *tgbotapi.Message) error {
	userState := h.stateManager.GetUserState(message.Chat.ID)

	switch userState {
	case state.WaitingForLoginName:
		return h.handleLoginName(message)
	case state.WaitingForLoginPassword:
		return h.handleLoginPassword(ctx, message)
	case state.WaitingForRegName:
		return h.handleRegName(message)
	case state.WaitingForRegEmail:
		return h.handleRegEmail(message)
	case state.WaitingForRegPassword:
		return h.handleRegPassword(ctx, message)
	case state.WaitingForPlantName:
		return h.handlePlantName(message)
	case state.WaitingForPlantSpecies:
		return h.handlePlantSpecies(message)
	case state.WaitingForPlantDate:
		return h.handlePlantDate(ctx, message)
	case state.WaitingForLogNote:
		return h.handleLogNote(message)
	case state.WaitingForAssistant:
		return h.handleAssistant(ctx, message)
	default:
		return h.handleDefaultText(message.Chat.ID)
	}
}

func (h *TextHandler) handleLoginName(message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	h.stateManager.SetTempData(chatID, state.TempLoginName, strings.TrimSpace(message.Text))
	h.stateManager.SetUserState(chatID, state.WaitingForLoginPassword)

	msg := tgbotapi.NewMessage(chatID, "Enter your password:")
	msg.ReplyMarkup = keyboards.BackToMenu()
	_, err := h.api.Send(msg)
	return err
}

func (h *TextHandler) handleLoginPassword(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	username, _ := h.stateManager.GetTempData(chatID, state.TempLoginName)

	session, err := h.deps.AuthSvc.Login(ctx, chatID, username, message.Text)
	if err != nil {
		logger.Warningf("Login failed for chat %d: %v", chatID, err)
		msg := tgbotapi.NewMessage(chatID, "❌ "+apperrors.UserMessage(err))
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔑 Try again", "login"),
				tgbotapi.NewInlineKeyboardButtonData("◀️ Main menu", "main_menu"),
			),
		)
		h.stateManager.SetUserState(chatID, state.None)
		_, sendErr := h.api.Send(msg)
		return sendErr
	}

	h.stateManager.ClearTempData(chatID)
	h.stateManager.SetUserState(chatID, state.None)
	return menus.SendMainMenu(h.api, chatID, session)
}

func (h *TextHandler) handleRegName(message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	h.stateManager.SetTempData(chatID, state.TempRegName, strings.TrimSpace(message.Text))
	h.stateManager.SetUserState(chatID, state.WaitingForRegEmail)

	msg := tgbotapi.NewMessage(chatID, "Enter your email address:")
	msg.ReplyMarkup = keyboards.BackToMenu()
	_, err := h.api.Send(msg)
	return err
}

func (h *TextHandler) handleRegEmail(message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	email := strings.TrimSpace(message.Text)
	if !strings.Contains(email, "@") {
		msg := tgbotapi.NewMessage(chatID, "That does not look like an email address. Try again:")
		_, err := h.api.Send(msg)
		return err
	}
	h.stateManager.SetTempData(chatID, state.TempRegEmail, email)
	h.stateManager.SetUserState(chatID, state.WaitingForRegPassword)

	msg := tgbotapi.NewMessage(chatID, "Choose a password:")
	msg.ReplyMarkup = keyboards.BackToMenu()
	_, err := h.api.Send(msg)
	return err
}

func (h *TextHandler) handleRegPassword(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	username, _ := h.stateManager.GetTempData(chatID, state.TempRegName)
	email, _ := h.stateManager.GetTempData(chatID, state.TempRegEmail)

	session, err := h.deps.AuthSvc.Register(ctx, chatID, username, email, message.Text)
	if err != nil {
		logger.Warningf("Registration failed for chat %d: %v", chatID, err)
		msg := tgbotapi.NewMessage(chatID, "❌ "+apperrors.UserMessage(err))
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("📝 Try again", "register"),
				tgbotapi.NewInlineKeyboardButtonData("◀️ Main menu", "main_menu"),
			),
		)
		h.stateManager.SetUserState(chatID, state.None)
		_, sendErr := h.api.Send(msg)
		return sendErr
	}

	h.stateManager.ClearTempData(chatID)
	h.stateManager.SetUserState(chatID, state.None)
	return menus.SendMainMenu(h.api, chatID, session)
}

func (h *TextHandler) handlePlantName(message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	h.stateManager.SetTempData(chatID, state.TempPlantName, strings.TrimSpace(message.Text))
	h.stateManager.SetUserState(chatID, state.WaitingForPlantSpecies)

	msg := tgbotapi.NewMessage(chatID, "What species is it? (e.g. Tomato)")
	msg.ReplyMarkup = keyboards.BackToMenu()
	_, err := h.api.Send(msg)
	return err
}

func (h *TextHandler) handlePlantSpecies(message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	h.stateManager.SetTempData(chatID, state.TempPlantSpecies, strings.TrimSpace(message.Text))
	h.stateManager.SetUserState(chatID, state.WaitingForPlantDate)

	msg := tgbotapi.NewMessage(chatID, "When was it planted? Send a date like 2024-05-17, or \"today\":")
	msg.ReplyMarkup = keyboards.BackToMenu()
	_, err := h.api.Send(msg)
	return err
}

func (h *TextHandler) handlePlantDate(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	session, ok := h.deps.AuthSvc.Current(chatID)
	if !ok {
		return h.sessionExpired(chatID)
	}

	date := strings.TrimSpace(message.Text)
	if strings.EqualFold(date, "today") {
		date = ""
	}
	name, _ := h.stateManager.GetTempData(chatID, state.TempPlantName)
	species, _ := h.stateManager.GetTempData(chatID, state.TempPlantSpecies)

	if err := h.deps.GardenSvc.AddPlant(ctx, session.UserID, name, species, date); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			msg := tgbotapi.NewMessage(chatID, "❌ "+apperrors.UserMessage(err)+"\nTry the date again:")
			_, sendErr := h.api.Send(msg)
			return sendErr
		}
		logger.Errorf("Failed to add plant for chat %d: %v", chatID, err)
		msg := tgbotapi.NewMessage(chatID, "❌ "+apperrors.UserMessage(err))
		msg.ReplyMarkup = keyboards.BackToMenu()
		h.stateManager.SetUserState(chatID, state.None)
		_, sendErr := h.api.Send(msg)
		return sendErr
	}

	h.stateManager.ClearTempData(chatID)
	h.stateManager.SetUserState(chatID, state.None)

	plants, err := h.deps.GardenSvc.Plants(ctx, session.UserID)
	return menus.SendGardenMenu(h.api, chatID, plants, err != nil)
}

func (h *TextHandler) handleLogNote(message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	note := strings.TrimSpace(message.Text)
	if note == "" {
		msg := tgbotapi.NewMessage(chatID, "The note must not be empty. Describe how the plant looks:")
		_, err := h.api.Send(msg)
		return err
	}
	h.stateManager.SetTempData(chatID, state.TempLogNote, note)
	h.stateManager.SetUserState(chatID, state.None)

	msg := tgbotapi.NewMessage(chatID, "Pick the plant's current status:")
	msg.ReplyMarkup = keyboards.StatusMenu()
	_, err := h.api.Send(msg)
	return err
}

func (h *TextHandler) handleAssistant(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	h.stateManager.SetUserState(chatID, state.None)

	answer, err := h.deps.AssistantSvc.Ask(ctx, message.Text)
	if err != nil {
		logger.Errorf("Assistant query failed for chat %d: %v", chatID, err)
		msg := tgbotapi.NewMessage(chatID, "❌ "+apperrors.UserMessage(err))
		msg.ReplyMarkup = keyboards.BackToMenu()
		_, sendErr := h.api.Send(msg)
		return sendErr
	}

	msg := tgbotapi.NewMessage(chatID, answer.Text)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = keyboards.AssistantAnswerKeyboard(answer.OpenURL)
	if _, err := h.api.Send(msg); err != nil {
		// If Markdown parsing fails, try sending without Markdown
		msg.ParseMode = ""
		_, err = h.api.Send(msg)
		return err
	}
	return nil
}

// handleDefaultText handles text when no specific state is set
func (h *TextHandler) handleDefaultText(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "Please use the menu to choose an action.")
	_, err := h.api.Send(msg)
	return err
}

func (h *TextHandler) sessionExpired(chatID int64) error {
	h.stateManager.SetUserState(chatID, state.None)
	msg := tgbotapi.NewMessage(chatID, "Your session has ended. Please log in again.")
	msg.ReplyMarkup = keyboards.MainMenu(false)
	_, err := h.api.Send(msg)
	return err
}
