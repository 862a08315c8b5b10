package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/plantguardian/garden-helper/internal/bot/menus"
	"github.com/plantguardian/garden-helper/internal/bot/state"
	"github.com/plantguardian/garden-helper/internal/logger"
)

// CommandHandler handles bot commands
type CommandHandler struct {
	api          *tgbotapi.BotAPI
	deps         Dependencies
	stateManager state.StateManager
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(api *tgbotapi.BotAPI, deps Dependencies, stateManager state.StateManager) *CommandHandler {
	return &CommandHandler{
		api:          api,
		deps:         deps,
		stateManager: stateManager,
	}
}

// Handle processes a command message
func (h *CommandHandler) Handle(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	logger.Infof("Handling command %s from chat %d", message.Command(), chatID)

	switch message.Command() {
	case "start":
		h.stateManager.SetUserState(chatID, state.None)
		session, _ := h.deps.AuthSvc.Current(chatID)
		return menus.SendMainMenu(h.api, chatID, session)
	case "logout":
		h.deps.AutoChecker.Stop(chatID)
		if err := h.deps.AuthSvc.Logout(chatID); err != nil {
			logger.Errorf("Logout failed for chat %d: %v", chatID, err)
		}
		return menus.SendMainMenu(h.api, chatID, nil)
	case "help":
		return h.handleHelp(chatID)
	default:
		return h.handleUnknownCommand(chatID)
	}
}

// handleHelp handles the /help command
func (h *CommandHandler) handleHelp(chatID int64) error {
	text := `Available commands:
/start - Show the main menu
/logout - End your session
/help - Show this message

How to diagnose a plant:
1. Tap "🔬 Diagnose a plant"
2. Send a photo of the plant
3. Get the disease, severity and treatments

Log in to track your garden: add plants, keep growth logs and compare them over time. Auto-recheck repeats the last diagnosis periodically until you stop it or run a new one.`

	msg := tgbotapi.NewMessage(chatID, text)
	_, err := h.api.Send(msg)
	return err
}

// handleUnknownCommand handles unknown commands
func (h *CommandHandler) handleUnknownCommand(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "Unknown command. Use /help to see the available commands.")
	_, err := h.api.Send(msg)
	return err
}
