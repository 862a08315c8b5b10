package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/plantguardian/garden-helper/internal/bot/handlers"
	"github.com/plantguardian/garden-helper/internal/bot/state"
	apperrors "github.com/plantguardian/garden-helper/internal/errors"
	"github.com/plantguardian/garden-helper/internal/logger"
)

// Bot is the telegram front of the garden helper.
type Bot struct {
	api           *tgbotapi.BotAPI
	updateHandler *handlers.UpdateHandler
	autoChecker   *handlers.AutoChecker
	errHandler    *apperrors.Handler
}

// NewBot creates the bot and authorizes it against the Telegram API.
func NewBot(token string, deps handlers.Dependencies, stateManager state.StateManager) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Infof("Bot authorized on account %s", api.Self.UserName)
	return &Bot{
		api:           api,
		updateHandler: handlers.NewUpdateHandler(api, deps, stateManager),
		autoChecker:   deps.AutoChecker,
		errHandler:    apperrors.NewHandler(logger.GetLogger()),
	}, nil
}

// Start runs the update loop until the context is cancelled. On shutdown
// every auto-recheck runner is stopped before returning.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	logger.Info("Bot is now listening for updates...")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Bot is shutting down...")
			b.autoChecker.StopAll()
			return ctx.Err()
		case update := <-updates:
			if err := b.updateHandler.Handle(ctx, update); err != nil {
				b.errHandler.Handle(ctx, err)
			}
		}
	}
}
