package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/plantguardian/garden-helper/internal/api"
	"github.com/plantguardian/garden-helper/internal/bot/state"
	"github.com/plantguardian/garden-helper/internal/database"
	"github.com/plantguardian/garden-helper/internal/domain"
	apperrors "github.com/plantguardian/garden-helper/internal/errors"
	"github.com/plantguardian/garden-helper/internal/logger"
	"github.com/plantguardian/garden-helper/internal/store"
	"gorm.io/gorm"
)

// AuthService owns the session lifecycle for a chat. Logout invalidates the
// resource store before the session record is removed so that no in-flight
// response of the old account can ever land in the next one's views.
type AuthService struct {
	client *api.Client
	store  *store.Store
	states state.StateManager
	db     *gorm.DB
}

func NewAuthService(client *api.Client, st *store.Store, states state.StateManager, db *gorm.DB) *AuthService {
	return &AuthService{
		client: client,
		store:  st,
		states: states,
		db:     db,
	}
}

// Login authenticates against the backend and persists the session record.
func (s *AuthService) Login(ctx context.Context, chatID int64, username, password string) (*domain.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.NewValidationError("Username and password must not be empty")
	}

	result, err := s.client.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	session := domain.Session{
		UserID:   result.UserID,
		Username: result.Username,
		IssuedAt: time.Now(),
	}
	if err := s.states.SaveSession(chatID, session); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeInternal, "SESSION_SAVE", "Failed to persist session")
	}
	s.linkAccount(chatID, result)
	return &session, nil
}

// Register creates a backend account and logs the chat in with it.
func (s *AuthService) Register(ctx context.Context, chatID int64, username, email, password string) (*domain.Session, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, apperrors.NewValidationError("Username, email and password must not be empty")
	}
	if !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("Please provide a valid email address")
	}

	result, err := s.client.Register(ctx, username, email, password)
	if err != nil {
		return nil, err
	}

	session := domain.Session{
		UserID:   result.UserID,
		Username: result.Username,
		IssuedAt: time.Now(),
	}
	if err := s.states.SaveSession(chatID, session); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeInternal, "SESSION_SAVE", "Failed to persist session")
	}
	s.linkAccount(chatID, result)
	return &session, nil
}

// Logout ends the chat's session. The order matters: the store is invalidated
// first, then the session record is cleared, so a late response from the old
// account is discarded rather than cached for whoever logs in next.
func (s *AuthService) Logout(chatID int64) error {
	s.store.InvalidateAll()
	s.states.ClearSession(chatID)
	s.states.ClearTempData(chatID)
	s.states.SetUserState(chatID, state.None)
	return nil
}

// Current returns the chat's active session, if any.
func (s *AuthService) Current(chatID int64) (*domain.Session, bool) {
	return s.states.GetSession(chatID)
}

// linkAccount records the Telegram to backend account mapping. Purely
// auxiliary; a database failure must not fail the login.
func (s *AuthService) linkAccount(chatID int64, result *api.AuthResult) {
	if s.db == nil {
		return
	}
	var account database.LinkedAccount
	err := s.db.Where("telegram_id = ?", chatID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		account = database.LinkedAccount{
			TelegramID:    chatID,
			BackendUserID: result.UserID,
			Username:      result.Username,
		}
		err = s.db.Create(&account).Error
	} else if err == nil {
		account.BackendUserID = result.UserID
		account.Username = result.Username
		err = s.db.Save(&account).Error
	}
	if err != nil {
		logger.Errorf("Failed to link account for chat %d: %v", chatID, err)
	}
}
