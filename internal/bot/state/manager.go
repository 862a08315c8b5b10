package state

import (
	"sync"

	"github.com/plantguardian/garden-helper/internal/domain"
)

// User states constants
const (
	None                    = "none"
	WaitingForLoginName     = "waiting_for_login_name"
	WaitingForLoginPassword = "waiting_for_login_password"
	WaitingForRegName       = "waiting_for_reg_name"
	WaitingForRegEmail      = "waiting_for_reg_email"
	WaitingForRegPassword   = "waiting_for_reg_password"
	WaitingForPlantName     = "waiting_for_plant_name"
	WaitingForPlantSpecies  = "waiting_for_plant_species"
	WaitingForPlantDate     = "waiting_for_plant_date"
	WaitingForLogNote       = "waiting_for_log_note"
	WaitingForAssistant     = "waiting_for_assistant"
	Diagnosing              = "diagnosing"
)

// Manager keeps user states, temporary flow data and the session record in
// memory. Used when no Redis instance is configured.
type Manager struct {
	userStates map[int64]string
	tempData   map[int64]map[string]string
	sessions   map[int64]domain.Session
	mu         sync.RWMutex
}

// NewManager creates a new in-memory state manager
func NewManager() *Manager {
	return &Manager{
		userStates: make(map[int64]string),
		tempData:   make(map[int64]map[string]string),
		sessions:   make(map[int64]domain.Session),
	}
}

// SetUserState sets the conversation state for a chat
func (m *Manager) SetUserState(chatID int64, state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userStates[chatID] = state
}

// GetUserState gets the conversation state for a chat
func (m *Manager) GetUserState(chatID int64) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, exists := m.userStates[chatID]
	if !exists {
		return None
	}
	return state
}

// SetTempData sets one temporary value for a chat's active flow
func (m *Manager) SetTempData(chatID int64, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tempData[chatID] == nil {
		m.tempData[chatID] = make(map[string]string)
	}
	m.tempData[chatID][key] = value
}

// GetTempData gets one temporary value for a chat's active flow
func (m *Manager) GetTempData(chatID int64, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chatData, exists := m.tempData[chatID]
	if !exists {
		return "", false
	}
	value, exists := chatData[key]
	return value, exists
}

// ClearTempData clears all temporary data for a chat
func (m *Manager) ClearTempData(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tempData, chatID)
}

// SaveSession stores the chat's session record. At most one session exists
// per chat; saving replaces any previous one.
func (m *Manager) SaveSession(chatID int64, session domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[chatID] = session
	return nil
}

// GetSession returns the chat's session record, if any
func (m *Manager) GetSession(chatID int64) (*domain.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, exists := m.sessions[chatID]
	if !exists {
		return nil, false
	}
	return &session, true
}

// ClearSession removes the chat's session record wholesale
func (m *Manager) ClearSession(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}
