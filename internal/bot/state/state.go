package state

import "github.com/plantguardian/garden-helper/internal/domain"

// Temp data keys shared between handlers.
const (
	TempLoginName    = "login_name"
	TempRegName      = "reg_name"
	TempRegEmail     = "reg_email"
	TempPlantName    = "plant_name"
	TempPlantSpecies = "plant_species"
	TempCurrentPlant = "current_plant"
	TempLogNote      = "log_note"
	TempSelectedLogs = "selected_logs"
	TempDiagnosis    = "pending_diagnosis"
	TempLastPhoto    = "last_photo"
)

// StateManager is the contract both the in-memory and the Redis manager
// satisfy. The session record lives under a single well-known key per chat
// and is cleared wholesale on logout.
type StateManager interface {
	SetUserState(chatID int64, state string)
	GetUserState(chatID int64) string
	SetTempData(chatID int64, key, value string)
	GetTempData(chatID int64, key string) (string, bool)
	ClearTempData(chatID int64)
	SaveSession(chatID int64, session domain.Session) error
	GetSession(chatID int64) (*domain.Session, bool)
	ClearSession(chatID int64)
}
