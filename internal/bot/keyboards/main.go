package keyboards

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/plantguardian/garden-helper/internal/domain"
)

// MainMenu creates the main menu keyboard. Garden actions only appear for an
// authenticated chat.
func MainMenu(authenticated bool) tgbotapi.InlineKeyboardMarkup {
	if !authenticated {
		return tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔑 Log in", "login"),
				tgbotapi.NewInlineKeyboardButtonData("📝 Register", "register"),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔬 Diagnose a plant", "diagnose"),
				tgbotapi.NewInlineKeyboardButtonData("💬 Assistant", "assistant"),
			),
		)
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌱 My garden", "my_garden"),
			tgbotapi.NewInlineKeyboardButtonData("🔬 Diagnose a plant", "diagnose"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💬 Assistant", "assistant"),
			tgbotapi.NewInlineKeyboardButtonData("📜 History", "history"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚪 Log out", "logout"),
		),
	)
}

// BackToMenu creates a single back button keyboard
func BackToMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ Main menu", "main_menu"),
		),
	)
}

// GardenMenu lists the user's plants, one button per plant.
func GardenMenu(plants []domain.PlantRecord) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range plants {
		label := fmt.Sprintf("🌿 %s (%s)", p.Name, p.Species)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("plant:%d", p.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➕ Add plant", "add_plant"),
		tgbotapi.NewInlineKeyboardButtonData("◀️ Main menu", "main_menu"),
	))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// PlantMenu creates the per-plant action keyboard
func PlantMenu(plantID int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📈 Growth log", fmt.Sprintf("logs:%d", plantID)),
			tgbotapi.NewInlineKeyboardButtonData("✍️ Add entry", fmt.Sprintf("add_log:%d", plantID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑️ Delete plant", fmt.Sprintf("delete_plant:%d", plantID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ My garden", "my_garden"),
		),
	)
}

// LogsMenu lists growth log entries with selection toggles for comparison.
// At most two entries can be selected at a time.
func LogsMenu(plantID int, logs []domain.GrowthLogEntry, selected []int) tgbotapi.InlineKeyboardMarkup {
	selectedSet := make(map[int]bool, len(selected))
	for _, id := range selected {
		selectedSet[id] = true
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, l := range logs {
		mark := "⬜"
		if selectedSet[l.ID] {
			mark = "✅"
		}
		label := fmt.Sprintf("%s %s: %s", mark, l.Date, l.Status)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("sel_log:%d", l.ID)),
		))
	}
	if len(selected) == 2 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔍 Compare selected", fmt.Sprintf("compare:%d", plantID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✍️ Add entry", fmt.Sprintf("add_log:%d", plantID)),
		tgbotapi.NewInlineKeyboardButtonData("◀️ Back", fmt.Sprintf("plant:%d", plantID)),
	))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// StatusMenu lets the user pick a growth status for a new log entry
func StatusMenu() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, status := range domain.LogStatuses {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(status, "log_status:"+status),
		))
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// DiagnosisMenu creates the keyboard shown under a diagnosis result. The
// auto-recheck button reflects whether periodic re-diagnosis is running for
// this chat.
func DiagnosisMenu(authenticated, autoOn bool) tgbotapi.InlineKeyboardMarkup {
	autoLabel := "▶️ Start auto-recheck"
	if autoOn {
		autoLabel = "⏹️ Stop auto-recheck"
	}
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(autoLabel, "auto_check"),
			tgbotapi.NewInlineKeyboardButtonData("🔄 New diagnosis", "diagnose"),
		),
	}
	if authenticated {
		rows = append([][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("💾 Save as growth log", "save_log"),
			),
		}, rows...)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️ Main menu", "main_menu"),
	))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// SavePlantPicker lists plants as save targets for a diagnosis log entry
func SavePlantPicker(plants []domain.PlantRecord) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range plants {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌿 "+p.Name, fmt.Sprintf("save_to:%d", p.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️ Main menu", "main_menu"),
	))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// AssistantAnswerKeyboard adds an open-site button when the assistant
// resolved the query to a website.
func AssistantAnswerKeyboard(openURL string) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	if openURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🌐 Open site", openURL),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("💬 Ask again", "assistant"),
		tgbotapi.NewInlineKeyboardButtonData("◀️ Main menu", "main_menu"),
	))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}
