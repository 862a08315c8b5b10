package menus

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/plantguardian/garden-helper/internal/bot/keyboards"
	"github.com/plantguardian/garden-helper/internal/domain"
)

// SendMainMenu sends the main menu to a chat
func SendMainMenu(api *tgbotapi.BotAPI, chatID int64, session *domain.Session) error {
	var text string
	if session != nil {
		text = fmt.Sprintf(`🌱 *Plant Guardian* — hello, %s!

Send a photo of a plant and I will:
• Identify the species
• Detect diseases and their severity
• Suggest prevention and treatments

Track your garden, keep growth logs and compare them over time.

Choose an action:`, session.Username)
	} else {
		text = `🌱 *Plant Guardian* — your plant care companion

Send a photo of a plant and I will:
• Identify the species
• Detect diseases and their severity
• Suggest prevention and treatments

Log in to track your garden and keep growth logs.

Choose an action:`
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = keyboards.MainMenu(session != nil)
	_, err := api.Send(msg)
	return err
}

// SendGardenMenu sends the plant list. A stale collection is labeled so the
// user knows the refresh failed.
func SendGardenMenu(api *tgbotapi.BotAPI, chatID int64, plants []domain.PlantRecord, stale bool) error {
	var text string
	if len(plants) == 0 {
		text = "Your garden is empty. Add your first plant!"
	} else {
		text = fmt.Sprintf("🌱 Your garden (%d plants):", len(plants))
	}
	if stale {
		text += "\n\n⚠️ Could not refresh; showing the last known list."
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboards.GardenMenu(plants)
	_, err := api.Send(msg)
	return err
}

// SendLogsMenu sends a plant's growth log, newest first
func SendLogsMenu(api *tgbotapi.BotAPI, chatID int64, plantID int, logs []domain.GrowthLogEntry, selected []int, stale bool) error {
	var text string
	if len(logs) == 0 {
		text = "No growth log entries yet. Add the first one!"
	} else {
		text = "📈 Growth log (newest first):\n\n"
		for _, l := range logs {
			text += fmt.Sprintf("• %s [%s] %s\n", l.Date, l.Status, l.Note)
		}
		text += "\nTap two entries to compare them."
	}
	if stale {
		text += "\n\n⚠️ Could not refresh; showing the last known entries."
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboards.LogsMenu(plantID, logs, selected)
	_, err := api.Send(msg)
	return err
}

// SendDiagnosisResult renders a diagnosis under the analyzed photo
func SendDiagnosisResult(api *tgbotapi.BotAPI, chatID int64, fileID string, result *domain.DiagnosisResult, authenticated, autoOn bool) error {
	text := FormatDiagnosis(result)

	photoMsg := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	photoMsg.Caption = text
	photoMsg.ParseMode = "Markdown"
	photoMsg.ReplyMarkup = keyboards.DiagnosisMenu(authenticated, autoOn)

	_, err := api.Send(photoMsg)
	if err != nil {
		// If Markdown parsing fails, try sending without Markdown
		photoMsg.ParseMode = ""
		_, err = api.Send(photoMsg)
	}
	return err
}

// FormatDiagnosis builds the caption text for a diagnosis result. Telegram
// caps captions at 1024 characters, so long sections are truncated.
func FormatDiagnosis(result *domain.DiagnosisResult) string {
	text := fmt.Sprintf("🔬 *Diagnosis*\n\n"+
		"🌿 *Plant:* %s\n"+
		"🦠 *Disease:* %s\n"+
		"🎯 *Confidence:* %.0f%%\n",
		result.PlantName,
		result.DiseaseName,
		result.Confidence*100,
	)
	if result.Details != nil {
		d := result.Details
		text += fmt.Sprintf("⚠️ *Severity:* %s\n\n*Symptoms:* %s\n\n*Prevention:* %s\n",
			d.Severity, truncate(d.Symptoms, 250), truncate(d.Prevention, 200))
		for _, t := range d.Treatments {
			text += fmt.Sprintf("\n💊 *%s:* %s (cost: %s)", t.Type, truncate(t.Description, 200), t.CostApprox)
		}
	}
	const maxCaptionLength = 1024
	if len(text) > maxCaptionLength {
		text = text[:maxCaptionLength-3] + "..."
	}
	return text
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
