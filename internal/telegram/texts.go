package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vladmir0512/deadline-bot/internal/domain"
)

const (
	startText = "👋 I track your Yonote deadlines and remind you in time.\n\n" +
		"Register your Yonote nick with /register, then /subscribe to get reminders:\n" +
		"deadlines due today, tomorrow, within a week, and when half of the time is gone.\n\n" +
		"Tune everything with /notifications."

	helpText = "📖 Commands:\n\n" +
		"/register — link your Yonote nick\n" +
		"/email — link your Yonote email\n" +
		"/logout — unlink the nick\n" +
		"/my_deadlines — list your active deadlines\n" +
		"/sync — pull fresh deadlines from Yonote\n" +
		"/subscribe — toggle reminders on/off\n" +
		"/notifications — notification settings\n" +
		"/help — this message"

	adminHelpText = "\n\n🔧 Admin commands:\n" +
		"/broadcast — message all subscribers\n" +
		"/subscribers — list active subscribers\n" +
		"/block, /unblock, /blocked_users — moderation\n" +
		"/verify_deadlines — review completion requests\n" +
		"/check_notifications — run a dispatch pass now\n" +
		"/test_halfway — inspect half-life windows for your deadlines"
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/my_deadlines"),
			tgbotapi.NewKeyboardButton("/sync"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/notifications"),
			tgbotapi.NewKeyboardButton("/help"),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// settingsText renders the current notification settings.
func settingsText(s domain.Settings) string {
	return fmt.Sprintf(
		"⚙️ Notification settings\n\n"+
			"🔔 Notifications: %s\n"+
			"⏰ Delivery hour: %02d:00\n"+
			"🌙 Quiet hours: %s–%s\n\n"+
			"📅 Daily reminders: %s\n"+
			"📆 Weekly reminders: %s\n"+
			"⏳ Halfway reminders: %s\n"+
			"📊 Weekly days: %s",
		onOff(s.Enabled),
		s.NotifyHour,
		s.QuietStart, s.QuietEnd,
		onOff(s.DailyEnabled),
		onOff(s.WeeklyEnabled),
		onOff(s.HalfwayEnabled),
		domain.FormatWeekdays(s.WeeklyDays),
	)
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

func settingsKeyboard(s domain.Settings) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔔 Notifications: "+onOff(s.Enabled), "ntf:toggle"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Daily: "+onOff(s.DailyEnabled), "ntf:daily"),
			tgbotapi.NewInlineKeyboardButtonData("📆 Weekly: "+onOff(s.WeeklyEnabled), "ntf:weekly"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏳ Halfway: "+onOff(s.HalfwayEnabled), "ntf:halfway"),
			tgbotapi.NewInlineKeyboardButtonData("⏰ Hour", "ntf:hour"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌙 Quiet hours", "ntf:quiet"),
			tgbotapi.NewInlineKeyboardButtonData("📊 Weekly days", "ntf:days"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("↩️ Reset to defaults", "ntf:reset"),
		),
	)
}

// deadlineKeyboard offers a completion request button for one deadline.
func deadlineKeyboard(deadlineID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Mark as done", fmt.Sprintf("verify:%d", deadlineID)),
		),
	)
}

// verificationKeyboard offers admin approve/reject for one request.
func verificationKeyboard(verificationID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Approve", fmt.Sprintf("vapprove:%d", verificationID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Reject", fmt.Sprintf("vreject:%d", verificationID)),
		),
	)
}
