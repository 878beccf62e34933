package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/vladmir0512/deadline-bot/internal/domain"
	"github.com/vladmir0512/deadline-bot/internal/notify"
	"github.com/vladmir0512/deadline-bot/internal/store"
)

const subscriptionType = "telegram"

// ensureUser makes sure a user row exists for the chat.
func (r *Router) ensureUser(ctx context.Context, chatID int64) (*domain.User, error) {
	return r.repo.GetOrCreateUser(ctx, chatID)
}

// --- Core commands ---

func (r *Router) handleStart(ctx context.Context, chatID int64) {
	if _, err := r.ensureUser(ctx, chatID); err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		r.sendText(chatID, "Profile initialization error. Please try again later.")
		return
	}
	msg := tgbotapi.NewMessage(chatID, startText)
	msg.ReplyMarkup = mainMenuKeyboard()
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Error("send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

func (r *Router) handleHelp(chatID, fromID int64) {
	text := helpText
	if r.cfg.IsAdmin(fromID) {
		text += adminHelpText
	}
	r.sendText(chatID, text)
}

// --- Registration ---

func (r *Router) handleRegister(ctx context.Context, chatID int64, args string) {
	if _, err := r.ensureUser(ctx, chatID); err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		r.sendText(chatID, "Registration error. Please try again later.")
		return
	}
	if args == "" {
		r.sendText(chatID, "Send your Yonote nick in one message (as it appears in the deadline table):")
		r.sessions.begin(chatID, awaitNick)
		return
	}
	r.saveNick(ctx, chatID, args)
}

func (r *Router) saveNick(ctx context.Context, chatID int64, nick string) {
	nick = strings.TrimSpace(nick)
	if nick == "" || len(nick) > 255 {
		r.sendText(chatID, "That doesn't look like a nick. Try again with /register.")
		return
	}
	if err := r.repo.SetUsername(ctx, chatID, nick); err != nil {
		r.log.Error("save nick failed", zap.Error(err))
		r.sendText(chatID, "Could not save the nick.")
		return
	}
	r.sendText(chatID, "Registered as \""+nick+"\". Use /sync to pull your deadlines, /subscribe to get reminders.")
}

// handleEmail links the user's Yonote email, the second identity the
// sync matches assignees against.
func (r *Router) handleEmail(ctx context.Context, chatID int64, args string) {
	if _, err := r.ensureUser(ctx, chatID); err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		r.sendText(chatID, "Registration error. Please try again later.")
		return
	}
	if args == "" {
		r.sendText(chatID, "Send the email you use in Yonote:")
		r.sessions.begin(chatID, awaitEmail)
		return
	}
	r.saveEmail(ctx, chatID, args)
}

func (r *Router) saveEmail(ctx context.Context, chatID int64, email string) {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") || len(email) > 255 {
		r.sendText(chatID, "That doesn't look like an email. Try again with /email.")
		return
	}
	if err := r.repo.SetEmail(ctx, chatID, email); err != nil {
		r.log.Error("save email failed", zap.Error(err))
		r.sendText(chatID, "Could not save the email.")
		return
	}
	r.sendText(chatID, "Email linked. Deadlines assigned to \""+email+"\" will sync too.")
}

func (r *Router) handleLogout(ctx context.Context, chatID int64) {
	if err := r.repo.SetUsername(ctx, chatID, ""); err != nil && !errors.Is(err, store.ErrNotFound) {
		r.log.Error("logout failed", zap.Error(err))
		r.sendText(chatID, "Could not unlink the nick.")
		return
	}
	r.sendText(chatID, "Nick unlinked. Deadline sync is off until you /register again.")
}

// --- Deadlines ---

func (r *Router) handleMyDeadlines(ctx context.Context, chatID int64) {
	u, err := r.ensureUser(ctx, chatID)
	if err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		r.sendText(chatID, "Error reading your deadlines.")
		return
	}
	if u.Username == "" {
		r.sendText(chatID, "Link your Yonote nick first: /register")
		return
	}

	deadlines, err := r.repo.ListActiveFutureDeadlines(ctx, u.ID, time.Now().UTC())
	if err != nil {
		r.log.Error("list deadlines failed", zap.Error(err))
		r.sendText(chatID, "Error reading your deadlines.")
		return
	}
	if len(deadlines) == 0 {
		r.sendText(chatID, "No active deadlines. 🎉")
		return
	}

	r.sendText(chatID, fmt.Sprintf("📋 Active deadlines: %d", len(deadlines)))
	for i := range deadlines {
		dl := &deadlines[i]
		msg := tgbotapi.NewMessage(chatID, notify.FormatDeadline(dl, r.loc))
		msg.ReplyMarkup = deadlineKeyboard(dl.ID)
		if _, err := r.bot.Send(msg); err != nil {
			r.log.Error("send failed", zap.Error(err), zap.Int64("chatID", chatID))
			return
		}
	}
}

func (r *Router) handleSync(ctx context.Context, chatID int64) {
	if r.syncer == nil {
		r.sendText(chatID, "Deadline sync is not configured on this bot.")
		return
	}
	u, err := r.ensureUser(ctx, chatID)
	if err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		r.sendText(chatID, "Sync error. Please try again later.")
		return
	}
	if u.Username == "" {
		r.sendText(chatID, "Link your Yonote nick first: /register")
		return
	}

	r.sendText(chatID, "⏳ Syncing…")
	created, updated, err := r.syncer.SyncUser(ctx, u)
	if err != nil {
		r.log.Error("sync failed", zap.Error(err), zap.Int64("userID", u.ID))
		r.sendText(chatID, "Sync failed. Please try again later.")
		return
	}
	r.sendText(chatID, fmt.Sprintf("✅ Sync finished: %d new, %d updated.", created, updated))
}

// --- Subscription ---

func (r *Router) handleSubscribe(ctx context.Context, chatID int64) {
	u, err := r.ensureUser(ctx, chatID)
	if err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		r.sendText(chatID, "Subscription error. Please try again later.")
		return
	}
	active, err := r.repo.ToggleSubscription(ctx, u.ID, subscriptionType)
	if err != nil {
		r.log.Error("toggle subscription failed", zap.Error(err))
		r.sendText(chatID, "Subscription error. Please try again later.")
		return
	}
	if active {
		r.sendText(chatID, "🔔 Reminders are ON. Tune them with /notifications.")
	} else {
		r.sendText(chatID, "🔕 Reminders are OFF. /subscribe again to re-enable.")
	}
}

// --- Notification settings ---

func (r *Router) handleNotifications(ctx context.Context, chatID int64) {
	u, err := r.ensureUser(ctx, chatID)
	if err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		r.sendText(chatID, "Error opening settings.")
		return
	}
	r.sendSettings(ctx, chatID, u.ID)
}

func (r *Router) sendSettings(ctx context.Context, chatID, userID int64) {
	s, err := r.repo.GetOrCreateSettings(ctx, userID)
	if err != nil {
		r.log.Error("load settings failed", zap.Error(err))
		r.sendText(chatID, "Error reading your settings.")
		return
	}
	msg := tgbotapi.NewMessage(chatID, settingsText(s))
	msg.ReplyMarkup = settingsKeyboard(s)
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Error("send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

func (r *Router) handleSettingsCallback(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery, action string) {
	u, err := r.ensureUser(ctx, chatID)
	if err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		_ = r.answerCallback(cb.ID, "Error")
		return
	}

	s, err := r.repo.GetOrCreateSettings(ctx, u.ID)
	if err != nil {
		r.log.Error("load settings failed", zap.Error(err))
		_ = r.answerCallback(cb.ID, "Error")
		return
	}

	var upd store.SettingsUpdate
	switch action {
	case "toggle":
		v := !s.Enabled
		upd.Enabled = &v
	case "daily":
		v := !s.DailyEnabled
		upd.DailyEnabled = &v
	case "weekly":
		v := !s.WeeklyEnabled
		upd.WeeklyEnabled = &v
	case "halfway":
		v := !s.HalfwayEnabled
		upd.HalfwayEnabled = &v

	case "hour":
		_ = r.answerCallback(cb.ID, "")
		r.sendText(chatID, "At what hour should non-urgent reminders arrive? (0-23, e.g. 9)")
		r.sessions.begin(chatID, awaitHour)
		return
	case "quiet":
		_ = r.answerCallback(cb.ID, "")
		r.sendText(chatID, "Enter quiet hours as HH:MM-HH:MM (e.g. 22:00-08:00). Reminders are muted inside this window.")
		r.sessions.begin(chatID, awaitQuiet)
		return
	case "days":
		_ = r.answerCallback(cb.ID, "")
		r.sendText(chatID, "Which weekdays for weekly reminders? E.g. mon-fri or mon,wed,fri")
		r.sessions.begin(chatID, awaitDays)
		return

	case "reset":
		if err := r.repo.ResetSettings(ctx, u.ID); err != nil {
			r.log.Error("reset settings failed", zap.Error(err))
			_ = r.answerCallback(cb.ID, "Error")
			return
		}
		_ = r.answerCallback(cb.ID, "Defaults restored")
		r.sendSettings(ctx, chatID, u.ID)
		return

	default:
		_ = r.answerCallback(cb.ID, "")
		return
	}

	if err := r.repo.UpdateSettings(ctx, u.ID, upd); err != nil {
		r.log.Error("update settings failed", zap.Error(err))
		_ = r.answerCallback(cb.ID, "Error")
		return
	}
	_ = r.answerCallback(cb.ID, "Saved")
	r.sendSettings(ctx, chatID, u.ID)
}

// --- Free-form input (pending wizard steps) ---

func (r *Router) handleFreeForm(ctx context.Context, chatID, fromID int64, text string) {
	state := r.sessions.take(chatID)
	if state == "" || text == "" {
		return
	}

	switch state {
	case awaitNick:
		r.saveNick(ctx, chatID, text)

	case awaitEmail:
		r.saveEmail(ctx, chatID, text)

	case awaitHour:
		hour, err := domain.ParseHour(text)
		if err != nil {
			r.sendText(chatID, "Invalid hour. Examples: 9, 18.")
			return
		}
		r.applySettingsUpdate(ctx, chatID, store.SettingsUpdate{NotifyHour: &hour})

	case awaitQuiet:
		start, end, err := domain.ParseQuietWindow(text)
		if err != nil {
			r.sendText(chatID, "Invalid format. Example: 22:00-08:00")
			return
		}
		r.applySettingsUpdate(ctx, chatID, store.SettingsUpdate{QuietStart: &start, QuietEnd: &end})

	case awaitDays:
		days, err := domain.ParseWeekdays(text)
		if err != nil {
			r.sendText(chatID, "Invalid format. Examples: mon-fri or mon,wed,fri")
			return
		}
		r.applySettingsUpdate(ctx, chatID, store.SettingsUpdate{WeeklyDays: days})

	case awaitBroadcast:
		r.runBroadcast(ctx, chatID, fromID, text)
	}
}

func (r *Router) applySettingsUpdate(ctx context.Context, chatID int64, upd store.SettingsUpdate) {
	u, err := r.ensureUser(ctx, chatID)
	if err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		r.sendText(chatID, "Could not save settings.")
		return
	}
	if err := r.repo.UpdateSettings(ctx, u.ID, upd); err != nil {
		r.log.Error("update settings failed", zap.Error(err))
		r.sendText(chatID, "Could not save settings.")
		return
	}
	r.sendSettings(ctx, chatID, u.ID)
}

// --- Completion verification (user side) ---

func (r *Router) handleVerifyRequest(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery, idArg string) {
	deadlineID, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		_ = r.answerCallback(cb.ID, "")
		return
	}

	u, err := r.ensureUser(ctx, chatID)
	if err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		_ = r.answerCallback(cb.ID, "Error")
		return
	}

	dl, err := r.repo.GetDeadline(ctx, deadlineID)
	if err != nil || dl.UserID != u.ID {
		_ = r.answerCallback(cb.ID, "Deadline not found")
		return
	}
	if dl.Status != domain.StatusActive {
		_ = r.answerCallback(cb.ID, "Already submitted")
		return
	}

	if _, err := r.repo.CreateVerification(ctx, dl.ID, u.ID, ""); err != nil {
		r.log.Error("create verification failed", zap.Error(err))
		_ = r.answerCallback(cb.ID, "Error")
		return
	}
	if err := r.repo.SetDeadlineStatus(ctx, dl.ID, domain.StatusPendingVerification); err != nil {
		r.log.Error("set status failed", zap.Error(err))
	}

	_ = r.answerCallback(cb.ID, "Sent for review")
	r.sendText(chatID, "📨 \""+dl.Title+"\" was sent to the admins for completion review.")
	r.notifyAdmins(fmt.Sprintf("🔎 New completion request: \"%s\" (use /verify_deadlines)", dl.Title))
}

func (r *Router) notifyAdmins(text string) {
	for _, adminID := range r.cfg.AdminIDs {
		if err := r.SendMessage(adminID, text); err != nil {
			r.log.Error("notify admin failed", zap.Error(err), zap.Int64("adminID", adminID))
		}
	}
}
