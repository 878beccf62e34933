package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/vladmir0512/deadline-bot/internal/domain"
)

// requireAdmin answers non-admins and reports whether the caller may
// proceed.
func (r *Router) requireAdmin(chatID, fromID int64) bool {
	if r.cfg.IsAdmin(fromID) {
		return true
	}
	r.log.Warn("admin command denied", zap.Int64("telegramID", fromID))
	r.sendText(chatID, "This command is for administrators only.")
	return false
}

// --- Broadcast ---

func (r *Router) handleBroadcast(ctx context.Context, chatID, fromID int64, args string) {
	if !r.requireAdmin(chatID, fromID) {
		return
	}
	if args == "" {
		r.sendText(chatID, "Send the broadcast text in one message:")
		r.sessions.begin(chatID, awaitBroadcast)
		return
	}
	r.runBroadcast(ctx, chatID, fromID, args)
}

func (r *Router) runBroadcast(ctx context.Context, chatID, fromID int64, text string) {
	if !r.cfg.IsAdmin(fromID) {
		return
	}
	subs, err := r.repo.ListActiveSubscribers(ctx, subscriptionType)
	if err != nil {
		r.log.Error("list subscribers failed", zap.Error(err))
		r.sendText(chatID, "Broadcast failed.")
		return
	}

	sent := 0
	for _, u := range subs {
		if err := r.SendMessage(u.TelegramID, "📢 "+text); err != nil {
			r.log.Error("broadcast send failed", zap.Error(err), zap.Int64("chatID", u.TelegramID))
			continue
		}
		sent++
	}
	r.sendText(chatID, fmt.Sprintf("📢 Broadcast delivered to %d of %d subscribers.", sent, len(subs)))
}

func (r *Router) handleSubscribers(ctx context.Context, chatID, fromID int64) {
	if !r.requireAdmin(chatID, fromID) {
		return
	}
	subs, err := r.repo.ListActiveSubscribers(ctx, subscriptionType)
	if err != nil {
		r.log.Error("list subscribers failed", zap.Error(err))
		r.sendText(chatID, "Error listing subscribers.")
		return
	}
	if len(subs) == 0 {
		r.sendText(chatID, "No active subscribers.")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👥 Active subscribers: %d\n\n", len(subs))
	for _, u := range subs {
		nick := u.Username
		if nick == "" {
			nick = "(no nick)"
		}
		fmt.Fprintf(&b, "• %d — %s\n", u.TelegramID, nick)
	}
	r.sendText(chatID, b.String())
}

// --- Block list ---

func (r *Router) handleBlock(ctx context.Context, chatID, fromID int64, args string) {
	if !r.requireAdmin(chatID, fromID) {
		return
	}
	id, reason, ok := splitIDArg(args)
	if !ok {
		r.sendText(chatID, "Usage: /block <telegram_id> [reason]")
		return
	}
	if r.cfg.IsAdmin(id) {
		r.sendText(chatID, "Admins cannot be blocked.")
		return
	}
	if err := r.repo.BlockUser(ctx, id, reason, fromID); err != nil {
		r.log.Error("block failed", zap.Error(err))
		r.sendText(chatID, "Block failed.")
		return
	}
	r.sendText(chatID, fmt.Sprintf("🚫 User %d blocked.", id))
}

func (r *Router) handleUnblock(ctx context.Context, chatID, fromID int64, args string) {
	if !r.requireAdmin(chatID, fromID) {
		return
	}
	id, _, ok := splitIDArg(args)
	if !ok {
		r.sendText(chatID, "Usage: /unblock <telegram_id>")
		return
	}
	removed, err := r.repo.UnblockUser(ctx, id)
	if err != nil {
		r.log.Error("unblock failed", zap.Error(err))
		r.sendText(chatID, "Unblock failed.")
		return
	}
	if !removed {
		r.sendText(chatID, fmt.Sprintf("User %d was not blocked.", id))
		return
	}
	r.sendText(chatID, fmt.Sprintf("✅ User %d unblocked.", id))
}

func (r *Router) handleBlockedUsers(ctx context.Context, chatID, fromID int64) {
	if !r.requireAdmin(chatID, fromID) {
		return
	}
	blocked, err := r.repo.ListBlockedUsers(ctx)
	if err != nil {
		r.log.Error("list blocked failed", zap.Error(err))
		r.sendText(chatID, "Error listing blocked users.")
		return
	}
	if len(blocked) == 0 {
		r.sendText(chatID, "The block list is empty.")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🚫 Blocked users: %d\n\n", len(blocked))
	for _, bu := range blocked {
		fmt.Fprintf(&b, "• %d", bu.TelegramID)
		if bu.Reason != "" {
			fmt.Fprintf(&b, " — %s", bu.Reason)
		}
		b.WriteString("\n")
	}
	r.sendText(chatID, b.String())
}

func splitIDArg(args string) (id int64, rest string, ok bool) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, "", false
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return id, strings.Join(fields[1:], " "), true
}

// --- Verification review ---

func (r *Router) handleVerifyDeadlines(ctx context.Context, chatID, fromID int64) {
	if !r.requireAdmin(chatID, fromID) {
		return
	}
	pending, err := r.repo.ListPendingVerifications(ctx)
	if err != nil {
		r.log.Error("list verifications failed", zap.Error(err))
		r.sendText(chatID, "Error listing completion requests.")
		return
	}
	if len(pending) == 0 {
		r.sendText(chatID, "No pending completion requests.")
		return
	}

	r.sendText(chatID, fmt.Sprintf("🔎 Pending completion requests: %d", len(pending)))
	for _, v := range pending {
		dl, err := r.repo.GetDeadline(ctx, v.DeadlineID)
		if err != nil {
			r.log.Error("load deadline failed", zap.Error(err), zap.Int64("deadlineID", v.DeadlineID))
			continue
		}
		text := fmt.Sprintf("\"%s\"\nRequested: %s", dl.Title, v.CreatedAt.In(r.loc).Format("02 Jan 15:04"))
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = verificationKeyboard(v.ID)
		if _, err := r.bot.Send(msg); err != nil {
			r.log.Error("send failed", zap.Error(err), zap.Int64("chatID", chatID))
			return
		}
	}
}

func (r *Router) handleVerifyResolve(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery, idArg string, approve bool) {
	if !r.cfg.IsAdmin(cb.From.ID) {
		_ = r.answerCallback(cb.ID, "Admins only")
		return
	}
	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		_ = r.answerCallback(cb.ID, "")
		return
	}

	status := domain.VerificationRejected
	if approve {
		status = domain.VerificationApproved
	}
	v, err := r.repo.ResolveVerification(ctx, id, status, cb.From.ID, "")
	if err != nil {
		r.log.Error("resolve verification failed", zap.Error(err), zap.Int64("verificationID", id))
		_ = r.answerCallback(cb.ID, "Already resolved?")
		return
	}

	// Approved requests complete the deadline; rejected ones return it
	// to the active pool.
	newStatus := domain.StatusActive
	if approve {
		newStatus = domain.StatusCompleted
	}
	if err := r.repo.SetDeadlineStatus(ctx, v.DeadlineID, newStatus); err != nil {
		r.log.Error("set deadline status failed", zap.Error(err), zap.Int64("deadlineID", v.DeadlineID))
	}

	r.notifyVerificationOwner(ctx, v, approve)
	if approve {
		_ = r.answerCallback(cb.ID, "Approved")
	} else {
		_ = r.answerCallback(cb.ID, "Rejected")
	}
}

func (r *Router) notifyVerificationOwner(ctx context.Context, v *domain.Verification, approved bool) {
	dl, err := r.repo.GetDeadline(ctx, v.DeadlineID)
	if err != nil {
		r.log.Error("load deadline failed", zap.Error(err), zap.Int64("deadlineID", v.DeadlineID))
		return
	}
	owner, err := r.repo.GetUser(ctx, v.UserID)
	if err != nil {
		r.log.Error("load owner failed", zap.Error(err), zap.Int64("userID", v.UserID))
		return
	}

	text := "❌ Completion of \"" + dl.Title + "\" was rejected; the deadline is active again."
	if approved {
		text = "✅ \"" + dl.Title + "\" is confirmed as completed. Well done!"
	}
	if err := r.SendMessage(owner.TelegramID, text); err != nil {
		r.log.Error("notify owner failed", zap.Error(err), zap.Int64("chatID", owner.TelegramID))
	}
}

// --- Halfway diagnostic ---

// handleTestHalfway prints the midpoint math for the caller's own
// deadlines so an admin can see why a half-life reminder did or did
// not fire.
func (r *Router) handleTestHalfway(ctx context.Context, chatID, fromID int64) {
	if !r.requireAdmin(chatID, fromID) {
		return
	}
	u, err := r.ensureUser(ctx, chatID)
	if err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		r.sendText(chatID, "Error loading your deadlines.")
		return
	}
	now := time.Now().UTC()
	deadlines, err := r.repo.ListActiveFutureDeadlines(ctx, u.ID, now)
	if err != nil {
		r.log.Error("list deadlines failed", zap.Error(err))
		r.sendText(chatID, "Error loading your deadlines.")
		return
	}
	r.sendText(chatID, halfwayReport(deadlines, now, r.loc))
}

// halfwayReport renders one line per deadline with its midpoint and
// whether the half-life window is open right now.
func halfwayReport(deadlines []domain.Deadline, now time.Time, loc *time.Location) string {
	if len(deadlines) == 0 {
		return "No active deadlines to inspect."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⏳ Halfway check at %s\n\n", now.In(loc).Format("02 Jan 15:04"))
	for _, d := range deadlines {
		if d.DueAt == nil {
			fmt.Fprintf(&b, "• %s\n  no due date, skipped\n", d.Title)
			continue
		}
		midpoint := d.CreatedAt.Add(d.DueAt.Sub(d.CreatedAt) / 2)
		state := "window closed"
		if domain.AtHalfway(d.CreatedAt, *d.DueAt, d.NotifiedAt, now) {
			state = "window open"
		}
		fmt.Fprintf(&b, "• %s\n  due %s, midpoint %s, %s\n",
			d.Title,
			d.DueAt.In(loc).Format("02 Jan 15:04"),
			midpoint.In(loc).Format("02 Jan 15:04"),
			state,
		)
	}
	return b.String()
}

// --- Manual dispatch pass ---

func (r *Router) handleCheckNotifications(ctx context.Context, chatID, fromID int64) {
	if !r.requireAdmin(chatID, fromID) {
		return
	}
	if r.passes == nil {
		r.sendText(chatID, "Dispatcher is not running.")
		return
	}

	stats, err := r.passes.RunPass(ctx, time.Now().UTC())
	if err != nil {
		r.log.Error("manual pass failed", zap.Error(err))
		r.sendText(chatID, "Dispatch pass failed.")
		return
	}
	r.sendText(chatID, fmt.Sprintf(
		"✅ Dispatch pass finished.\nUsers notified: %d\nNotifications sent: %d",
		stats.UsersNotified, stats.Sent,
	))
}
