package telegram

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/vladmir0512/deadline-bot/internal/config"
	"github.com/vladmir0512/deadline-bot/internal/domain"
	"github.com/vladmir0512/deadline-bot/internal/notify"
	"github.com/vladmir0512/deadline-bot/internal/store"
)

const sessionTTL = 10 * time.Minute

// Syncer pulls deadlines from the external source. nil when Yonote
// credentials are not configured.
type Syncer interface {
	SyncUser(ctx context.Context, u *domain.User) (created, updated int, err error)
}

// PassRunner runs one notification dispatch pass on demand.
type PassRunner interface {
	RunPass(ctx context.Context, now time.Time) (notify.Stats, error)
}

// Router wires Telegram updates to handlers.
type Router struct {
	bot      *tgbotapi.BotAPI
	log      *zap.Logger
	repo     store.Repo
	cfg      config.Config
	loc      *time.Location
	sessions *sessionStore
	syncer   Syncer
	passes   PassRunner
}

func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, repo store.Repo, cfg config.Config, loc *time.Location, syncer Syncer) *Router {
	if loc == nil {
		loc = time.UTC
	}
	return &Router{
		bot:      bot,
		log:      log,
		repo:     repo,
		cfg:      cfg,
		loc:      loc,
		sessions: newSessionStore(sessionTTL),
		syncer:   syncer,
	}
}

// SetPassRunner attaches the dispatcher after construction; the
// dispatcher itself sends through this Router.
func (r *Router) SetPassRunner(p PassRunner) { r.passes = p }

// HandleUpdate routes a single update. Blocked users are dropped before
// any handling.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil:
		msg := upd.Message
		if r.dropBlocked(ctx, msg.From) {
			return
		}
		r.handleMessage(ctx, msg)

	case upd.CallbackQuery != nil:
		cb := upd.CallbackQuery
		if r.dropBlocked(ctx, cb.From) {
			return
		}
		r.handleCallback(ctx, cb)
	}
}

func (r *Router) dropBlocked(ctx context.Context, from *tgbotapi.User) bool {
	if from == nil {
		return true
	}
	blocked, err := r.repo.IsBlocked(ctx, from.ID)
	if err != nil {
		r.log.Error("blocked check failed", zap.Error(err), zap.Int64("telegramID", from.ID))
		return false
	}
	return blocked
}

func (r *Router) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		r.sessions.clear(chatID)
		args := strings.TrimSpace(msg.CommandArguments())

		switch msg.Command() {
		case "start":
			r.handleStart(ctx, chatID)
		case "help":
			r.handleHelp(chatID, msg.From.ID)
		case "register":
			r.handleRegister(ctx, chatID, args)
		case "email":
			r.handleEmail(ctx, chatID, args)
		case "logout":
			r.handleLogout(ctx, chatID)
		case "my_deadlines":
			r.handleMyDeadlines(ctx, chatID)
		case "sync":
			r.handleSync(ctx, chatID)
		case "subscribe":
			r.handleSubscribe(ctx, chatID)
		case "notifications":
			r.handleNotifications(ctx, chatID)

		case "broadcast":
			r.handleBroadcast(ctx, chatID, msg.From.ID, args)
		case "subscribers":
			r.handleSubscribers(ctx, chatID, msg.From.ID)
		case "block":
			r.handleBlock(ctx, chatID, msg.From.ID, args)
		case "unblock":
			r.handleUnblock(ctx, chatID, msg.From.ID, args)
		case "blocked_users":
			r.handleBlockedUsers(ctx, chatID, msg.From.ID)
		case "verify_deadlines":
			r.handleVerifyDeadlines(ctx, chatID, msg.From.ID)
		case "check_notifications":
			r.handleCheckNotifications(ctx, chatID, msg.From.ID)
		case "test_halfway":
			r.handleTestHalfway(ctx, chatID, msg.From.ID)

		default:
			r.sendText(chatID, "Unknown command. See /help.")
		}
		return
	}

	r.handleFreeForm(ctx, chatID, msg.From.ID, strings.TrimSpace(msg.Text))
}

func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	data := cb.Data

	switch {
	case strings.HasPrefix(data, "ntf:"):
		r.handleSettingsCallback(ctx, chatID, cb, strings.TrimPrefix(data, "ntf:"))
	case strings.HasPrefix(data, "verify:"):
		r.handleVerifyRequest(ctx, chatID, cb, strings.TrimPrefix(data, "verify:"))
	case strings.HasPrefix(data, "vapprove:"):
		r.handleVerifyResolve(ctx, chatID, cb, strings.TrimPrefix(data, "vapprove:"), true)
	case strings.HasPrefix(data, "vreject:"):
		r.handleVerifyResolve(ctx, chatID, cb, strings.TrimPrefix(data, "vreject:"), false)
	default:
		_ = r.answerCallback(cb.ID, "")
	}
}

// SendMessage sends a plain text message to the given chat. This makes
// Router satisfy notify.Sender.
func (r *Router) SendMessage(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (r *Router) sendText(chatID int64, text string) {
	if err := r.SendMessage(chatID, text); err != nil {
		r.log.Error("send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(id, text))
	return err
}
