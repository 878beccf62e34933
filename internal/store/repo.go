package store

import (
	"context"
	"time"

	"github.com/vladmir0512/deadline-bot/internal/domain"
)

// SettingsUpdate is a closed set of patchable notification settings.
// Nil fields are left untouched. Using a typed patch instead of
// name-driven updates means a typo is a compile error, not a silently
// ignored write.
type SettingsUpdate struct {
	Enabled        *bool
	NotifyHour     *int
	QuietStart     *string
	QuietEnd       *string
	DailyEnabled   *bool
	WeeklyEnabled  *bool
	HalfwayEnabled *bool
	WeeklyDays     []int
}

// Repo defines storage operations for users, deadlines, subscriptions,
// notification settings and moderation state.
type Repo interface {
	// Users.
	GetOrCreateUser(ctx context.Context, telegramID int64) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	SetUsername(ctx context.Context, telegramID int64, username string) error
	SetEmail(ctx context.Context, telegramID int64, email string) error
	ListRegisteredUsers(ctx context.Context) ([]domain.User, error)

	// Deadlines.
	UpsertDeadline(ctx context.Context, d *domain.Deadline) (created bool, err error)
	GetDeadline(ctx context.Context, id int64) (*domain.Deadline, error)
	ListActiveFutureDeadlines(ctx context.Context, userID int64, now time.Time) ([]domain.Deadline, error)
	MarkNotified(ctx context.Context, deadlineID int64, at time.Time) error
	SetDeadlineStatus(ctx context.Context, deadlineID int64, status string) error
	DeleteExpiredDeadlines(ctx context.Context, before time.Time) (int64, error)
	DeleteMissingDeadlines(ctx context.Context, userID int64, source string, keepTitles []string) (int64, error)

	// Subscriptions.
	GetSubscription(ctx context.Context, userID int64, subType string) (*domain.Subscription, error)
	ToggleSubscription(ctx context.Context, userID int64, subType string) (bool, error)
	ListActiveSubscribers(ctx context.Context, subType string) ([]domain.User, error)

	// Notification settings.
	GetOrCreateSettings(ctx context.Context, userID int64) (domain.Settings, error)
	UpdateSettings(ctx context.Context, userID int64, upd SettingsUpdate) error
	ResetSettings(ctx context.Context, userID int64) error

	// Moderation.
	BlockUser(ctx context.Context, telegramID int64, reason string, blockedBy int64) error
	UnblockUser(ctx context.Context, telegramID int64) (bool, error)
	IsBlocked(ctx context.Context, telegramID int64) (bool, error)
	ListBlockedUsers(ctx context.Context) ([]domain.BlockedUser, error)

	// Verifications.
	CreateVerification(ctx context.Context, deadlineID, userID int64, comment string) (*domain.Verification, error)
	ListPendingVerifications(ctx context.Context) ([]domain.Verification, error)
	ResolveVerification(ctx context.Context, id int64, status string, adminID int64, comment string) (*domain.Verification, error)

	Close() error
}
