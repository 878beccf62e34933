package domain

import "time"

// Deadline status values as stored in the deadlines table.
const (
	StatusActive              = "active"
	StatusCompleted           = "completed"
	StatusCanceled            = "canceled"
	StatusPendingVerification = "pending_verification"
)

// Deadline is a tracked task synced from Yonote or created locally.
type Deadline struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	DueAt       *time.Time // UTC, nullable; no due date means invisible to notifications
	Status      string
	Source      string
	SourceID    string
	CreatedAt   time.Time  // UTC, origin of the half-life calculation
	UpdatedAt   time.Time  // UTC
	NotifiedAt  *time.Time // UTC, nullable; last successful notification
}

// User is a Telegram user known to the bot. Username is the Yonote nick
// registered via /register; users without one are skipped by the sync.
type User struct {
	ID         int64
	TelegramID int64
	Username   string
	Email      string
	CreatedAt  time.Time
}

// Subscription gates whether a user receives notifications at all,
// independently of Settings.Enabled (both must hold).
type Subscription struct {
	ID        int64
	UserID    int64
	Type      string // delivery channel, "telegram" for now
	Active    bool
	CreatedAt time.Time
}

// BlockedUser is a Telegram id banned from interacting with the bot.
type BlockedUser struct {
	ID         int64
	TelegramID int64
	Reason     string
	BlockedBy  int64
	CreatedAt  time.Time
}

// Verification statuses for deadline completion review.
const (
	VerificationPending  = "pending"
	VerificationApproved = "approved"
	VerificationRejected = "rejected"
)

// Verification is a user's request to have a deadline marked completed,
// reviewed by an admin.
type Verification struct {
	ID           int64
	DeadlineID   int64
	UserID       int64
	Status       string
	UserComment  string
	AdminComment string
	VerifiedBy   *int64
	CreatedAt    time.Time
	VerifiedAt   *time.Time
}
