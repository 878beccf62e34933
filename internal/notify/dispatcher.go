// Package notify implements the periodic notification pass: classify
// each subscriber's deadlines into time buckets, detect half-life
// marks, filter through per-user settings and throttle repeats.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vladmir0512/deadline-bot/internal/domain"
	"github.com/vladmir0512/deadline-bot/internal/store"
)

// Sender delivers a text message to a Telegram chat.
// telegram.Router implements this.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// Stats summarizes one dispatch pass.
type Stats struct {
	UsersNotified int
	Sent          int
}

// Dispatcher runs notification passes over all active subscribers.
// Passes are serialized by a mutex: the scheduler and the manual admin
// trigger run on different goroutines, and the read-decide-write of
// last_notified_at must never interleave.
type Dispatcher struct {
	mu     sync.Mutex
	repo   store.Repo
	sender Sender
	log    *zap.Logger
	loc    *time.Location
}

func NewDispatcher(repo store.Repo, sender Sender, log *zap.Logger, loc *time.Location) *Dispatcher {
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{repo: repo, sender: sender, log: log, loc: loc}
}

// RunPass processes every active subscriber once. A failing user is
// logged and skipped; the pass always completes.
func (d *Dispatcher) RunPass(ctx context.Context, now time.Time) (Stats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	passID := uuid.NewString()
	now = now.UTC()

	users, err := d.repo.ListActiveSubscribers(ctx, "telegram")
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for _, u := range users {
		sent, err := d.notifyUser(ctx, &u, now)
		if err != nil {
			d.log.Error("notify user failed",
				zap.Error(err),
				zap.Int64("userID", u.ID),
				zap.String("pass", passID),
			)
			continue
		}
		stats.Sent += sent
		if sent > 0 {
			stats.UsersNotified++
		}
	}

	d.log.Info("dispatch pass finished",
		zap.String("pass", passID),
		zap.Int("subscribers", len(users)),
		zap.Int("usersNotified", stats.UsersNotified),
		zap.Int("sent", stats.Sent),
	)
	return stats, nil
}

func (d *Dispatcher) notifyUser(ctx context.Context, u *domain.User, now time.Time) (int, error) {
	settings, err := d.repo.GetOrCreateSettings(ctx, u.ID)
	if err != nil {
		// Settings must never block a pass; fall back to defaults.
		d.log.Warn("load settings failed, using defaults", zap.Error(err), zap.Int64("userID", u.ID))
		settings = domain.DefaultSettings(u.ID)
	}

	deadlines, err := d.repo.ListActiveFutureDeadlines(ctx, u.ID, now)
	if err != nil {
		return 0, err
	}
	if len(deadlines) == 0 {
		return 0, nil
	}

	nowLocal := now.In(d.loc)
	sent := 0

	// One time bucket per user per pass, most urgent first. Users with
	// a deadline today are not additionally reminded about next week.
	today, tomorrow, week := partition(deadlines, now, d.loc)
	switch {
	case len(today) > 0:
		sent += d.sendBucket(ctx, u, settings, today, domain.BucketToday, nowLocal, now)
	case len(tomorrow) > 0:
		sent += d.sendBucket(ctx, u, settings, tomorrow, domain.BucketTomorrow, nowLocal, now)
	case len(week) > 0:
		// Only the nearest weekly deadline is announced.
		sent += d.sendBucket(ctx, u, settings, week[:1], domain.BucketWeek, nowLocal, now)
	}

	// Half-life reminders are independent of the time buckets: they are
	// time-sensitive and fire whenever the midpoint window is hit.
	if settings.AllowedAt(domain.BucketHalfway, nowLocal) {
		for i := range deadlines {
			dl := &deadlines[i]
			if dl.DueAt == nil {
				continue
			}
			if !domain.AtHalfway(dl.CreatedAt, *dl.DueAt, dl.NotifiedAt, now) {
				continue
			}
			if !domain.ShouldSend(dl.NotifiedAt, domain.BucketHalfway, now) {
				continue
			}
			if d.deliver(ctx, u, dl, domain.BucketHalfway, now) {
				sent++
			}
		}
	}

	return sent, nil
}

// sendBucket delivers one bucket's deadlines, subject to the settings
// gate (once per bucket) and the per-deadline repeat throttle.
func (d *Dispatcher) sendBucket(ctx context.Context, u *domain.User, settings domain.Settings,
	deadlines []*domain.Deadline, bucket domain.Bucket, nowLocal, now time.Time) int {

	if !settings.AllowedAt(bucket, nowLocal) {
		return 0
	}

	sent := 0
	for _, dl := range deadlines {
		if !domain.ShouldSend(dl.NotifiedAt, bucket, now) {
			continue
		}
		if d.deliver(ctx, u, dl, bucket, now) {
			sent++
		}
	}
	return sent
}

// deliver sends one notification and, only after a confirmed send,
// persists last_notified_at. A send or persist failure affects this
// deadline only.
func (d *Dispatcher) deliver(ctx context.Context, u *domain.User, dl *domain.Deadline, bucket domain.Bucket, now time.Time) bool {
	text := FormatNotification(dl, bucket, d.loc)
	if err := d.sender.SendMessage(u.TelegramID, text); err != nil {
		d.log.Error("send failed",
			zap.Error(err),
			zap.Int64("chatID", u.TelegramID),
			zap.Int64("deadlineID", dl.ID),
			zap.String("bucket", string(bucket)),
		)
		return false
	}

	if err := d.repo.MarkNotified(ctx, dl.ID, now); err != nil {
		d.log.Error("mark notified failed", zap.Error(err), zap.Int64("deadlineID", dl.ID))
		// The message went out; count it even if the timestamp write
		// failed. The throttle will recover on the next pass.
	}
	notified := now
	dl.NotifiedAt = &notified
	return true
}

// partition splits deadlines into today/tomorrow/week buckets. Input
// order (due date ascending) is preserved within each bucket. The
// buckets point into the caller's slice so a delivery updates the same
// NotifiedAt the later half-life check reads.
func partition(deadlines []domain.Deadline, now time.Time, loc *time.Location) (today, tomorrow, week []*domain.Deadline) {
	for i := range deadlines {
		dl := &deadlines[i]
		switch domain.Classify(*dl, now, loc) {
		case domain.BucketToday:
			today = append(today, dl)
		case domain.BucketTomorrow:
			tomorrow = append(tomorrow, dl)
		case domain.BucketWeek:
			week = append(week, dl)
		}
	}
	return today, tomorrow, week
}
