package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vladmir0512/deadline-bot/internal/domain"
	"github.com/vladmir0512/deadline-bot/internal/store"
)

// Monday 09:00 UTC, the default notify hour outside quiet hours.
var passNow = time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

type fakeRepo struct {
	store.Repo // panics on anything the dispatcher should not call

	users     []domain.User
	settings  map[int64]domain.Settings
	deadlines map[int64][]domain.Deadline

	marked []int64
}

func (f *fakeRepo) ListActiveSubscribers(ctx context.Context, subType string) ([]domain.User, error) {
	return f.users, nil
}

func (f *fakeRepo) GetOrCreateSettings(ctx context.Context, userID int64) (domain.Settings, error) {
	if s, ok := f.settings[userID]; ok {
		return s, nil
	}
	return domain.DefaultSettings(userID), nil
}

func (f *fakeRepo) ListActiveFutureDeadlines(ctx context.Context, userID int64, now time.Time) ([]domain.Deadline, error) {
	return f.deadlines[userID], nil
}

func (f *fakeRepo) MarkNotified(ctx context.Context, deadlineID int64, at time.Time) error {
	f.marked = append(f.marked, deadlineID)
	return nil
}

type fakeSender struct {
	sent     []int64 // chat ids in send order
	failChat int64
}

func (f *fakeSender) SendMessage(chatID int64, text string) error {
	if f.failChat != 0 && chatID == f.failChat {
		return errors.New("chat not found")
	}
	f.sent = append(f.sent, chatID)
	return nil
}

func dl(id, userID int64, created, due time.Time) domain.Deadline {
	return domain.Deadline{
		ID:        id,
		UserID:    userID,
		Title:     "task",
		Status:    domain.StatusActive,
		CreatedAt: created,
		DueAt:     &due,
	}
}

func newTestDispatcher(repo *fakeRepo, sender *fakeSender) *Dispatcher {
	return NewDispatcher(repo, sender, zap.NewNop(), time.UTC)
}

func TestRunPass_TodaySuppressesOtherBuckets(t *testing.T) {
	created := passNow.Add(-time.Hour)
	repo := &fakeRepo{
		users: []domain.User{{ID: 1, TelegramID: 100}},
		deadlines: map[int64][]domain.Deadline{
			1: {
				dl(10, 1, created, passNow.Add(5*time.Hour)),  // today
				dl(11, 1, created, passNow.Add(48*time.Hour)), // this week
				dl(12, 1, created, passNow.Add(72*time.Hour)), // this week
			},
		},
	}
	sender := &fakeSender{}

	stats, err := newTestDispatcher(repo, sender).RunPass(context.Background(), passNow)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if stats.Sent != 1 || stats.UsersNotified != 1 {
		t.Fatalf("stats = %+v, want 1 message to 1 user", stats)
	}
	if len(repo.marked) != 1 || repo.marked[0] != 10 {
		t.Fatalf("marked %v, want only the today deadline", repo.marked)
	}
}

func TestRunPass_WeekSendsNearestOnly(t *testing.T) {
	created := passNow.Add(-time.Hour)
	repo := &fakeRepo{
		users: []domain.User{{ID: 1, TelegramID: 100}},
		deadlines: map[int64][]domain.Deadline{
			1: {
				dl(10, 1, created, passNow.Add(3*24*time.Hour)),
				dl(11, 1, created, passNow.Add(5*24*time.Hour)),
			},
		},
	}
	sender := &fakeSender{}

	stats, err := newTestDispatcher(repo, sender).RunPass(context.Background(), passNow)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if stats.Sent != 1 {
		t.Fatalf("sent %d, want 1 (nearest weekly deadline only)", stats.Sent)
	}
	if len(repo.marked) != 1 || repo.marked[0] != 10 {
		t.Fatalf("marked %v, want the nearest deadline", repo.marked)
	}
}

func TestRunPass_NoMarkOnSendFailure(t *testing.T) {
	created := passNow.Add(-time.Hour)
	repo := &fakeRepo{
		users: []domain.User{{ID: 1, TelegramID: 100}},
		deadlines: map[int64][]domain.Deadline{
			1: {dl(10, 1, created, passNow.Add(5*time.Hour))},
		},
	}
	sender := &fakeSender{failChat: 100}

	stats, err := newTestDispatcher(repo, sender).RunPass(context.Background(), passNow)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if stats.Sent != 0 {
		t.Fatalf("sent %d, want 0", stats.Sent)
	}
	if len(repo.marked) != 0 {
		t.Fatalf("marked %v, must not persist last_notified_at on a failed send", repo.marked)
	}
}

func TestRunPass_FailingUserDoesNotBlockOthers(t *testing.T) {
	created := passNow.Add(-time.Hour)
	repo := &fakeRepo{
		users: []domain.User{
			{ID: 1, TelegramID: 100},
			{ID: 2, TelegramID: 200},
		},
		deadlines: map[int64][]domain.Deadline{
			1: {dl(10, 1, created, passNow.Add(5*time.Hour))},
			2: {dl(20, 2, created, passNow.Add(5*time.Hour))},
		},
	}
	sender := &fakeSender{failChat: 100}

	stats, err := newTestDispatcher(repo, sender).RunPass(context.Background(), passNow)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if stats.Sent != 1 || stats.UsersNotified != 1 {
		t.Fatalf("stats = %+v, want the second user notified", stats)
	}
	if len(sender.sent) != 1 || sender.sent[0] != 200 {
		t.Fatalf("sent to %v, want [200]", sender.sent)
	}
}

func TestRunPass_HalfwayFiresOutsideNotifyHour(t *testing.T) {
	// 10:00, past the notify hour: the weekly bucket is gated off but the
	// half-life reminder is urgent and goes out anyway.
	now := passNow.Add(time.Hour)
	repo := &fakeRepo{
		users: []domain.User{{ID: 1, TelegramID: 100}},
		deadlines: map[int64][]domain.Deadline{
			// Midpoint of created..due is exactly now.
			1: {dl(10, 1, now.Add(-48*time.Hour), now.Add(48*time.Hour))},
		},
	}
	sender := &fakeSender{}

	stats, err := newTestDispatcher(repo, sender).RunPass(context.Background(), now)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if stats.Sent != 1 {
		t.Fatalf("sent %d, want exactly the halfway reminder", stats.Sent)
	}
	if len(repo.marked) != 1 || repo.marked[0] != 10 {
		t.Fatalf("marked %v", repo.marked)
	}
}

func TestRunPass_DisabledSettingsSuppressEverything(t *testing.T) {
	created := passNow.Add(-time.Hour)
	off := domain.DefaultSettings(1)
	off.Enabled = false
	repo := &fakeRepo{
		users:    []domain.User{{ID: 1, TelegramID: 100}},
		settings: map[int64]domain.Settings{1: off},
		deadlines: map[int64][]domain.Deadline{
			1: {dl(10, 1, created, passNow.Add(5*time.Hour))},
		},
	}
	sender := &fakeSender{}

	stats, err := newTestDispatcher(repo, sender).RunPass(context.Background(), passNow)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if stats.Sent != 0 || len(sender.sent) != 0 {
		t.Fatalf("stats = %+v, sent = %v, want nothing delivered", stats, sender.sent)
	}
}

func TestRunPass_ConcurrentPassesSendOnce(t *testing.T) {
	created := passNow.Add(-time.Hour)
	repo := &fakeRepo{
		users: []domain.User{{ID: 1, TelegramID: 100}},
		deadlines: map[int64][]domain.Deadline{
			1: {dl(10, 1, created, passNow.Add(5*time.Hour))},
		},
	}
	sender := &fakeSender{}
	d := newTestDispatcher(repo, sender)

	// The scheduler tick and the manual admin trigger may fire at the
	// same moment; the deadline must still be notified exactly once.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.RunPass(context.Background(), passNow); err != nil {
				t.Errorf("RunPass: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want exactly 1", len(sender.sent))
	}
	if len(repo.marked) != 1 {
		t.Fatalf("marked %v, want one write", repo.marked)
	}
}

func TestRunPass_RepeatThrottled(t *testing.T) {
	created := passNow.Add(-time.Hour)
	recently := passNow.Add(-30 * time.Minute)
	d := dl(10, 1, created, passNow.Add(5*time.Hour))
	d.NotifiedAt = &recently
	repo := &fakeRepo{
		users:     []domain.User{{ID: 1, TelegramID: 100}},
		deadlines: map[int64][]domain.Deadline{1: {d}},
	}
	sender := &fakeSender{}

	stats, err := newTestDispatcher(repo, sender).RunPass(context.Background(), passNow)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if stats.Sent != 0 {
		t.Fatalf("sent %d, want 0 within the repeat interval", stats.Sent)
	}
}
