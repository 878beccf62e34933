package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/vladmir0512/deadline-bot/internal/domain"
)

func openTestRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestGetOrCreateUser(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	u, err := repo.GetOrCreateUser(ctx, 42)
	if err != nil {
		t.Fatalf("GetOrCreateUser: %v", err)
	}
	if u.TelegramID != 42 || u.ID == 0 {
		t.Fatalf("user = %+v", u)
	}

	again, err := repo.GetOrCreateUser(ctx, 42)
	if err != nil {
		t.Fatalf("second GetOrCreateUser: %v", err)
	}
	if again.ID != u.ID {
		t.Fatalf("expected same row, got ids %d and %d", u.ID, again.ID)
	}

	if _, err := repo.GetUserByTelegramID(ctx, 777); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestRegisteredUsers(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	u1, _ := repo.GetOrCreateUser(ctx, 1)
	repo.GetOrCreateUser(ctx, 2)

	if err := repo.SetUsername(ctx, 1, "ivanov"); err != nil {
		t.Fatalf("SetUsername: %v", err)
	}
	if err := repo.SetUsername(ctx, 999, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown user: want ErrNotFound, got %v", err)
	}

	users, err := repo.ListRegisteredUsers(ctx)
	if err != nil {
		t.Fatalf("ListRegisteredUsers: %v", err)
	}
	if len(users) != 1 || users[0].ID != u1.ID || users[0].Username != "ivanov" {
		t.Fatalf("users = %+v", users)
	}

	// An empty username unregisters.
	if err := repo.SetUsername(ctx, 1, ""); err != nil {
		t.Fatalf("clear username: %v", err)
	}
	users, _ = repo.ListRegisteredUsers(ctx)
	if len(users) != 0 {
		t.Fatalf("after unregister: %+v", users)
	}
}

func TestSetEmail(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	repo.GetOrCreateUser(ctx, 1)

	if err := repo.SetEmail(ctx, 1, "ivanov@example.com"); err != nil {
		t.Fatalf("SetEmail: %v", err)
	}
	if err := repo.SetEmail(ctx, 999, "ghost@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown user: want ErrNotFound, got %v", err)
	}

	u, err := repo.GetUserByTelegramID(ctx, 1)
	if err != nil {
		t.Fatalf("GetUserByTelegramID: %v", err)
	}
	if u.Email != "ivanov@example.com" {
		t.Fatalf("email = %q", u.Email)
	}
}

func TestUpsertDeadline(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	u, _ := repo.GetOrCreateUser(ctx, 1)

	dueA := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
	d := &domain.Deadline{
		UserID:   u.ID,
		Title:    "Report",
		DueAt:    &dueA,
		Source:   "yonote",
		SourceID: "row-2",
	}
	created, err := repo.UpsertDeadline(ctx, d)
	if err != nil {
		t.Fatalf("UpsertDeadline: %v", err)
	}
	if !created || d.ID == 0 {
		t.Fatalf("created=%v id=%d, want a fresh row", created, d.ID)
	}

	stored, err := repo.GetDeadline(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDeadline: %v", err)
	}
	firstCreatedAt := stored.CreatedAt

	// Same source row again with a moved due date: update, not insert,
	// and created_at keeps anchoring the half-life midpoint.
	dueB := dueA.Add(24 * time.Hour)
	d2 := &domain.Deadline{
		UserID:   u.ID,
		Title:    "Report v2",
		DueAt:    &dueB,
		Source:   "yonote",
		SourceID: "row-2",
	}
	created, err = repo.UpsertDeadline(ctx, d2)
	if err != nil {
		t.Fatalf("second UpsertDeadline: %v", err)
	}
	if created {
		t.Fatal("expected an update of the existing row")
	}
	if d2.ID != d.ID {
		t.Fatalf("matched id %d, want %d", d2.ID, d.ID)
	}

	stored, _ = repo.GetDeadline(ctx, d.ID)
	if stored.Title != "Report v2" {
		t.Fatalf("title = %q", stored.Title)
	}
	if stored.DueAt == nil || !stored.DueAt.Equal(dueB) {
		t.Fatalf("due = %v, want %v", stored.DueAt, dueB)
	}
	if !stored.CreatedAt.Equal(firstCreatedAt) {
		t.Fatalf("created_at changed from %v to %v", firstCreatedAt, stored.CreatedAt)
	}
}

func TestUpsertDeadline_TitleFallback(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	u, _ := repo.GetOrCreateUser(ctx, 1)

	d := &domain.Deadline{UserID: u.ID, Title: "Manual task", Source: "manual"}
	if created, _ := repo.UpsertDeadline(ctx, d); !created {
		t.Fatal("first upsert should create")
	}
	d2 := &domain.Deadline{UserID: u.ID, Title: "Manual task", Source: "manual"}
	if created, _ := repo.UpsertDeadline(ctx, d2); created {
		t.Fatal("same title and source should match the existing row")
	}
	if d2.ID != d.ID {
		t.Fatalf("matched id %d, want %d", d2.ID, d.ID)
	}
}

func TestListActiveFutureDeadlines(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	u, _ := repo.GetOrCreateUser(ctx, 1)
	now := time.Now().UTC().Truncate(time.Second)

	add := func(title string, due *time.Time, status string) int64 {
		d := &domain.Deadline{UserID: u.ID, Title: title, DueAt: due, Status: status, Source: "t", SourceID: title}
		if _, err := repo.UpsertDeadline(ctx, d); err != nil {
			t.Fatalf("add %s: %v", title, err)
		}
		return d.ID
	}
	later := now.Add(72 * time.Hour)
	soon := now.Add(2 * time.Hour)
	past := now.Add(-2 * time.Hour)
	add("later", &later, domain.StatusActive)
	add("soon", &soon, domain.StatusActive)
	add("undated", nil, domain.StatusActive)
	add("past", &past, domain.StatusActive)
	add("done", &soon, domain.StatusCompleted)

	got, err := repo.ListActiveFutureDeadlines(ctx, u.ID, now)
	if err != nil {
		t.Fatalf("ListActiveFutureDeadlines: %v", err)
	}
	titles := make([]string, len(got))
	for i, d := range got {
		titles[i] = d.Title
	}
	want := []string{"soon", "later", "undated"}
	if len(titles) != len(want) {
		t.Fatalf("got %v, want %v", titles, want)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("got %v, want %v (ascending, undated last)", titles, want)
		}
	}
}

func TestDeleteMissingDeadlines(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	u, _ := repo.GetOrCreateUser(ctx, 1)

	add := func(title, source string) {
		d := &domain.Deadline{UserID: u.ID, Title: title, Source: source}
		if _, err := repo.UpsertDeadline(ctx, d); err != nil {
			t.Fatalf("add %s: %v", title, err)
		}
	}
	add("A", "yonote")
	add("B", "yonote")
	add("manual", "manual")

	removed, err := repo.DeleteMissingDeadlines(ctx, u.ID, "yonote", []string{"A"})
	if err != nil {
		t.Fatalf("DeleteMissingDeadlines: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed %d, want only the vanished row", removed)
	}

	left, _ := repo.ListActiveFutureDeadlines(ctx, u.ID, time.Now().UTC())
	titles := make(map[string]bool, len(left))
	for _, d := range left {
		titles[d.Title] = true
	}
	if !titles["A"] || titles["B"] || !titles["manual"] {
		t.Fatalf("remaining titles = %v", titles)
	}

	// No surviving titles clears the whole source, other sources stay.
	if removed, _ = repo.DeleteMissingDeadlines(ctx, u.ID, "yonote", nil); removed != 1 {
		t.Fatalf("removed %d, want the last yonote row", removed)
	}
	left, _ = repo.ListActiveFutureDeadlines(ctx, u.ID, time.Now().UTC())
	if len(left) != 1 || left[0].Title != "manual" {
		t.Fatalf("remaining = %+v", left)
	}
}

func TestMarkNotified(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	u, _ := repo.GetOrCreateUser(ctx, 1)

	due := time.Now().UTC().Add(time.Hour)
	d := &domain.Deadline{UserID: u.ID, Title: "x", DueAt: &due, Source: "t", SourceID: "1"}
	repo.UpsertDeadline(ctx, d)

	at := time.Now().UTC().Truncate(time.Second)
	if err := repo.MarkNotified(ctx, d.ID, at); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}
	stored, _ := repo.GetDeadline(ctx, d.ID)
	if stored.NotifiedAt == nil || !stored.NotifiedAt.Equal(at) {
		t.Fatalf("notified_at = %v, want %v", stored.NotifiedAt, at)
	}
}

func TestToggleSubscription(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	u, _ := repo.GetOrCreateUser(ctx, 1)

	active, err := repo.ToggleSubscription(ctx, u.ID, "telegram")
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !active {
		t.Fatal("first toggle should subscribe")
	}

	subs, err := repo.ListActiveSubscribers(ctx, "telegram")
	if err != nil {
		t.Fatalf("ListActiveSubscribers: %v", err)
	}
	if len(subs) != 1 || subs[0].ID != u.ID {
		t.Fatalf("subscribers = %+v", subs)
	}

	if active, _ = repo.ToggleSubscription(ctx, u.ID, "telegram"); active {
		t.Fatal("second toggle should unsubscribe")
	}
	if subs, _ = repo.ListActiveSubscribers(ctx, "telegram"); len(subs) != 0 {
		t.Fatalf("subscribers after unsubscribe = %+v", subs)
	}

	if active, _ = repo.ToggleSubscription(ctx, u.ID, "telegram"); !active {
		t.Fatal("third toggle should re-subscribe")
	}
}

func TestSettingsLifecycle(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	u, _ := repo.GetOrCreateUser(ctx, 1)

	s, err := repo.GetOrCreateSettings(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetOrCreateSettings: %v", err)
	}
	def := domain.DefaultSettings(u.ID)
	if !s.Enabled || s.NotifyHour != def.NotifyHour || s.QuietStart != def.QuietStart || s.QuietEnd != def.QuietEnd {
		t.Fatalf("defaults = %+v", s)
	}
	if len(s.WeeklyDays) != 5 {
		t.Fatalf("weekly days = %v, want Mon-Fri", s.WeeklyDays)
	}

	hour := 18
	off := false
	err = repo.UpdateSettings(ctx, u.ID, SettingsUpdate{
		NotifyHour:   &hour,
		DailyEnabled: &off,
		WeeklyDays:   []int{5, 6},
	})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}

	s, _ = repo.GetOrCreateSettings(ctx, u.ID)
	if s.NotifyHour != 18 || s.DailyEnabled {
		t.Fatalf("patch not applied: %+v", s)
	}
	if len(s.WeeklyDays) != 2 || s.WeeklyDays[0] != 5 || s.WeeklyDays[1] != 6 {
		t.Fatalf("weekly days = %v", s.WeeklyDays)
	}
	// Untouched fields keep their values.
	if !s.Enabled || s.QuietStart != def.QuietStart {
		t.Fatalf("patch leaked into other fields: %+v", s)
	}

	if err := repo.ResetSettings(ctx, u.ID); err != nil {
		t.Fatalf("ResetSettings: %v", err)
	}
	s, _ = repo.GetOrCreateSettings(ctx, u.ID)
	if s.NotifyHour != def.NotifyHour || !s.DailyEnabled || len(s.WeeklyDays) != 5 {
		t.Fatalf("reset did not restore defaults: %+v", s)
	}
}

func TestBlockedUsers(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	blocked, err := repo.IsBlocked(ctx, 42)
	if err != nil || blocked {
		t.Fatalf("fresh user blocked=%v err=%v", blocked, err)
	}

	if err := repo.BlockUser(ctx, 42, "spam", 1); err != nil {
		t.Fatalf("BlockUser: %v", err)
	}
	if blocked, _ = repo.IsBlocked(ctx, 42); !blocked {
		t.Fatal("user should be blocked")
	}

	// Re-blocking updates the reason instead of failing on the unique key.
	if err := repo.BlockUser(ctx, 42, "more spam", 2); err != nil {
		t.Fatalf("second BlockUser: %v", err)
	}
	list, _ := repo.ListBlockedUsers(ctx)
	if len(list) != 1 || list[0].Reason != "more spam" || list[0].BlockedBy != 2 {
		t.Fatalf("blocked list = %+v", list)
	}

	ok, err := repo.UnblockUser(ctx, 42)
	if err != nil || !ok {
		t.Fatalf("UnblockUser: ok=%v err=%v", ok, err)
	}
	if ok, _ = repo.UnblockUser(ctx, 42); ok {
		t.Fatal("second unblock should report no row")
	}
}

func TestVerificationFlow(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	u, _ := repo.GetOrCreateUser(ctx, 1)

	due := time.Now().UTC().Add(time.Hour)
	d := &domain.Deadline{UserID: u.ID, Title: "x", DueAt: &due, Source: "t", SourceID: "1"}
	repo.UpsertDeadline(ctx, d)

	v, err := repo.CreateVerification(ctx, d.ID, u.ID, "done early")
	if err != nil {
		t.Fatalf("CreateVerification: %v", err)
	}
	if v.Status != domain.VerificationPending {
		t.Fatalf("status = %q", v.Status)
	}

	pending, err := repo.ListPendingVerifications(ctx)
	if err != nil {
		t.Fatalf("ListPendingVerifications: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != v.ID || pending[0].UserComment != "done early" {
		t.Fatalf("pending = %+v", pending)
	}

	resolved, err := repo.ResolveVerification(ctx, v.ID, domain.VerificationApproved, 99, "ok")
	if err != nil {
		t.Fatalf("ResolveVerification: %v", err)
	}
	if resolved.Status != domain.VerificationApproved || resolved.DeadlineID != d.ID || resolved.UserID != u.ID {
		t.Fatalf("resolved = %+v", resolved)
	}
	if resolved.VerifiedBy == nil || *resolved.VerifiedBy != 99 || resolved.AdminComment != "ok" {
		t.Fatalf("resolved = %+v", resolved)
	}

	if pending, _ = repo.ListPendingVerifications(ctx); len(pending) != 0 {
		t.Fatalf("still pending: %+v", pending)
	}
	if _, err := repo.ResolveVerification(ctx, v.ID, domain.VerificationRejected, 99, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double resolve: want ErrNotFound, got %v", err)
	}
}
