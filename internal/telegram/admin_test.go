package telegram

import (
	"strings"
	"testing"
	"time"

	"github.com/vladmir0512/deadline-bot/internal/domain"
)

func TestHalfwayReport_Empty(t *testing.T) {
	got := halfwayReport(nil, time.Now(), time.UTC)
	if got != "No active deadlines to inspect." {
		t.Fatalf("report = %q", got)
	}
}

func TestHalfwayReport(t *testing.T) {
	now := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)

	// Midpoint of [now-1h, now+1h] is now itself: inside the window.
	dueOpen := now.Add(time.Hour)
	// Midpoint far in the future, already notified: closed.
	dueClosed := now.Add(100 * time.Hour)
	notified := now.Add(-time.Minute)

	deadlines := []domain.Deadline{
		{Title: "Essay", CreatedAt: now.Add(-time.Hour), DueAt: &dueOpen},
		{Title: "Project", CreatedAt: now, DueAt: &dueClosed, NotifiedAt: &notified},
		{Title: "Undated", CreatedAt: now},
	}

	got := halfwayReport(deadlines, now, time.UTC)

	for _, want := range []string{
		"Essay",
		"midpoint 11 Mar 12:00, window open",
		"Project",
		"window closed",
		"Undated",
		"no due date, skipped",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q:\n%s", want, got)
		}
	}
}
