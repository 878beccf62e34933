package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/vladmir0512/deadline-bot/internal/domain"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{51 * time.Hour, "2d 3h"},
		{3*time.Hour + 15*time.Minute, "3h 15m"},
		{15 * time.Minute, "15m"},
		{30 * time.Second, "1m"}, // rounded
	}
	for _, tc := range cases {
		if got := formatDuration(tc.d); got != tc.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestFormatNotification(t *testing.T) {
	due := time.Now().UTC().Add(5 * time.Hour)
	dl := &domain.Deadline{Title: "Report", Description: "quarterly", DueAt: &due}

	text := FormatNotification(dl, domain.BucketToday, time.UTC)
	for _, want := range []string{"Deadline today", "Report", "quarterly", "Time left"} {
		if !strings.Contains(text, want) {
			t.Errorf("message missing %q:\n%s", want, text)
		}
	}

	if !strings.Contains(FormatNotification(dl, domain.BucketHalfway, time.UTC), "Halfway") {
		t.Error("halfway header missing")
	}
}

func TestFormatDeadline_NoDueDate(t *testing.T) {
	text := FormatDeadline(&domain.Deadline{Title: "Undated"}, time.UTC)
	if strings.Contains(text, "Due:") {
		t.Errorf("undated deadline should not render a due line:\n%s", text)
	}
	if !strings.Contains(text, "Undated") {
		t.Errorf("title missing:\n%s", text)
	}
}
