package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/vladmir0512/deadline-bot/internal/domain"
)

// FormatNotification renders the message text for one deadline in one
// bucket. Due times are shown in the bot's display timezone.
func FormatNotification(dl *domain.Deadline, bucket domain.Bucket, loc *time.Location) string {
	var header string
	switch bucket {
	case domain.BucketToday:
		header = "🔴 Deadline today!"
	case domain.BucketTomorrow:
		header = "🟡 Deadline tomorrow"
	case domain.BucketHalfway:
		header = "⏳ Halfway to the deadline"
	default:
		header = "⏰ Deadline approaching"
	}
	return header + "\n\n" + FormatDeadline(dl, loc)
}

// FormatDeadline renders a single deadline for display.
func FormatDeadline(dl *domain.Deadline, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📌 %s\n", dl.Title)
	if dl.DueAt != nil {
		fmt.Fprintf(&b, "🗓 Due: %s\n", dl.DueAt.In(loc).Format("02 Jan 2006 15:04"))
		if left := time.Until(*dl.DueAt); left > 0 {
			fmt.Fprintf(&b, "⏱ Time left: %s\n", formatDuration(left))
		}
	}
	if dl.Description != "" {
		fmt.Fprintf(&b, "📝 %s\n", dl.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatDuration renders a duration as "2d 3h" / "3h 15m" / "15m".
func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}
