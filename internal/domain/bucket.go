package domain

import "time"

// Bucket is a notification category with its own eligibility and
// throttling rules.
type Bucket string

const (
	BucketNone     Bucket = ""
	BucketToday    Bucket = "today"
	BucketTomorrow Bucket = "tomorrow"
	BucketWeek     Bucket = "week"
	BucketHalfway  Bucket = "halfway"
)

// Half-life notification window around the midpoint.
const (
	halfwayBefore = 30 * time.Minute
	halfwayAfter  = 180 * time.Minute
)

// Minimum intervals between repeat notifications per bucket.
const (
	minIntervalToday    = time.Hour
	minIntervalTomorrow = 6 * time.Hour
	minIntervalHalfway  = 24 * time.Hour
	minIntervalDefault  = 24 * time.Hour
)

// Classify places a deadline into a time bucket relative to now.
//   - today: due within [now, now+24h]
//   - tomorrow: due within the calendar day after now's calendar day
//     (day boundaries in loc, not a rolling 24-48h window)
//   - week: due within [now, now+7d] and not already today
//
// Deadlines without a due date never classify.
func Classify(d Deadline, now time.Time, loc *time.Location) Bucket {
	if d.DueAt == nil {
		return BucketNone
	}
	due := *d.DueAt
	if due.Before(now) {
		return BucketNone
	}

	if !due.After(now.Add(24 * time.Hour)) {
		return BucketToday
	}

	localNow := now.In(loc)
	tomorrowStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, loc).Add(24 * time.Hour)
	tomorrowEnd := tomorrowStart.Add(24 * time.Hour)
	localDue := due.In(loc)
	if !localDue.Before(tomorrowStart) && localDue.Before(tomorrowEnd) {
		return BucketTomorrow
	}

	if !due.After(now.Add(7 * 24 * time.Hour)) {
		return BucketWeek
	}
	return BucketNone
}

// AtHalfway reports whether now falls inside the half-life notification
// window of a deadline. The midpoint is created + (due-created)/2; the
// window runs from 30 minutes before it to 3 hours after. A deadline
// whose midpoint has passed but which was never notified stays eligible
// until a send succeeds, so scheduler downtime cannot silently swallow
// the reminder.
func AtHalfway(created, due time.Time, notifiedAt *time.Time, now time.Time) bool {
	if !due.After(now) {
		return false
	}
	midpoint := created.Add(due.Sub(created) / 2)
	delta := now.Sub(midpoint)

	if delta >= -halfwayBefore && delta <= halfwayAfter {
		return true
	}
	return delta > 0 && notifiedAt == nil
}

// ShouldSend applies the per-bucket de-duplication interval to the last
// notification time. A deadline never notified is always eligible.
func ShouldSend(notifiedAt *time.Time, bucket Bucket, now time.Time) bool {
	if notifiedAt == nil {
		return true
	}
	elapsed := now.Sub(*notifiedAt)

	switch bucket {
	case BucketToday:
		return elapsed >= minIntervalToday
	case BucketTomorrow:
		return elapsed >= minIntervalTomorrow
	case BucketHalfway:
		return elapsed >= minIntervalHalfway
	default:
		return elapsed >= minIntervalDefault
	}
}
