package domain

import "time"

// Settings holds per-user notification preferences. Exactly one row per
// user exists in storage; callers get DefaultSettings when none is stored.
type Settings struct {
	UserID            int64
	Enabled           bool
	NotifyHour        int    // 0..23, local hour for non-urgent reminders
	QuietStart        string // "HH:MM", suppression window start
	QuietEnd          string // "HH:MM", may wrap past midnight
	DailyEnabled      bool
	WeeklyEnabled     bool
	HalfwayEnabled    bool
	WeeklyDays        []int // weekday indices, 0=Mon .. 6=Sun
	DaysBeforeWarning int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DefaultSettings are applied when a user has no stored settings row.
func DefaultSettings(userID int64) Settings {
	return Settings{
		UserID:            userID,
		Enabled:           true,
		NotifyHour:        9,
		QuietStart:        "22:00",
		QuietEnd:          "08:00",
		DailyEnabled:      true,
		WeeklyEnabled:     true,
		HalfwayEnabled:    true,
		WeeklyDays:        []int{0, 1, 2, 3, 4}, // Mon-Fri
		DaysBeforeWarning: 1,
	}
}

// InQuietHours reports whether the clock time (minutes since midnight)
// falls inside [startM, endM). Windows where start > end wrap midnight,
// e.g. 22:00-08:00.
func InQuietHours(localM, startM, endM int) bool {
	if startM <= endM {
		return localM >= startM && localM <= endM
	}
	return localM >= startM || localM <= endM
}

// Weekday returns the Mon=0..Sun=6 index for t, matching the stored
// weekly_days convention.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// AllowedAt decides whether a notification of the given bucket may be
// delivered at nowLocal under these settings. Malformed quiet-hours
// strings disable the quiet-hours rule only; an empty weekly-day list
// blocks the weekly bucket.
//
// The today and halfway buckets are urgent: they skip the notify-hour
// gate, and halfway additionally has its own toggle independent of the
// daily family.
func (s Settings) AllowedAt(bucket Bucket, nowLocal time.Time) bool {
	if !s.Enabled {
		return false
	}

	nowM := nowLocal.Hour()*60 + nowLocal.Minute()
	startM, errS := ParseClock(s.QuietStart)
	endM, errE := ParseClock(s.QuietEnd)
	if errS == nil && errE == nil && InQuietHours(nowM, startM, endM) {
		return false
	}

	switch bucket {
	case BucketToday:
		return s.DailyEnabled
	case BucketTomorrow:
		return s.DailyEnabled && s.atNotifyHour(nowLocal)
	case BucketWeek:
		if !s.WeeklyEnabled || !s.atNotifyHour(nowLocal) {
			return false
		}
		return containsDay(s.WeeklyDays, Weekday(nowLocal))
	case BucketHalfway:
		return s.HalfwayEnabled
	default:
		return false
	}
}

// atNotifyHour is a coarse "fire once near the top of the configured
// hour" gate, tolerant of scheduler jitter.
func (s Settings) atNotifyHour(nowLocal time.Time) bool {
	return nowLocal.Hour() == s.NotifyHour && nowLocal.Minute() < 30
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
