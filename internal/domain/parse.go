package domain

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrEmptyInput     = errors.New("empty input")
	ErrInvalidClock   = errors.New("invalid time, expected HH:MM")
	ErrInvalidHour    = errors.New("invalid hour, expected 0-23")
	ErrInvalidWeekday = errors.New("invalid weekday")
)

var weekdayNames = map[string]int{
	"mon": 0, "monday": 0,
	"tue": 1, "tuesday": 1,
	"wed": 2, "wednesday": 2,
	"thu": 3, "thursday": 3,
	"fri": 4, "friday": 4,
	"sat": 5, "saturday": 5,
	"sun": 6, "sunday": 6,
}

var weekdayShort = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// ParseClock parses "HH:MM" into minutes since midnight (0..1439).
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyInput
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, ErrInvalidClock
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, ErrInvalidClock
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, ErrInvalidClock
	}
	return h*60 + m, nil
}

// ParseQuietWindow parses "HH:MM-HH:MM" (en dash accepted) into two
// normalized clock strings, validating both sides.
func ParseQuietWindow(s string) (start, end string, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", ErrEmptyInput
	}
	sep := "-"
	if strings.Contains(s, "–") {
		sep = "–"
	}
	parts := strings.Split(s, sep)
	if len(parts) != 2 {
		return "", "", errors.New("expected format HH:MM-HH:MM")
	}
	startM, err := ParseClock(parts[0])
	if err != nil {
		return "", "", fmt.Errorf("start: %w", err)
	}
	endM, err := ParseClock(parts[1])
	if err != nil {
		return "", "", fmt.Errorf("end: %w", err)
	}
	return FormatMinutes(startM), FormatMinutes(endM), nil
}

// ParseHour parses an hour of day, "9", "09" or "9:00".
func ParseHour(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyInput
	}
	if strings.Contains(s, ":") {
		m, err := ParseClock(s)
		if err != nil {
			return 0, err
		}
		return m / 60, nil
	}
	h, err := strconv.Atoi(s)
	if err != nil || h < 0 || h > 23 {
		return 0, ErrInvalidHour
	}
	return h, nil
}

// ParseWeekdays parses a weekday set like "mon,wed,fri", "mon-fri" or
// "1,3,5" (numeric, 0=Mon). Ranges may wrap the week ("fri-tue").
// The result is sorted and de-duplicated.
func ParseWeekdays(s string) ([]int, error) {
	s = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	if s == "" {
		return nil, ErrEmptyInput
	}

	seen := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		if part == "" {
			continue
		}
		if from, to, ok := strings.Cut(part, "-"); ok {
			fd, err := parseWeekday(from)
			if err != nil {
				return nil, err
			}
			td, err := parseWeekday(to)
			if err != nil {
				return nil, err
			}
			if fd <= td {
				for d := fd; d <= td; d++ {
					seen[d] = true
				}
			} else {
				// range wraps the week, e.g. fri-tue
				for d := fd; d <= 6; d++ {
					seen[d] = true
				}
				for d := 0; d <= td; d++ {
					seen[d] = true
				}
			}
			continue
		}
		d, err := parseWeekday(part)
		if err != nil {
			return nil, err
		}
		seen[d] = true
	}

	if len(seen) == 0 {
		return nil, ErrEmptyInput
	}
	days := make([]int, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Ints(days)
	return days, nil
}

func parseWeekday(s string) (int, error) {
	if d, ok := weekdayNames[s]; ok {
		return d, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n <= 6 {
		return n, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
}

// FormatWeekdays renders a sorted weekday set as grouped ranges,
// e.g. [0 1 2 3 4] -> "Mon-Fri", [0 2 4] -> "Mon, Wed, Fri".
func FormatWeekdays(days []int) string {
	if len(days) == 0 {
		return "none"
	}
	if len(days) == 7 {
		return "every day"
	}

	var ranges []string
	start, prev := days[0], days[0]
	flush := func() {
		switch {
		case start == prev:
			ranges = append(ranges, weekdayShort[start])
		case prev == start+1:
			ranges = append(ranges, weekdayShort[start]+", "+weekdayShort[prev])
		default:
			ranges = append(ranges, weekdayShort[start]+"-"+weekdayShort[prev])
		}
	}
	for _, d := range days[1:] {
		if d == prev+1 {
			prev = d
			continue
		}
		flush()
		start, prev = d, d
	}
	flush()
	return strings.Join(ranges, ", ")
}

// FormatMinutes returns HH:MM for minutes since midnight.
func FormatMinutes(mins int) string {
	if mins < 0 {
		mins = 0
	}
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}
