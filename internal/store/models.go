package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

func toNullInt64(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().Unix(), Valid: true}
}

func fromNullInt64(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := time.Unix(ns.Int64, 0).UTC()
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// weekly_days is stored as a JSON array of weekday indices,
// e.g. "[0,1,2,3,4]" for Mon-Fri.
func encodeWeekdays(days []int) string {
	if days == nil {
		days = []int{}
	}
	b, err := json.Marshal(days)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeWeekdays(s string) []int {
	var days []int
	if err := json.Unmarshal([]byte(s), &days); err != nil {
		return nil
	}
	return days
}
