package utils

import (
	"fmt"
	"time"
)

// DateToUnix converts a YYYY-MM-DD date string to a Unix timestamp at
// midnight UTC. The store persists created/updated timestamps this way.
func DateToUnix(date string) (int64, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t.Unix(), nil
}

// UnixToDate converts a Unix timestamp to a YYYY-MM-DD string in UTC.
func UnixToDate(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01-02")
}

// ParseDayFirstDate parses the dd/mm/yyyy dates used by the bank extracts
// and spreadsheets. Two-digit years are rejected.
func ParseDayFirstDate(s string) (time.Time, error) {
	t, err := time.Parse("02/01/2006", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day-first date %q: %w", s, err)
	}
	return t.UTC(), nil
}
