package database

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the storage format of every date column.
const DateLayout = "2006-01-02"

// GetToday returns today's date as YYYY-MM-DD.
func GetToday() string {
	return time.Now().Format(DateLayout)
}

// Timestamp formats t as the UTC timestamp stored in run reports.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// AddDays shifts a YYYY-MM-DD date by n days.
func AddDays(date string, n int) (string, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	return d.AddDate(0, 0, n).Format(DateLayout), nil
}

// MakePeriodID creates a period_id from start and end dates.
// If start == end, returns just the date (e.g., "2025-01-10").
// Otherwise returns a range (e.g., "2025-01-09..2025-01-10").
func MakePeriodID(start, end string) string {
	if start == end {
		return start
	}
	return start + ".." + end
}

// FormatPeriodDisplay formats a period_id for human-readable display.
// Single day: "2025年01月10日"
// Range: "2025年01月09日 - 2025年01月10日"
// Anything else (a file label, for example) is returned unchanged.
func FormatPeriodDisplay(periodID string) string {
	if strings.Contains(periodID, "..") {
		parts := strings.SplitN(periodID, "..", 2)
		start, err := time.Parse(DateLayout, parts[0])
		if err != nil {
			return periodID
		}
		end, err := time.Parse(DateLayout, parts[1])
		if err != nil {
			return periodID
		}
		return fmt.Sprintf("%s - %s", start.Format("2006年01月02日"), end.Format("2006年01月02日"))
	}

	d, err := time.Parse(DateLayout, periodID)
	if err != nil {
		return periodID
	}
	return d.Format("2006年01月02日")
}
