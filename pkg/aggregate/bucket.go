package aggregate

import (
	"fmt"
	"time"
)

// Granularity selects the size of a report period bucket.
type Granularity string

const (
	GranularityWeek  Granularity = "WEEK"
	GranularityMonth Granularity = "MONTH"
)

var monthNames = [...]string{"Januari", "Februari", "Maret", "April", "Mei", "Juni", "Juli", "Agustus", "September", "Oktober", "November", "Desember"}

// PeriodBucket returns a sortable key and a display label for the bucket containing t.
// Weeks follow ISO-8601 numbering.
func PeriodBucket(t time.Time, g Granularity) (key, label string) {
	switch g {
	case GranularityWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week), fmt.Sprintf("Pekan %d/%d", week, year)
	default:
		return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())), fmt.Sprintf("%s %d", MonthName(t.Month()), t.Year())
	}
}

// MonthName returns the Indonesian month name.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}

// MonthRange returns the first and last day of the month containing t.
func MonthRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, -1)
}
