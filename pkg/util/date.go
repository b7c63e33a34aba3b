package util

import (
    "strconv"
    "strings"
    "time"
)

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
    time.RFC3339Nano,
    time.RFC3339,
    "2006-01-02T15:04:05",
    "2006-01-02 15:04:05",
    "2006-01-02 15:04",
    "2006-01-02",
    "02.01.2006 15:04:05",
    "02.01.2006",
    "2006/01/02",
}

// ParseDate accepts ISO dates/timestamps, German dotted dates and unix seconds
// and returns the calendar day at UTC midnight.
func ParseDate(s string) (time.Time, bool) {
    s = strings.TrimSpace(s)
    if s == "" {
        return time.Time{}, false
    }
    for _, layout := range dateLayouts {
        if t, err := time.Parse(layout, s); err == nil {
            return Day(t), true
        }
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return Day(time.Unix(ts, 0).UTC()), true
    }
    return time.Time{}, false
}

// Day truncates t to its calendar date, expressed at UTC midnight.
func Day(t time.Time) time.Time {
    y, m, d := t.Date()
    return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole days from a to b (both calendar days).
func DaysBetween(a, b time.Time) int {
    return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// FormatDate renders a calendar day as YYYY-MM-DD.
func FormatDate(t time.Time) string { return t.Format("2006-01-02") }
