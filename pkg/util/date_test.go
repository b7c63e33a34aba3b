package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseDateISO(t *testing.T) {
    got, ok := ParseDate("2024-10-10")
    if !ok {
        t.Fatalf("expected ok")
    }
    if FormatDate(got) != "2024-10-10" {
        t.Fatalf("unexpected date %v", got)
    }
}

func TestParseDateTimestampTruncates(t *testing.T) {
    got, ok := ParseDate("2024-10-10T23:10:10+02:00")
    if !ok {
        t.Fatalf("expected ok")
    }
    if FormatDate(got) != "2024-10-10" || got.Hour() != 0 {
        t.Fatalf("unexpected date %v", got)
    }
}

func TestParseDateGerman(t *testing.T) {
    got, ok := ParseDate("03.02.2024")
    if !ok {
        t.Fatalf("expected ok")
    }
    if FormatDate(got) != "2024-02-03" {
        t.Fatalf("unexpected date %v", got)
    }
}

func TestParseDateUnix(t *testing.T) {
    ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
    got, ok := ParseDate(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if FormatDate(got) != "2024-10-10" {
        t.Fatalf("unexpected date %v", got)
    }
}

func TestParseDateInvalid(t *testing.T) {
    if _, ok := ParseDate("not a date"); ok {
        t.Fatalf("expected failure")
    }
    if _, ok := ParseDate(""); ok {
        t.Fatalf("expected failure for empty string")
    }
}

func TestDaysBetween(t *testing.T) {
    a := time.Date(2024, 2, 27, 0, 0, 0, 0, time.UTC)
    b := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
    if got := DaysBetween(a, b); got != 4 {
        t.Fatalf("DaysBetween = %d, want 4", got)
    }
}
