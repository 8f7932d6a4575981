package util

import (
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	if _, ok := ParseTime(""); ok {
		t.Fatal("empty string should not parse")
	}
	if tm, ok := ParseTime("2026-03-02T15:04:05Z"); !ok || tm.Hour() != 15 {
		t.Fatalf("rfc3339 parse failed: %v %v", tm, ok)
	}
	if tm, ok := ParseTime("1772461445"); !ok || tm.Unix() != 1772461445 {
		t.Fatalf("unix parse failed: %v %v", tm, ok)
	}
}

func TestParseDay(t *testing.T) {
	d, ok := ParseDay("2026-03-02")
	if !ok {
		t.Fatal("expected valid day")
	}
	if d.Year() != 2026 || d.Month() != time.March || d.Day() != 2 {
		t.Fatalf("wrong day: %v", d)
	}
	if _, ok := ParseDay("03/02/2026"); ok {
		t.Fatal("expected invalid format to fail")
	}
}

func TestAlignFromTo(t *testing.T) {
	from := time.Date(2026, 3, 2, 9, 37, 12, 0, time.UTC)
	to := time.Date(2026, 3, 2, 16, 1, 59, 0, time.UTC)

	f15, t15 := AlignFromTo(from, to, "15m")
	if f15.Minute() != 30 || t15.Minute() != 0 {
		t.Fatalf("15m align wrong: %v %v", f15, t15)
	}

	f1h, t1h := AlignFromTo(from, to, "1h")
	if f1h.Minute() != 0 || t1h.Hour() != 16 {
		t.Fatalf("1h align wrong: %v %v", f1h, t1h)
	}

	f1d, _ := AlignFromTo(from, to, "1d")
	if f1d.Hour() != 0 {
		t.Fatalf("1d align wrong: %v", f1d)
	}
}

func TestDayBounds(t *testing.T) {
	start, end := DayBounds(time.Date(2026, 3, 2, 13, 45, 0, 0, time.UTC))
	if start.Hour() != 0 || !end.Equal(start.Add(24*time.Hour)) {
		t.Fatalf("bounds wrong: %v %v", start, end)
	}
}
