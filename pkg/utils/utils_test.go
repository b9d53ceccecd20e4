package utils

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2026-02-19", time.Date(2026, 2, 19, 0, 0, 0, 0, time.UTC)},
		{" 2026-02-19 ", time.Date(2026, 2, 19, 0, 0, 0, 0, time.UTC)},
		{"2026-02-19 10:30:00", time.Date(2026, 2, 19, 10, 30, 0, 0, time.UTC)},
		{"2026-02-19T10:30:00", time.Date(2026, 2, 19, 10, 30, 0, 0, time.UTC)},
		{"2026-02-19T10:30:00Z", time.Date(2026, 2, 19, 10, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if err != nil {
				t.Fatalf("ParseDate(%q) error: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, s := range []string{"", "yesterday", "19/02/2026", "2026-13-01"} {
		if _, err := ParseDate(s); err == nil {
			t.Errorf("ParseDate(%q): expected error", s)
		}
	}
}

func TestFormatChartTime(t *testing.T) {
	if got := FormatChartTime(time.Date(2026, 2, 19, 0, 0, 0, 0, time.UTC)); got != "2026-02-19" {
		t.Errorf("midnight: got %q", got)
	}
	if got := FormatChartTime(time.Date(2026, 2, 19, 9, 15, 0, 0, time.UTC)); got != "2026-02-19 09:15:00" {
		t.Errorf("intraday: got %q", got)
	}
}

func TestSortedSeries(t *testing.T) {
	m := map[string]float64{
		"2024-01-03": 3,
		"2024-01-01": 1,
		"2024-01-02": 2,
	}
	s, err := SortedSeries(m)
	if err != nil {
		t.Fatalf("SortedSeries error: %v", err)
	}
	if len(s) != 3 {
		t.Fatalf("len: got %d, want 3", len(s))
	}
	for i, want := range []float64{1, 2, 3} {
		if s[i].Value != want {
			t.Errorf("s[%d].Value = %v, want %v", i, s[i].Value, want)
		}
	}
	if len(m) != 3 {
		t.Error("input map must not be modified")
	}
}

func TestSortedSeriesMixedOffsets(t *testing.T) {
	// 09:00+05:30 is 03:30Z, earlier than 04:00Z despite the later wall clock.
	m := map[string]float64{
		"2024-01-02T04:00:00Z":      2,
		"2024-01-02T09:00:00+05:30": 1,
	}
	s, err := SortedSeries(m)
	if err != nil {
		t.Fatalf("SortedSeries error: %v", err)
	}
	if s[0].Value != 1 || s[1].Value != 2 {
		t.Fatalf("order = %v, want [1 2]", s)
	}
	first, second := FormatChartTime(s[0].Time), FormatChartTime(s[1].Time)
	if first != "2024-01-02 03:30:00" || second != "2024-01-02 04:00:00" {
		t.Errorf("chart times = %q, %q", first, second)
	}
	if s[0].Time.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", s[0].Time.Location())
	}
}

func TestSortedSeriesBadKey(t *testing.T) {
	_, err := SortedSeries(map[string]float64{"2024-01-01": 1, "nope": 2})
	if err == nil {
		t.Fatal("expected error for unparseable key")
	}
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		from time.Time
		n    int
		want time.Time
	}{
		{time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), -1, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC), -1, time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), -6, time.Date(2023, 12, 15, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), -12, time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		if got := AddMonths(tt.from, tt.n); !got.Equal(tt.want) {
			t.Errorf("AddMonths(%v, %d) = %v, want %v", tt.from, tt.n, got, tt.want)
		}
	}
}

func TestStartOfYear(t *testing.T) {
	got := StartOfYear(time.Date(2024, 8, 9, 13, 0, 0, 0, time.UTC))
	if !got.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("StartOfYear = %v", got)
	}
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0.2, "20.00%"},
		{-0.05, "-5.00%"},
		{0, "0.00%"},
		{0.123456, "12.35%"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := FormatPercent(tt.input); got != tt.expected {
				t.Errorf("FormatPercent(%f) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFormatRatio(t *testing.T) {
	if got := FormatRatio(1.5); got != "1.50" {
		t.Errorf("FormatRatio(1.5) = %s", got)
	}
	if got := FormatRatio(-0.333); got != "-0.33" {
		t.Errorf("FormatRatio(-0.333) = %s", got)
	}
}

func TestTickerSlug(t *testing.T) {
	tests := map[string]string{
		"ABC":    "abc",
		" $abc ": "abc",
		"BRK.B":  "brk-b",
		"^NSEI":  "nsei",
		"???":    "dashboard",
		"M&M.NS": "m-m-ns",
	}
	for in, want := range tests {
		if got := TickerSlug(in); got != want {
			t.Errorf("TickerSlug(%q) = %q, want %q", in, got, want)
		}
	}
}
