package utils

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseDate parses a forecast or history date. Dates without a zone are
// taken as UTC; zoned dates are converted to UTC so that wall-clock order
// matches instant order.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// FormatChartTime formats t the way the chart runtime parses local
// wall-clock dates: "2006-01-02" for midnight, otherwise with seconds.
func FormatChartTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// DatedValue is one point of a dated series.
type DatedValue struct {
	Time  time.Time
	Value float64
}

// SortedSeries converts a date-keyed map into a chronologically ordered
// series. Keys that fail to parse are reported together.
func SortedSeries(m map[string]float64) ([]DatedValue, error) {
	out := make([]DatedValue, 0, len(m))
	var bad []string
	for k, v := range m {
		t, err := ParseDate(k)
		if err != nil {
			bad = append(bad, k)
			continue
		}
		out = append(out, DatedValue{Time: t, Value: v})
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return nil, fmt.Errorf("unrecognised dates: %s", strings.Join(bad, ", "))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

// AddMonths steps t by n calendar months, clamping to the end of the
// target month (Mar 31 minus one month is Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// StartOfYear returns midnight on January 1st of t's year.
func StartOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}
