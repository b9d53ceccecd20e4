package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// FormatPercent formats a fraction as a percentage with two decimals.
// e.g., 0.2 → "20.00%", -0.05 → "-5.00%"
func FormatPercent(frac float64) string {
	return fmt.Sprintf("%.2f%%", frac*100)
}

// FormatRatio formats a plain ratio with two decimals.
// e.g., 1.5 → "1.50"
func FormatRatio(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeTicker upper-cases a ticker and strips whitespace and a leading $.
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))
	return strings.TrimPrefix(ticker, "$")
}

// TickerSlug turns a ticker into a file-name safe token.
// e.g., "BRK.B" → "brk-b", "^NSEI" → "nsei"
func TickerSlug(ticker string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(NormalizeTicker(ticker)), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "dashboard"
	}
	return s
}
