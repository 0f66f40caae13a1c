// Package common provides shared utilities across the application.
package common

import (
	"regexp"
	"strings"
)

// tickerPattern matches normalized ticker symbols. Uppercase letters,
// digits, dots, hyphens and underscores are allowed.
var tickerPattern = regexp.MustCompile(`^[A-Z0-9.\-_]+$`)

// MaxTickerLength bounds normalized ticker symbols. Real exchange symbols
// top out well below this.
const MaxTickerLength = 12

// NormalizeTicker trims and uppercases a raw ticker string and validates
// it against the allowed symbol pattern. Returns the normalized ticker
// and whether it is valid.
//
// Examples:
//   - " nvda " -> "NVDA", true
//   - "BRK.B"  -> "BRK.B", true
//   - "BTC-USD" -> "BTC-USD", true
//   - "NV DA"  -> "", false
//   - ""       -> "", false
func NormalizeTicker(raw string) (string, bool) {
	ticker := strings.ToUpper(strings.TrimSpace(raw))
	if ticker == "" || len(ticker) > MaxTickerLength {
		return "", false
	}
	if !tickerPattern.MatchString(ticker) {
		return "", false
	}
	return ticker, true
}

// IsValidTicker reports whether the raw string normalizes to a valid ticker.
func IsValidTicker(raw string) bool {
	_, ok := NormalizeTicker(raw)
	return ok
}
