package synthesis

import (
	"strings"
)

// isRateLimitText checks if an error looks like a provider rate limit.
// Provider SDKs surface quota errors as plain error strings, so matching
// on the message is the only portable signal.
func isRateLimitText(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "rate_limit_exceeded") ||
		strings.Contains(errStr, "quota")
}
