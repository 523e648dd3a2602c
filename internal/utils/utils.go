// internal/utils/utils.go
package utils

import (
	"net/url"
	"strings"
)

// HostLabel returns the host of rawURL for use as a metric or log label,
// or "unknown" when it has none.
func HostLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return strings.ToLower(u.Host)
}

// TruncateLeft keeps the end of s, which for URLs is the most specific part.
func TruncateLeft(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[len(s)-maxLen:]
	}
	return "..." + s[len(s)-maxLen+3:]
}
