package util

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// FormatSize returns a human-readable size string using binary units.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatCount returns a grouped decimal count, e.g. "1,234,567".
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

// Percent returns the percentage of part relative to total.
func Percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// TruncateString truncates a string to maxLen runes, adding "..." if needed.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// ElideMiddle shortens a path-like string by dropping middle components,
// keeping the first and last ones readable.
func ElideMiddle(s string, maxLen int) string {
	if len(s) <= maxLen || maxLen <= 0 {
		return s
	}
	parts := strings.Split(s, "/")
	if len(parts) < 3 {
		return TruncateString(s, maxLen)
	}
	short := fmt.Sprintf("%s/…/%s", parts[0], parts[len(parts)-1])
	if len(short) > maxLen {
		return TruncateString(short, maxLen)
	}
	return short
}
