package utils

import "fmt"

// FormatBytes renders a byte count in a human readable unit, e.g. "512 bytes",
// "1.2 MB". Used in transfer progress logs and the diagnose tool.
func FormatBytes(n int64) string {
	if n < 0 {
		return "Unknown"
	}
	if n < 1024 {
		return fmt.Sprintf("%d bytes", n)
	}
	units := []string{"KB", "MB", "GB", "TB", "PB"}
	v := float64(n)
	for _, unit := range units {
		v /= 1024.0
		if v < 1024.0 || unit == "PB" {
			return fmt.Sprintf("%.1f %s", v, unit)
		}
	}
	return fmt.Sprintf("%.1f PB", v)
}

// TruncateString safely truncates a string to max length
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
