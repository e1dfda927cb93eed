package validators

import "strings"

// SanitizeString trims surrounding whitespace and caps the value at maxLen
// runes, so a multibyte name is never cut mid-character. A maxLen of zero
// means no cap.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 {
		return trimmed
	}
	runes := []rune(trimmed)
	if len(runes) <= maxLen {
		return trimmed
	}
	return strings.TrimSpace(string(runes[:maxLen]))
}
