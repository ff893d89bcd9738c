package validators

import "strings"

// SanitizeString trims whitespace and clips free-text input, used for
// operator notes and failure reasons before they reach the database.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}
