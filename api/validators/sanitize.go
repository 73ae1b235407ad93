package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString trims the input, collapses inner whitespace runs and cuts it
// to at most maxLen runes without splitting a multi-byte character.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Join(strings.Fields(input), " ")
	if maxLen <= 0 || utf8.RuneCountInString(cleaned) <= maxLen {
		return cleaned
	}
	runes := []rune(cleaned)
	return strings.TrimSpace(string(runes[:maxLen]))
}
