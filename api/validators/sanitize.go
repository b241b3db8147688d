package validators

import "strings"

// SanitizeString collapses whitespace runs in a free-text query value and
// truncates it to maxRunes characters.
func SanitizeString(input string, maxRunes int) string {
	cleaned := strings.Join(strings.Fields(input), " ")
	if maxRunes <= 0 {
		return cleaned
	}
	runes := []rune(cleaned)
	if len(runes) <= maxRunes {
		return cleaned
	}
	return string(runes[:maxRunes])
}
