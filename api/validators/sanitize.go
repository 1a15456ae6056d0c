package validators

import "strings"

// SanitizeString collapses whitespace runs and caps the result at maxLen
// runes, so accented part names are never cut inside a character.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Join(strings.Fields(input), " ")
	if maxLen <= 0 {
		return cleaned
	}
	if runes := []rune(cleaned); len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return cleaned
}
