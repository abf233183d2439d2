// Package privacy masks personally identifying details before chat content
// reaches the model or the store.
package privacy

import "regexp"

var (
	emailPattern = regexp.MustCompile(`[\w.\-]+@[\w.\-]+`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s\-()]{7,}\d`)
)

// Sanitize replaces email addresses and phone numbers with placeholder
// tokens. Applied to every user-authored message before persistence and
// before it is sent to the completion service.
func Sanitize(text string) string {
	masked := emailPattern.ReplaceAllString(text, "[email]")
	return phonePattern.ReplaceAllString(masked, "[phone]")
}
