package utils

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var (
	sanitizer     = bluemonday.UGCPolicy()
	textSanitizer = bluemonday.StrictPolicy()
)

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// SanitizeText strips every tag and returns plain text with entities decoded,
// so "Stretch & breathe" survives unchanged. Used for generated task and plan text.
func SanitizeText(input string) string {
	return html.UnescapeString(textSanitizer.Sanitize(input))
}
