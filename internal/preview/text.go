package preview

import "strings"

const (
	// Placeholder is shown when a page has no extractable text.
	Placeholder = "No text preview available for this page."
	// Pending is shown until the background pass reports a page.
	Pending = "Generating preview…"
	// DefaultTextLimit is the preview length in runes before truncation.
	DefaultTextLimit = 240
)

// BuildText collapses whitespace in raw and truncates it to limit runes,
// appending an ellipsis when cut. Empty input yields Placeholder.
func BuildText(raw string, limit int) string {
	if limit <= 0 {
		limit = DefaultTextLimit
	}
	cleaned := strings.Join(strings.Fields(raw), " ")
	if cleaned == "" {
		return Placeholder
	}
	runes := []rune(cleaned)
	if len(runes) > limit {
		return string(runes[:limit]) + "…"
	}
	return cleaned
}
