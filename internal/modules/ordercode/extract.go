package ordercode

import (
	"regexp"
	"strings"
)

// Patterns recognised inside free-form bank transfer descriptions, in priority order.
// New provider formats belong here and nowhere else.
var textPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:DOC|PHOTO)[-.\s]?\d{1,10}`),
	regexp.MustCompile(`#?ORD[-.\s]?\d{4}[-.\s]?\d{1,10}`),
}

var spaces = regexp.MustCompile(`\s+`)

// Extract scans transaction texts (description, reference, ...) for an order code
// and returns it in canonical form. A typed code anywhere in the texts wins over a
// generic one.
func Extract(texts ...string) (string, bool) {
	pool := strings.ToUpper(strings.Join(texts, " "))
	pool = strings.TrimSpace(spaces.ReplaceAllString(pool, " "))
	if pool == "" {
		return "", false
	}
	for _, re := range textPatterns {
		for _, match := range re.FindAllString(pool, -1) {
			if code, ok := Canonical(match); ok {
				return code, true
			}
		}
	}
	return "", false
}
