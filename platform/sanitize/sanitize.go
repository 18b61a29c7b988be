// Package sanitize cleans free text coming back from the provider API before
// it is stored on a lead.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// StripHTML removes tags, decodes entities and strips again so encoded tags
// like &lt;script&gt; do not survive.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = html.UnescapeString(result)
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Line is for single-line fields (headline, location, names): markup is
// removed and runs of whitespace collapse to one space.
func Line(s string) string {
	return whitespaceRegex.ReplaceAllString(StripHTML(s), " ")
}

// Text is for multi-line fields (descriptions, comments); newlines are kept.
func Text(s string) string {
	return StripHTML(s)
}

// LinePtr applies Line to an optional value. Empty results become nil so they
// never overwrite a stored value.
func LinePtr(s *string) *string {
	if s == nil {
		return nil
	}
	result := Line(*s)
	if result == "" {
		return nil
	}
	return &result
}
