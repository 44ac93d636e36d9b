package extract

import (
	"regexp"
	"strings"
)

// The assistant wraps machine-readable recommendation payloads in a
// <results>...</results> pair. Matching is case-insensitive and tolerates
// attributes on the opening tag.
var (
	openTagRe  = regexp.MustCompile(`(?i)<results\b[^>]*>`)
	closeTagRe = regexp.MustCompile(`(?i)</results>`)
	tagSpanRe  = regexp.MustCompile(`(?is)<results\b[^>]*>.*?</results>`)
)

// FilterStreaming returns the display-safe view of partially streamed text.
// A tagged section is hidden in its entirety until its closing tag arrives;
// once closed, the whole span is excised and the surrounding text joined.
// Text without an opening tag passes through unchanged.
func FilterStreaming(text string) string {
	loc := openTagRe.FindStringIndex(text)
	if loc == nil {
		return text
	}
	rest := text[loc[1]:]
	closeLoc := closeTagRe.FindStringIndex(rest)
	if closeLoc == nil {
		// Tag still open: everything from the opening tag on is suppressed.
		return strings.TrimSpace(text[:loc[0]])
	}
	return strings.TrimSpace(text[:loc[0]] + rest[closeLoc[1]:])
}

// ResultPayloads returns the inner content of every complete tagged span,
// in order of appearance. Unterminated spans are skipped.
func ResultPayloads(text string) []string {
	var payloads []string
	for _, span := range tagSpanRe.FindAllString(text, -1) {
		inner := openTagRe.ReplaceAllString(span, "")
		inner = closeTagRe.ReplaceAllString(inner, "")
		payloads = append(payloads, strings.TrimSpace(inner))
	}
	return payloads
}

// StripResultTags removes every complete tagged span from finalized text,
// non-greedy per occurrence, and trims the result. Unterminated opening
// tags are left alone; FilterStreaming handles the in-flight case.
func StripResultTags(text string) string {
	return strings.TrimSpace(tagSpanRe.ReplaceAllString(text, ""))
}
