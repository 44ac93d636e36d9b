package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hypershop/shopstream/internal/protocol"
)

// Markers that identify a JSON span as recommendation-bearing.
var recommendationMarkers = []string{`"recommendations"`, `"product_id"`, `"product_name"`}

var fenceRe = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\n?(.*?)```")

const (
	bulletHeader = "**Recommended for you:**"
	emptyLeadIn  = "I found some products that match what you're looking for:"
)

// Result is the outcome of scanning finalized assistant text for embedded
// recommendation data.
type Result struct {
	Text     string // display text with recommendation spans excised
	Products []protocol.Product
}

// Extract scans finalized text for recommendation data the model emitted
// inline as prose: fenced code blocks, raw objects with a recommendations
// array, arrays of product objects, and single product objects. Candidates
// are parsed strictly; malformed ones are skipped and their surrounding
// text left untouched. Recommendation-bearing spans are excised at the
// exact boundaries reported by the span scanner, and any products found
// are rendered as a bullet list beneath the cleaned text.
func Extract(text string) Result {
	var products []protocol.Product

	// Fenced blocks first: a recommendation-bearing fence is removed in
	// its entirety, fence markers included.
	cleaned := fenceRe.ReplaceAllStringFunc(text, func(block string) string {
		m := fenceRe.FindStringSubmatch(block)
		inner := strings.TrimSpace(m[1])
		if !bearsMarkers(inner) {
			return block
		}
		ps, ok := parseCandidate(inner)
		if !ok {
			return block
		}
		products = append(products, ps...)
		return ""
	})

	cleaned, products = excludeInlineSpans(cleaned, products)

	cleaned = strings.TrimSpace(cleaned)
	if len(products) == 0 {
		return Result{Text: cleaned}
	}
	return Result{Text: renderBullets(cleaned, products), Products: products}
}

// excludeInlineSpans walks the text left to right, scanning every '{' or
// '[' for a well-formed JSON span. Recommendation-bearing spans are parsed
// and excised; other valid JSON is copied through untouched.
func excludeInlineSpans(text string, products []protocol.Product) (string, []protocol.Product) {
	var b strings.Builder
	b.Grow(len(text))
	i := 0
	for i < len(text) {
		c := text[i]
		if c != '{' && c != '[' {
			b.WriteByte(c)
			i++
			continue
		}
		end := ScanJSONSpan(text, i)
		if end < 0 {
			b.WriteByte(c)
			i++
			continue
		}
		span := text[i:end]
		if !bearsMarkers(span) {
			b.WriteString(span)
			i = end
			continue
		}
		ps, ok := parseCandidate(span)
		if !ok {
			// Marker hit but strict parse failed: keep this byte and keep
			// scanning, a valid candidate may start further in.
			b.WriteByte(c)
			i++
			continue
		}
		products = append(products, ps...)
		i = end
	}
	return b.String(), products
}

// parseCandidate strictly parses a candidate span and normalizes it into
// product references. ok reports whether the span is recommendation-shaped
// (the products slice may still be empty for an empty recommendations
// list, in which case the span is excised but nothing is surfaced).
func parseCandidate(span string) ([]protocol.Product, bool) {
	span = strings.TrimSpace(span)
	if span == "" {
		return nil, false
	}
	switch span[0] {
	case '{':
		var obj map[string]any
		if err := json.Unmarshal([]byte(span), &obj); err != nil {
			return nil, false
		}
		if list, ok := obj["recommendations"].([]any); ok {
			return productsFromList(list), true
		}
		// Single product object: require an id/name plus a reason so that
		// arbitrary JSON mentioning a product field is not swallowed.
		if p, ok := protocol.ProductFromRaw(obj); ok && p.Description != "" {
			return []protocol.Product{p}, true
		}
		return nil, false
	case '[':
		var list []any
		if err := json.Unmarshal([]byte(span), &list); err != nil {
			return nil, false
		}
		ps := productsFromList(list)
		if len(ps) == 0 {
			return nil, false
		}
		return ps, true
	}
	return nil, false
}

func productsFromList(list []any) []protocol.Product {
	var products []protocol.Product
	for _, item := range list {
		raw, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if p, ok := protocol.ProductFromRaw(raw); ok {
			products = append(products, p)
		}
	}
	return products
}

func bearsMarkers(span string) bool {
	for _, m := range recommendationMarkers {
		if strings.Contains(span, m) {
			return true
		}
	}
	return false
}

// renderBullets appends the extracted products as a bullet list beneath a
// fixed header, or replaces empty cleaned text with a lead-in sentence.
func renderBullets(cleaned string, products []protocol.Product) string {
	var b strings.Builder
	if cleaned == "" {
		b.WriteString(emptyLeadIn)
	} else {
		b.WriteString(cleaned)
		b.WriteString("\n\n")
		b.WriteString(bulletHeader)
	}
	for _, p := range products {
		b.WriteString("\n")
		fmt.Fprintf(&b, "• **%s**: %s", p.Name, p.Description)
	}
	return b.String()
}
