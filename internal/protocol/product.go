package protocol

import (
	"encoding/json"
	"math"
)

// Similarity assigned when a recommendation carries no confidence score.
const defaultSimilarity = 0.5

// Product is a recommendation reference surfaced to the UI. Minimal stubs
// built from model output carry only id/name/description/similarity; the
// remaining fields are defaulted here and replaced with canonical catalog
// attributes before rendering.
type Product struct {
	ID          string  `json:"product_id"`
	Name        string  `json:"product_name"`
	Description string  `json:"description"`
	Similarity  float64 `json:"similarity_score"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	InStock     bool    `json:"in_stock"`
	ImageURL    string  `json:"image_url,omitempty"`
}

// ProductFromRaw builds a Product from a loosely-shaped JSON object,
// applying the field fallbacks shared by the structured and extraction
// paths: product_id/id, product_name/name, reason/description, and a
// confidence_score in 0-10 mapped to similarity by dividing by 10.
// ok is false when the object carries neither an id nor a name.
func ProductFromRaw(raw map[string]any) (Product, bool) {
	id := stringField(raw, "product_id", "id")
	name := stringField(raw, "product_name", "name")
	if id == "" && name == "" {
		return Product{}, false
	}

	p := Product{
		ID:          id,
		Name:        name,
		Description: stringField(raw, "reason", "description"),
		Similarity:  defaultSimilarity,
		Category:    "General",
		InStock:     true,
	}
	if score, ok := numberField(raw, "confidence_score"); ok {
		p.Similarity = score / 10
	}
	if cat := stringField(raw, "category"); cat != "" {
		p.Category = cat
	}
	if price, ok := numberField(raw, "price"); ok {
		p.Price = price
	}
	if v, ok := raw["in_stock"].(bool); ok {
		p.InStock = v
	}
	if u := stringField(raw, "image_url"); u != "" {
		p.ImageURL = u
	}
	return p, true
}

// RecommendedProduct is the wire shape of one recommendation inside a
// structured_recommendations payload.
type RecommendedProduct struct {
	ProductID       string `json:"product_id"`
	ProductName     string `json:"product_name"`
	Reason          string `json:"reason"`
	ConfidenceScore int    `json:"confidence_score,omitempty"`
}

// Recommendations is the JSON payload carried by a
// structured_recommendations event's message field.
type Recommendations struct {
	Recommendations []RecommendedProduct `json:"recommendations"`
}

// Wire converts a Product back to its recommendation wire shape.
func (p Product) Wire() RecommendedProduct {
	return RecommendedProduct{
		ProductID:       p.ID,
		ProductName:     p.Name,
		Reason:          p.Description,
		ConfidenceScore: int(math.Round(p.Similarity * 10)),
	}
}

// ParseRecommendations decodes a structured_recommendations payload.
// ok is false when the payload is not valid JSON or has no
// recommendations list; entries without an id or name are skipped.
func ParseRecommendations(payload string) ([]Product, bool) {
	var body struct {
		Recommendations []map[string]any `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		return nil, false
	}
	if body.Recommendations == nil {
		return nil, false
	}
	products := make([]Product, 0, len(body.Recommendations))
	for _, raw := range body.Recommendations {
		if p, ok := ProductFromRaw(raw); ok {
			products = append(products, p)
		}
	}
	return products, true
}

func stringField(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func numberField(raw map[string]any, key string) (float64, bool) {
	switch v := raw[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
