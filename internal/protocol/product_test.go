package protocol

import "testing"

func TestProductFromRawFallbacks(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want Product
		ok   bool
	}{
		{
			name: "primary field names",
			raw: map[string]any{
				"product_id":       "VIT001",
				"product_name":     "Vitamin D3",
				"reason":           "low vitamin D",
				"confidence_score": float64(7),
			},
			want: Product{ID: "VIT001", Name: "Vitamin D3", Description: "low vitamin D", Similarity: 0.7, Category: "General", InStock: true},
			ok:   true,
		},
		{
			name: "fallback field names",
			raw: map[string]any{
				"id":          "A1",
				"name":        "Widget",
				"description": "fits",
			},
			want: Product{ID: "A1", Name: "Widget", Description: "fits", Similarity: 0.5, Category: "General", InStock: true},
			ok:   true,
		},
		{
			name: "explicit catalog fields win over defaults",
			raw: map[string]any{
				"product_id": "B2",
				"category":   "Supplements",
				"price":      float64(19.99),
				"in_stock":   false,
			},
			want: Product{ID: "B2", Similarity: 0.5, Category: "Supplements", Price: 19.99, InStock: false},
			ok:   true,
		},
		{
			name: "no id and no name",
			raw:  map[string]any{"reason": "nothing to anchor on"},
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ProductFromRaw(tt.raw)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseRecommendations(t *testing.T) {
	payload := `{"recommendations":[{"product_id":"VIT001","product_name":"X","reason":"Y"},{"reason":"skipped"}]}`
	products, ok := ParseRecommendations(payload)
	if !ok {
		t.Fatal("expected ok")
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
	if products[0].ID != "VIT001" || products[0].Similarity != 0.5 {
		t.Fatalf("unexpected product: %+v", products[0])
	}
}

func TestParseRecommendationsRejectsMissingList(t *testing.T) {
	for _, payload := range []string{`{"items":[]}`, `not json`, `42`} {
		if _, ok := ParseRecommendations(payload); ok {
			t.Fatalf("expected failure for %q", payload)
		}
	}
}

func TestDecodeEvent(t *testing.T) {
	evt, err := DecodeEvent([]byte(`{"type":"stream","message":"hi","user_id":"assistant"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if evt.Type != EventStream || evt.Message != "hi" {
		t.Fatalf("unexpected event: %+v", evt)
	}

	if _, err := DecodeEvent([]byte(`{"message":"no type"}`)); err == nil {
		t.Fatal("expected error for missing type")
	}
	if _, err := DecodeEvent([]byte(`{{`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
