package extract

import "testing"

func TestFilterStreaming(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no tag", "plain text", "plain text"},
		{"open tag without close hides the tail", "A<results>partial", "A"},
		{"closed tag excised", "A<results>full</results>B", "AB"},
		{"case-insensitive with attributes", "hi <RESULTS format=\"json\">data</Results> there", "hi  there"},
		{"only leading span while streaming", "<results>{\"recommendations\":[", ""},
		{"text before tag preserved and trimmed", "Here you go \n<results>still coming", "Here you go"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FilterStreaming(tt.in); got != tt.want {
				t.Fatalf("FilterStreaming(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripResultTagsRemovesEveryOccurrence(t *testing.T) {
	in := "one <results>{\"a\":1}</results> two <results>[]</results> three"
	want := "one  two  three"
	if got := StripResultTags(in); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestStripResultTagsNonGreedy(t *testing.T) {
	in := "<results>first</results> keep <results>second</results>"
	if got := StripResultTags(in); got != "keep" {
		t.Fatalf("got %q, want %q", got, "keep")
	}
}

func TestStripResultTagsLeavesUnterminatedTag(t *testing.T) {
	in := "text <results>never closed"
	if got := StripResultTags(in); got != in {
		t.Fatalf("got %q, want input unchanged", got)
	}
}
