package extract

import "testing"

func TestScanJSONSpan(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		start int
		want  int // -1 for malformed/unterminated
	}{
		{"flat object", `{"a":1} tail`, 0, 7},
		{"nested objects", `{"a":{"b":{"c":[1,2,3]}}}`, 0, 25},
		{"array of objects", `[{"x":1},{"y":2}] rest`, 0, 17},
		{"string with escaped quote", `{"a":"he said \"hi\" {not a brace}"}`, 0, 36},
		{"string with escaped backslash", `{"p":"C:\\dir\\"}x`, 0, 17},
		{"negative and exponent numbers", `[-1.5e+3,2E-2]`, 0, 14},
		{"literals", `[true,false,null]`, 0, 17},
		{"empty object", `{} `, 0, 2},
		{"empty array", `[]`, 0, 2},
		{"whitespace inside", "{ \"a\" :\n[ 1 , 2 ]\n}", 0, 19},
		{"unterminated object", `{"a":1`, 0, -1},
		{"unterminated string", `{"a":"never`, 0, -1},
		{"bare word", `hello`, 0, -1},
		{"trailing garbage inside object", `{"a":1 x}`, 0, -1},
		{"mid-text start", `see {"ok":true} here`, 4, 15},
		{"start out of range", `{}`, 9, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScanJSONSpan(tt.text, tt.start); got != tt.want {
				t.Fatalf("ScanJSONSpan(%q, %d) = %d, want %d", tt.text, tt.start, got, tt.want)
			}
		})
	}
}
