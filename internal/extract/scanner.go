package extract

import "strings"

// ScanJSONSpan returns the end offset (exclusive) of the JSON value that
// begins at start, or -1 when no well-formed value starts there. It is a
// small recursive-descent scanner over objects, arrays, strings (with
// escape sequences), numbers, and the true/false/null literals. Nesting is
// tracked structurally; regex brace-counting cannot do this correctly.
func ScanJSONSpan(text string, start int) int {
	if start < 0 || start >= len(text) {
		return -1
	}
	return scanValue(text, start)
}

func scanValue(s string, i int) int {
	i = skipSpace(s, i)
	if i >= len(s) {
		return -1
	}
	switch c := s[i]; {
	case c == '{':
		return scanObject(s, i)
	case c == '[':
		return scanArray(s, i)
	case c == '"':
		return scanString(s, i)
	case c == '-' || (c >= '0' && c <= '9'):
		return scanNumber(s, i)
	case strings.HasPrefix(s[i:], "true"):
		return i + len("true")
	case strings.HasPrefix(s[i:], "false"):
		return i + len("false")
	case strings.HasPrefix(s[i:], "null"):
		return i + len("null")
	}
	return -1
}

func scanObject(s string, i int) int {
	i++ // consume '{'
	if j := skipSpace(s, i); j < len(s) && s[j] == '}' {
		return j + 1
	}
	for {
		i = skipSpace(s, i)
		if i >= len(s) || s[i] != '"' {
			return -1
		}
		if i = scanString(s, i); i < 0 {
			return -1
		}
		i = skipSpace(s, i)
		if i >= len(s) || s[i] != ':' {
			return -1
		}
		if i = scanValue(s, i+1); i < 0 {
			return -1
		}
		i = skipSpace(s, i)
		if i >= len(s) {
			return -1
		}
		switch s[i] {
		case ',':
			i++
		case '}':
			return i + 1
		default:
			return -1
		}
	}
}

func scanArray(s string, i int) int {
	i++ // consume '['
	if j := skipSpace(s, i); j < len(s) && s[j] == ']' {
		return j + 1
	}
	for {
		if i = scanValue(s, i); i < 0 {
			return -1
		}
		i = skipSpace(s, i)
		if i >= len(s) {
			return -1
		}
		switch s[i] {
		case ',':
			i++
		case ']':
			return i + 1
		default:
			return -1
		}
	}
}

func scanString(s string, i int) int {
	i++ // consume opening quote
	for i < len(s) {
		switch s[i] {
		case '\\':
			i += 2 // escape sequence; \uXXXX is covered because the hex digits are plain chars
		case '"':
			return i + 1
		default:
			i++
		}
	}
	return -1
}

func scanNumber(s string, i int) int {
	if s[i] == '-' {
		i++
	}
	start := i
	for i < len(s) {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-' {
			i++
			continue
		}
		break
	}
	if i == start {
		return -1
	}
	return i
}

func skipSpace(s string, i int) int {
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}
