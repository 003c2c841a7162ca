// Package decode turns loosely-structured generator output into typed domain
// entities. Decoding is two-step: a tolerant structural extraction locates the
// embedded JSON even amid commentary, then a validating normalizer fills
// defaults and rejects schema-incomplete payloads. String-level repair is kept
// separate from validation.
package decode

import "strings"

// ExtractJSON locates the first balanced JSON object embedded in text.
// Generators routinely wrap their answer in prose or Markdown code fences;
// both are tolerated.
func ExtractJSON(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}

// RepairJSON applies best-effort string fixups for the malformations
// generators most often produce: trailing commas before a closing bracket.
// It never validates; callers re-parse the result.
func RepairJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			b.WriteByte(c)
			continue
		}

		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}

		if c == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue // drop the trailing comma
			}
		}

		b.WriteByte(c)
	}

	return b.String()
}
