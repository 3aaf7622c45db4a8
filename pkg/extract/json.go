package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")

// jsonCandidates returns the substrings of raw worth attempting to parse as
// JSON, in priority order: fenced code blocks first, then the first balanced
// object span, then the first balanced array span.
func jsonCandidates(raw string) []string {
	var out []string
	for _, m := range fenceRe.FindAllStringSubmatch(raw, -1) {
		body := strings.TrimSpace(m[1])
		if body != "" {
			out = append(out, body)
		}
	}
	if span := balancedSpan(raw, '{', '}'); span != "" {
		out = append(out, span)
	}
	if span := balancedSpan(raw, '[', ']'); span != "" {
		out = append(out, span)
	}
	return out
}

// balancedSpan finds the first well-nested open..close span in raw, skipping
// brackets that appear inside JSON string literals.
func balancedSpan(raw string, open, close byte) string {
	start := strings.IndexByte(raw, open)
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}

// decodeFirst unmarshals the first candidate for which validate accepts the
// decoded value. Returns false when no candidate parses and validates.
func decodeFirst(raw string, validate func(v any) bool) (any, bool) {
	for _, c := range jsonCandidates(raw) {
		var v any
		dec := json.NewDecoder(strings.NewReader(c))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			continue
		}
		if validate(v) {
			return v, true
		}
	}
	return nil, false
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	}
	return 0, false
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}
