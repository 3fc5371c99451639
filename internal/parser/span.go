package parser

import (
	"cmp"
	"slices"
)

type span struct {
	start, end int // end is exclusive
}

// largestSpan finds the top-level balanced {...} or [...] regions in s and
// returns the decoded value of the longest one that is valid JSON. Ties go
// to the earliest region. Scanning stops at the first region that never
// closes: whatever follows belongs to a truncated structure.
func largestSpan(s string) (any, bool) {
	var spans []span
	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		end, ok := matchSpan(s, i)
		if !ok {
			break
		}
		spans = append(spans, span{start: i, end: end})
		i = end - 1
	}

	slices.SortStableFunc(spans, func(a, b span) int {
		return cmp.Compare(b.end-b.start, a.end-a.start)
	})

	for _, sp := range spans {
		if v, err := decodeStructured(s[sp.start:sp.end]); err == nil {
			return v, true
		}
	}
	return nil, false
}

// matchSpan returns the index just past the bracket that closes s[start].
// Brackets inside double-quoted strings are ignored.
func matchSpan(s string, start int) (int, bool) {
	var stack []byte
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
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
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}
