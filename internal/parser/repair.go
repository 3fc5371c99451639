package parser

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
)

var smartQuotes = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`,
	"‘", "'", "’", "'",
)

// repairSyntax fixes common quoting and bracket defects in the first JSON
// structure found in s and decodes the result.
//
// Fixes applied, outside string literals: single-quoted strings become
// double-quoted, bare object keys are quoted, trailing commas are dropped,
// Python literals become JSON literals and mismatched closers are
// corrected. Anything after the structure closes is discarded.
//
// Input that ends before the structure closes is cut back to the last
// complete array element and the open brackets are closed. A partly
// written object is dropped, never completed.
func repairSyntax(s string) (any, error) {
	body := smartQuotes.Replace(stripFences(s))
	start := strings.IndexAny(body, "{[")
	if start < 0 {
		return nil, fmt.Errorf("no object or array start")
	}
	fixed := rewrite([]rune(body[start:]))
	if fixed == "" {
		return nil, fmt.Errorf("output ends before the first complete element")
	}
	return decodeStructured(fixed)
}

// stripFences returns the content of the first markdown code fence in s,
// or s unchanged when there is none.
func stripFences(s string) string {
	open := strings.Index(s, "```")
	if open < 0 {
		return s
	}
	rest := s[open+3:]
	// Skip the info string (e.g. "json") up to the end of the fence line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		return rest[:end]
	}
	return rest
}

var pythonLiterals = map[string]string{
	"True":  "true",
	"False": "false",
	"None":  "null",
}

// checkpoint is a point in the output where the text so far can be
// closed without completing any partly written value.
type checkpoint struct {
	n     int
	stack []rune
}

// settled reports whether every open container except the outermost is
// an array and the innermost one is an array too. Cutting at such a point
// drops whole elements only.
func settled(stack []rune) bool {
	if len(stack) == 0 || stack[len(stack)-1] != ']' {
		return false
	}
	for _, r := range stack[1:] {
		if r != ']' {
			return false
		}
	}
	return true
}

// rewrite is a single left-to-right pass over rs, which starts at '{' or '['.
func rewrite(rs []rune) string {
	var out strings.Builder
	var stack []rune
	var last rune // last significant rune written outside strings
	var cp checkpoint

	mark := func() {
		if len(stack) == 1 || settled(stack) {
			cp = checkpoint{n: out.Len(), stack: slices.Clone(stack)}
		}
	}

	emit := func(r rune) {
		out.WriteRune(r)
		if !unicode.IsSpace(r) {
			last = r
		}
	}

	i := 0
	for i < len(rs) {
		c := rs[i]
		switch {
		case c == '"':
			i = copyString(rs, i, '"', &out)
			last = '"'
			continue

		case c == '\'':
			i = copyString(rs, i, '\'', &out)
			last = '"'
			continue

		case c == '{' || c == '[':
			if c == '{' {
				stack = append(stack, '}')
			} else {
				stack = append(stack, ']')
			}
			emit(c)
			if len(stack) == 1 || c == '[' {
				mark()
			}

		case c == '}' || c == ']':
			if !slices.Contains(stack, c) {
				// Unmatched closer: drop it.
				break
			}
			for stack[len(stack)-1] != c {
				emit(stack[len(stack)-1])
				stack = stack[:len(stack)-1]
			}
			stack = stack[:len(stack)-1]
			emit(c)
			if len(stack) == 0 {
				return out.String()
			}
			if settled(stack) {
				mark()
			}

		case c == ',':
			next := nextSignificant(rs, i+1)
			if next == '}' || next == ']' || next == 0 {
				break
			}
			if settled(stack) {
				mark()
			}
			emit(c)

		case unicode.IsLetter(c) || c == '_':
			j := i
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j]) || rs[j] == '_' || rs[j] == '-') {
				j++
			}
			word := string(rs[i:j])
			if (last == '{' || last == ',') && nextSignificant(rs, j) == ':' {
				out.WriteString(`"` + word + `"`)
				last = '"'
			} else if lit, ok := pythonLiterals[word]; ok {
				out.WriteString(lit)
				last = 'l'
			} else {
				out.WriteString(word)
				last = 'w'
			}
			i = j
			continue

		default:
			emit(c)
		}
		i++
	}

	// Truncated input: keep what was complete and close it.
	if cp.n <= 1 {
		return ""
	}
	tail := strings.TrimRightFunc(out.String()[:cp.n], unicode.IsSpace)
	tail = strings.TrimSuffix(tail, ",")
	var b strings.Builder
	b.WriteString(tail)
	for k := len(cp.stack) - 1; k >= 0; k-- {
		b.WriteRune(cp.stack[k])
	}
	return b.String()
}

// copyString writes the string literal starting at rs[i] (delimited by
// quote) to out as a valid JSON string and returns the index after it.
// An unterminated literal is closed at the end of input; rewrite discards
// it again when it cuts back to the last checkpoint.
func copyString(rs []rune, i int, quote rune, out *strings.Builder) int {
	out.WriteByte('"')
	i++
	for i < len(rs) {
		c := rs[i]
		switch {
		case c == '\\':
			if i+1 == len(rs) {
				i++
				continue
			}
			next := rs[i+1]
			if next == '\'' {
				out.WriteRune('\'')
			} else {
				out.WriteRune(c)
				out.WriteRune(next)
			}
			i += 2
			continue
		case c == quote:
			out.WriteByte('"')
			return i + 1
		case c == '"':
			// Only reachable inside a single-quoted literal.
			out.WriteString(`\"`)
		case c == '\n':
			out.WriteString(`\n`)
		case c == '\r':
			out.WriteString(`\r`)
		case c == '\t':
			out.WriteString(`\t`)
		default:
			out.WriteRune(c)
		}
		i++
	}
	out.WriteByte('"')
	return i
}

// nextSignificant returns the first non-space rune at or after i, or 0.
func nextSignificant(rs []rune, i int) rune {
	for ; i < len(rs); i++ {
		if !unicode.IsSpace(rs[i]) {
			return rs[i]
		}
	}
	return 0
}
