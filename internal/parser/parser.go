// Package parser extracts a structured object from raw model output.
//
// Parsing tries a direct JSON decode first and then a fixed sequence of
// repair heuristics. Every step is deterministic, so the same raw text
// always yields the same candidate or the same error.
package parser

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Method records which step produced a candidate.
type Method string

const (
	MethodDirect    Method = "direct"
	MethodExtracted Method = "extracted-span"
	MethodRepaired  Method = "repaired-syntax"
	MethodLines     Method = "line-extraction"
)

// Candidate is a decoded but not yet validated model response.
type Candidate struct {
	// Value is the decoded JSON value: map[string]any or []any.
	Value any

	// Method is the parsing step that produced Value.
	Method Method
}

// ParseError is returned when no parsing step produced a structured value.
type ParseError struct {
	// Raw is the (possibly truncated) text that failed to parse.
	Raw string

	// Attempts lists the reason each step failed, in order.
	Attempts []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable model output after %d attempts: %s", len(e.Attempts), strings.Join(e.Attempts, "; "))
}

const maxRawInError = 200

// Parse turns raw model text into a candidate structured object.
func Parse(raw string) (Candidate, error) {
	var attempts []string
	text := strings.TrimSpace(raw)

	v, err := decodeStructured(text)
	if err == nil {
		return Candidate{Value: v, Method: MethodDirect}, nil
	}
	attempts = append(attempts, "direct: "+err.Error())

	if v, ok := largestSpan(text); ok {
		return Candidate{Value: v, Method: MethodExtracted}, nil
	}
	attempts = append(attempts, "extracted-span: no decodable JSON span")

	v, err = repairSyntax(text)
	if err == nil {
		return Candidate{Value: v, Method: MethodRepaired}, nil
	}
	attempts = append(attempts, "repaired-syntax: "+err.Error())

	if v, ok := extractLines(text); ok {
		return Candidate{Value: v, Method: MethodLines}, nil
	}
	attempts = append(attempts, "line-extraction: no question/answer markers")

	return Candidate{}, &ParseError{Raw: truncate(raw, maxRawInError), Attempts: attempts}
}

// decodeStructured decodes s and accepts only objects and arrays that
// hold at least one object.
func decodeStructured(s string) (any, error) {
	if s == "" {
		return nil, fmt.Errorf("empty response")
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case map[string]any:
		return v, nil
	case []any:
		for _, item := range t {
			if _, ok := item.(map[string]any); ok {
				return v, nil
			}
		}
		return nil, fmt.Errorf("array holds no objects")
	default:
		return nil, fmt.Errorf("top-level value is %T, not an object or array", v)
	}
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
