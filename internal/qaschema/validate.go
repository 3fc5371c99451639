package qaschema

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/abhisek/qagen/internal/qa"
)

// Reason classifies a SchemaError.
type Reason string

const (
	// ReasonField means a required field is missing, empty or mistyped.
	ReasonField Reason = "field"

	// ReasonCountMismatch means the candidate is well formed but holds a
	// different number of questions than requested.
	ReasonCountMismatch Reason = "count_mismatch"
)

// SchemaError reports a candidate that does not conform to the bank schema.
type SchemaError struct {
	Reason  Reason
	Message string

	// Want and Got are set for ReasonCountMismatch.
	Want int
	Got  int
}

func (e *SchemaError) Error() string {
	if e.Reason == ReasonCountMismatch {
		return fmt.Sprintf("schema: expected %d questions, got %d", e.Want, e.Got)
	}
	return fmt.Sprintf("schema: %s", e.Message)
}

// Expect describes what a candidate must contain.
type Expect struct {
	Type qa.QuestionType

	// Count is the exact number of questions required. Zero accepts any
	// non-empty bank.
	Count int

	// ChunkIndex is stamped on every produced record.
	ChunkIndex int
}

// Validate checks a parsed candidate against the schema for exp.Type and
// converts it into records. Keys are matched case-insensitively and string
// values are trimmed before checking. The following shapes are accepted:
//
//	{"questions": [...]}
//	[{...}, {...}]
//	{"question": ..., "answer": ...}
//
// For multiple choice banks choices may also be given as a letter keyed
// object or as a plain list of strings, and the answer as a single letter.
func Validate(candidate any, exp Expect) ([]qa.Record, error) {
	if !exp.Type.Valid() {
		return nil, qa.ConfigErrorf("question_type", "unknown question type %q", exp.Type)
	}

	bank := wrapBank(normalize(candidate))
	if exp.Type == qa.TypeMCQ {
		coerceMCQ(bank)
	}

	sch, err := compiled(For(exp.Type))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	if err := sch.Validate(bank); err != nil {
		return nil, &SchemaError{Reason: ReasonField, Message: err.Error()}
	}

	items := bank.(map[string]any)["questions"].([]any)
	if exp.Count > 0 && len(items) != exp.Count {
		return nil, &SchemaError{Reason: ReasonCountMismatch, Want: exp.Count, Got: len(items)}
	}

	records := make([]qa.Record, 0, len(items))
	for i, item := range items {
		obj := item.(map[string]any)
		rec := qa.Record{
			Question:    obj["question"].(string),
			Explanation: stringField(obj, "explanation"),
			ChunkIndex:  exp.ChunkIndex,
			Type:        exp.Type,
		}
		if exp.Type == qa.TypeMCQ {
			if err := fillChoices(&rec, obj); err != nil {
				return nil, &SchemaError{Reason: ReasonField, Message: fmt.Sprintf("questions[%d]: %v", i, err)}
			}
		} else {
			rec.Answer = answerText(obj["answer"].(string), obj["choices"])
		}
		records = append(records, rec)
	}
	return records, nil
}

// normalize lower-cases object keys and trims string values, recursively.
// When two keys collide after lower-casing, the one already in lower case
// wins.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if k == strings.ToLower(k) {
				out[strings.TrimSpace(k)] = normalize(val)
			}
		}
		for k, val := range t {
			key := strings.ToLower(strings.TrimSpace(k))
			if _, taken := out[key]; !taken {
				out[key] = normalize(val)
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case string:
		return strings.TrimSpace(t)
	default:
		return v
	}
}

// wrapBank converts the accepted top-level shapes into {"questions": [...]}.
func wrapBank(v any) any {
	switch t := v.(type) {
	case []any:
		return map[string]any{"questions": t}
	case map[string]any:
		if _, ok := t["questions"]; ok {
			return t
		}
		if _, ok := t["question"]; ok {
			return map[string]any{"questions": []any{t}}
		}
	}
	return v
}

// coerceMCQ rewrites alternative choice and answer encodings in place.
func coerceMCQ(bank any) {
	obj, ok := bank.(map[string]any)
	if !ok {
		return
	}
	items, ok := obj["questions"].([]any)
	if !ok {
		return
	}
	for _, item := range items {
		q, ok := item.(map[string]any)
		if !ok {
			continue
		}
		q["choices"] = coerceChoices(q["choices"])
		q["answer"] = coerceAnswer(q["answer"])
	}
}

func coerceChoices(v any) any {
	switch t := v.(type) {
	case map[string]any:
		letters := make([]string, 0, len(t))
		for k := range t {
			letters = append(letters, k)
		}
		sort.Strings(letters)
		out := make([]any, 0, len(letters))
		for _, l := range letters {
			out = append(out, map[string]any{"letter": strings.ToUpper(l), "text": t[l]})
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, c := range t {
			switch ct := c.(type) {
			case string:
				out[i] = map[string]any{"letter": string(rune('A' + i)), "text": ct}
			case map[string]any:
				if l, ok := ct["letter"].(string); ok {
					ct["letter"] = strings.ToUpper(l)
				}
				out[i] = ct
			default:
				out[i] = c
			}
		}
		return out
	}
	return v
}

func coerceAnswer(v any) any {
	switch t := v.(type) {
	case string:
		return []any{strings.ToUpper(t)}
	case []any:
		out := make([]any, len(t))
		for i, a := range t {
			if s, ok := a.(string); ok {
				out[i] = strings.ToUpper(s)
			} else {
				out[i] = a
			}
		}
		return out
	}
	return v
}

// fillChoices populates the multiple choice fields of rec. Every answer
// letter must name one of the choices.
func fillChoices(rec *qa.Record, obj map[string]any) error {
	var correct []string
	for _, a := range obj["answer"].([]any) {
		l := a.(string)
		if !slices.Contains(correct, l) {
			correct = append(correct, l)
		}
	}

	seen := make(map[string]bool)
	var answers []string
	for _, c := range obj["choices"].([]any) {
		cm := c.(map[string]any)
		letter, text := cm["letter"].(string), cm["text"].(string)
		if seen[letter] {
			return fmt.Errorf("duplicate choice letter %q", letter)
		}
		seen[letter] = true
		rec.Choices = append(rec.Choices, qa.Choice{Letter: letter, Text: text})
		if slices.Contains(correct, letter) {
			answers = append(answers, text)
		} else {
			rec.Distractors = append(rec.Distractors, text)
		}
	}

	for _, l := range correct {
		if !seen[l] {
			return fmt.Errorf("answer letter %q is not one of the choices", l)
		}
	}

	rec.CorrectLetters = correct
	rec.Answer = strings.Join(answers, "; ")
	return nil
}

// answerText resolves an answer given as a bare choice letter to the text
// of that choice. Other answers are returned unchanged.
func answerText(answer string, choices any) string {
	list, ok := choices.([]any)
	if !ok {
		return answer
	}
	for _, c := range list {
		cm, ok := c.(map[string]any)
		if !ok {
			continue
		}
		letter, _ := cm["letter"].(string)
		text, _ := cm["text"].(string)
		if letter != "" && text != "" && strings.EqualFold(letter, answer) {
			return text
		}
	}
	return answer
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}
