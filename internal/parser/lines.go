package parser

import (
	"regexp"
	"strings"
)

var (
	questionLine = regexp.MustCompile(`(?i)^\s*(?:[-*>]\s*)?(?:\*\*)?(?:\d+[.)]\s*)?(?:question|q)\s*\d*\s*(?:\*\*)?\s*[:.)]\s*(?:\*\*)?\s*(.*)$`)
	answerLine   = regexp.MustCompile(`(?i)^\s*(?:[-*>]\s*)?(?:\*\*)?(?:answer|a)\s*\d*\s*(?:\*\*)?\s*:\s*(?:\*\*)?\s*(.*)$`)
	optionLine   = regexp.MustCompile(`^\s*(?:[-*]\s*)?\(?([A-Ha-h])[).]\s+(.+)$`)
)

// extractLines recovers question/answer pairs from free text that marks
// them with "Q:"/"A:", "Question 1:"/"Answer 1:" and similar prefixes.
// Lettered option lines such as "B) Paris" between a question and its
// answer are collected as choices. Other lines without a marker continue
// the current question or answer.
func extractLines(s string) (map[string]any, bool) {
	var pairs []any
	var q, a []string
	var choices []any
	inAnswer := false

	flush := func() {
		question := strings.TrimSpace(strings.Join(q, " "))
		answer := strings.TrimSpace(strings.Join(a, " "))
		if question != "" && answer != "" {
			pair := map[string]any{
				"question": question,
				"answer":   answer,
			}
			if len(choices) > 0 {
				pair["choices"] = choices
			}
			pairs = append(pairs, pair)
		}
		q, a, choices = nil, nil, nil
		inAnswer = false
	}

	for _, line := range strings.Split(s, "\n") {
		if m := questionLine.FindStringSubmatch(line); m != nil {
			flush()
			q = append(q, m[1])
			continue
		}
		if m := answerLine.FindStringSubmatch(line); m != nil && len(q) > 0 {
			inAnswer = true
			a = append(a, m[1])
			continue
		}
		if m := optionLine.FindStringSubmatch(line); m != nil && len(q) > 0 && !inAnswer {
			choices = append(choices, map[string]any{
				"letter": strings.ToUpper(m[1]),
				"text":   strings.TrimSpace(m[2]),
			})
			continue
		}
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		switch {
		case inAnswer:
			a = append(a, text)
		case len(choices) > 0:
			// Text after the options belongs to no field.
		case len(q) > 0:
			q = append(q, text)
		}
	}
	flush()

	if len(pairs) == 0 {
		return nil, false
	}
	return map[string]any{"questions": pairs}, true
}
