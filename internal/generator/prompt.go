package generator

import (
	"fmt"
	"strings"

	"github.com/abhisek/qagen/internal/qa"
)

const systemPrompt = `You are an expert educator creating study questions from reference material.

Rules:
- Use the provided context as the source of truth. Do not invent facts that contradict it.
- Every question must be self-contained and answerable without seeing the context.
- Answers must be short, precise and correct.
- Explanations should state briefly why the answer is correct.
- Do not repeat a question or ask the same thing twice with different wording.
- Respond with a single JSON object and nothing else. No markdown fences, no commentary.`

const qaFormat = `{"questions": [{"question": "...", "answer": "...", "explanation": "..."}]}`

const mcqFormat = `{"questions": [{"question": "...", "choices": [{"letter": "A", "text": "..."}, {"letter": "B", "text": "..."}, {"letter": "C", "text": "..."}, {"letter": "D", "text": "..."}], "answer": ["B"], "explanation": "..."}]}`

// promptInput is everything buildUserMessage needs for one attempt.
type promptInput struct {
	Source string
	Text   string
	Type   qa.QuestionType
	Count  int

	// RestateCount is set when the previous attempt returned the wrong
	// number of questions.
	RestateCount bool
}

// buildUserMessage wraps a chunk in the generation instructions.
func buildUserMessage(in promptInput) string {
	var b strings.Builder

	n := "several"
	if in.Count > 0 {
		n = fmt.Sprintf("%d", in.Count)
	}

	fmt.Fprintf(&b, "Here is the context provided from %q, which you may use as inspiration for %s %s:\n\n",
		in.Source, n, kindLabel(in.Type))
	fmt.Fprintf(&b, "<context source=%q>\n%s\n</context>\n\n", in.Source, in.Text)

	fmt.Fprintf(&b, "Task: Generate %s %s based on the context above.\n", n, kindLabel(in.Type))
	if in.Type == qa.TypeMCQ {
		b.WriteString("Each question must have at least 4 lettered choices. ")
		b.WriteString("Mark the correct choice letters in \"answer\". Wrong choices should be plausible, not random.\n")
	}

	b.WriteString("\nOutput format (valid JSON):\n")
	if in.Type == qa.TypeMCQ {
		b.WriteString(mcqFormat)
	} else {
		b.WriteString(qaFormat)
	}
	b.WriteString("\n")

	if in.RestateCount && in.Count > 0 {
		fmt.Fprintf(&b, "\nImportant: the \"questions\" array must contain exactly %d items, no more and no fewer.\n", in.Count)
	}

	return b.String()
}

func kindLabel(t qa.QuestionType) string {
	if t == qa.TypeMCQ {
		return "multiple choice questions"
	}
	return "question-and-answer pairs"
}

// purposeFor is the llm purpose tag recorded for each request.
func purposeFor(t qa.QuestionType) string {
	if t == qa.TypeMCQ {
		return "mcq-gen"
	}
	return "qa-gen"
}
