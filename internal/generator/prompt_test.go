package generator

import (
	"strings"
	"testing"

	"github.com/abhisek/qagen/internal/qa"
)

func TestBuildUserMessage_QA(t *testing.T) {
	msg := buildUserMessage(promptInput{
		Source: "Ancient Rome",
		Text:   "Rome was founded in 753 BC.",
		Type:   qa.TypeQA,
		Count:  5,
	})

	for _, want := range []string{
		`context provided from "Ancient Rome"`,
		"<context source=\"Ancient Rome\">\nRome was founded in 753 BC.\n</context>",
		"Generate 5 question-and-answer pairs",
		qaFormat,
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "exactly") || strings.Contains(msg, "choices") {
		t.Errorf("unexpected restatement or mcq instructions:\n%s", msg)
	}
}

func TestBuildUserMessage_MCQ(t *testing.T) {
	msg := buildUserMessage(promptInput{Source: "s", Text: "t", Type: qa.TypeMCQ, Count: 3})
	if !strings.Contains(msg, "3 multiple choice questions") || !strings.Contains(msg, mcqFormat) {
		t.Errorf("mcq message incomplete:\n%s", msg)
	}
}

func TestBuildUserMessage_RestateCount(t *testing.T) {
	msg := buildUserMessage(promptInput{Source: "s", Text: "t", Type: qa.TypeQA, Count: 4, RestateCount: true})
	if !strings.Contains(msg, "exactly 4 items") {
		t.Errorf("expected count restatement:\n%s", msg)
	}

	msg = buildUserMessage(promptInput{Source: "s", Text: "t", Type: qa.TypeQA, RestateCount: true})
	if strings.Contains(msg, "exactly") {
		t.Errorf("no count to restate when any count is accepted:\n%s", msg)
	}
	if !strings.Contains(msg, "Generate several") {
		t.Errorf("expected open count wording:\n%s", msg)
	}
}

func TestPurposeFor(t *testing.T) {
	if purposeFor(qa.TypeQA) != "qa-gen" || purposeFor(qa.TypeMCQ) != "mcq-gen" {
		t.Error("unexpected purpose tags")
	}
}
