// Package qaschema declares the expected shape of generated question banks
// and validates model output against it.
package qaschema

import (
	"github.com/abhisek/qagen/internal/llm"
	"github.com/abhisek/qagen/internal/qa"
)

// QASchema describes a bank of free-form question/answer pairs.
var QASchema = &llm.Schema{
	Name:        "qa-bank",
	Description: "A bank of question and answer pairs grounded in the provided context",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type":        "array",
				"minItems":    1,
				"description": "All generated question and answer pairs, in order",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        "string",
							"minLength":   1,
							"description": "The text of the question being asked",
						},
						"answer": map[string]any{
							"type":        "string",
							"minLength":   1,
							"description": "The correct answer to the question",
						},
						"explanation": map[string]any{
							"type":        "string",
							"description": "Optional short explanation of why the answer is correct",
						},
					},
					"required": []any{"question", "answer"},
				},
			},
		},
		"required": []any{"questions"},
	},
}

// MCQSchema describes a bank of multiple choice questions.
var MCQSchema = &llm.Schema{
	Name:        "mcq-bank",
	Description: "A bank of multiple choice questions grounded in the provided context",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type":        "array",
				"minItems":    1,
				"description": "All generated multiple choice questions, in order",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        "string",
							"minLength":   1,
							"description": "The text of the question being asked",
						},
						"choices": map[string]any{
							"type":        "array",
							"minItems":    2,
							"description": "Possible answer choices",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"letter": map[string]any{
										"type":        "string",
										"minLength":   1,
										"description": "Letter identifying the choice, e.g. A, B, C",
									},
									"text": map[string]any{
										"type":        "string",
										"minLength":   1,
										"description": "Text of the choice",
									},
								},
								"required": []any{"letter", "text"},
							},
						},
						"answer": map[string]any{
							"type":        "array",
							"minItems":    1,
							"description": "Letters of the correct choices, e.g. [\"A\", \"C\"]",
							"items": map[string]any{
								"type":      "string",
								"minLength": 1,
							},
						},
						"explanation": map[string]any{
							"type":        "string",
							"description": "Factual explanation of why the marked answers are correct",
						},
					},
					"required": []any{"question", "choices", "answer"},
				},
			},
		},
		"required": []any{"questions"},
	},
}

// For returns the schema used for question type t.
func For(t qa.QuestionType) *llm.Schema {
	if t == qa.TypeMCQ {
		return MCQSchema
	}
	return QASchema
}
