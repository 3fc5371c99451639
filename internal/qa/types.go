package qa

// Document is the raw input handed to the generator by an external loader.
// It is never modified by the generation pipeline.
type Document struct {
	// ID identifies the document for the caller (file name, URL, row id).
	ID string

	// Title is an optional human-readable title. Used as the source label
	// in prompts when set.
	Title string

	// Text is the full document content.
	Text string
}

// Source returns the label the prompt uses to name this document.
// Falls back to the ID, then to "general knowledge".
func (d Document) Source() string {
	if d.Title != "" {
		return d.Title
	}
	if d.ID != "" {
		return d.ID
	}
	return "general knowledge"
}

// QuestionType selects the shape of the generated records.
type QuestionType string

const (
	// TypeQA is a free-form question with a short answer.
	TypeQA QuestionType = "qa"

	// TypeMCQ is a multiple choice question with lettered choices and
	// one or more correct letters.
	TypeMCQ QuestionType = "mcq"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	return t == TypeQA || t == TypeMCQ
}

// Choice is one lettered option of a multiple choice question.
type Choice struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// Record is one validated question/answer unit.
// Records are only built by the schema validator and are not modified
// afterwards.
type Record struct {
	// Question is the question text. Never empty.
	Question string `json:"question"`

	// Answer is the correct answer. For multiple choice questions this is
	// the text of the correct choice(s), joined with "; ". Never empty.
	Answer string `json:"answer"`

	// Explanation is an optional justification of the answer.
	Explanation string `json:"explanation,omitempty"`

	// Choices is populated only for TypeMCQ.
	Choices []Choice `json:"choices,omitempty"`

	// CorrectLetters lists the letters of the correct choices (TypeMCQ only).
	CorrectLetters []string `json:"correct_letters,omitempty"`

	// Distractors are the texts of the incorrect choices (TypeMCQ only).
	Distractors []string `json:"distractors,omitempty"`

	// ChunkIndex is the sequence index of the chunk the record came from.
	ChunkIndex int `json:"chunk_index"`

	// Type is the question type this record was generated as.
	Type QuestionType `json:"type"`
}
