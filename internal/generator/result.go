package generator

import (
	"time"

	"github.com/abhisek/qagen/internal/qa"
)

// Result is the outcome of one Generate call.
type Result struct {
	RunID      string          `json:"run_id"`
	DocumentID string          `json:"document_id,omitempty"`
	Source     string          `json:"source"`
	Type       qa.QuestionType `json:"type"`
	Providers  []string        `json:"providers"`

	// Records holds every validated record, ordered by chunk index and
	// then by position within the chunk's response.
	Records []qa.Record `json:"records"`

	// Chunks has one report per chunk, indexed by chunk index.
	Chunks []ChunkReport `json:"chunks"`

	// FailedChunks lists the indices of chunks that ended in StateFailed,
	// in ascending order.
	FailedChunks []int `json:"failed_chunks"`

	// Cancelled is set when the context was cancelled during the run.
	Cancelled bool `json:"cancelled"`

	Duration time.Duration `json:"duration_ns"`
}

// RecordsFor returns the records produced by chunk index i.
func (r *Result) RecordsFor(i int) []qa.Record {
	if i < 0 || i >= len(r.Chunks) {
		return nil
	}
	return r.Chunks[i].Records
}

// DoneChunks counts chunks that produced records.
func (r *Result) DoneChunks() int {
	n := 0
	for i := range r.Chunks {
		if r.Chunks[i].Done() {
			n++
		}
	}
	return n
}

// CachedChunks counts chunks served from the result cache.
func (r *Result) CachedChunks() int {
	n := 0
	for i := range r.Chunks {
		if r.Chunks[i].Cached {
			n++
		}
	}
	return n
}

// Complete reports whether every chunk produced records.
func (r *Result) Complete() bool {
	return len(r.FailedChunks) == 0 && !r.Cancelled
}
