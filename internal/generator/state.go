package generator

import (
	"time"

	"github.com/abhisek/qagen/internal/qa"
)

// State is a position in a chunk's lifecycle.
type State string

const (
	StatePending          State = "PENDING"
	StateDispatched       State = "DISPATCHED"
	StateParsedOK         State = "PARSED_OK"
	StateValidated        State = "VALIDATED"
	StateDone             State = "DONE"
	StateDispatchFailed   State = "DISPATCH_FAILED"
	StateParseFailed      State = "PARSE_FAILED"
	StateValidationFailed State = "VALIDATION_FAILED"
	StateRetryPending     State = "RETRY_PENDING"
	StateFailed           State = "FAILED"
)

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// next lists the legal successors of each state.
var next = map[State][]State{
	StatePending:          {StateDispatched, StateDone, StateFailed},
	StateDispatched:       {StateParsedOK, StateDispatchFailed, StateParseFailed},
	StateParsedOK:         {StateValidated, StateValidationFailed},
	StateValidated:        {StateDone},
	StateDispatchFailed:   {StateRetryPending, StateFailed},
	StateParseFailed:      {StateRetryPending, StateFailed},
	StateValidationFailed: {StateRetryPending, StateFailed},
	StateRetryPending:     {StateDispatched, StateFailed},
}

// canMove reports whether from -> to is a legal transition. Any
// non-terminal state may fail outright on cancellation.
func canMove(from, to State) bool {
	if to == StateFailed && !from.Terminal() {
		return true
	}
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}

// FailureReason explains why a chunk ended in StateFailed.
type FailureReason string

const (
	// ReasonExhausted means the retry budget ran out on the last provider.
	ReasonExhausted FailureReason = "retries_exhausted"

	// ReasonPermanent means every remaining provider returned a permanent error.
	ReasonPermanent FailureReason = "permanent_error"

	// ReasonCountMismatch means no provider returned the requested number
	// of questions.
	ReasonCountMismatch FailureReason = "count_mismatch"

	// ReasonCancelled means the run was cancelled before the chunk finished.
	ReasonCancelled FailureReason = "cancelled"
)

// Transition is one entry of a chunk's state history.
type Transition struct {
	State    State     `json:"state"`
	Provider string    `json:"provider,omitempty"`
	Attempt  int       `json:"attempt,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	At       time.Time `json:"at"`
}

// ChunkReport is the final outcome of one chunk.
type ChunkReport struct {
	Index int   `json:"index"`
	State State `json:"state"`

	// Provider produced the records, or was the last one tried.
	Provider string `json:"provider,omitempty"`

	// Attempts counts provider calls across all providers.
	Attempts int `json:"attempts"`

	// Cached is set when the records came from the result cache.
	Cached bool `json:"cached,omitempty"`

	// ParseMethod is the parser step that produced the accepted candidate.
	ParseMethod string `json:"parse_method,omitempty"`

	Reason    FailureReason `json:"reason,omitempty"`
	LastError string        `json:"last_error,omitempty"`

	Records []qa.Record  `json:"-"`
	History []Transition `json:"history"`
}

// Done reports whether the chunk produced records.
func (r *ChunkReport) Done() bool {
	return r.State == StateDone
}
