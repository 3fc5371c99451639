package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // LLM events only
	RunID   string
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	RunID        string
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEventRecord is a stored LLM request event.
type LLMRequestEventRecord struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsageStats aggregates token usage for one purpose.
type LLMUsageStats struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
	Failures     int
}

// LLMModelUsage aggregates token usage for one model.
type LLMModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEventRecord, error)

	// GetLLMEvent returns the event with the given ID, or nil if none.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEventRecord, error)

	// LLMUsageByPurpose aggregates usage per purpose.
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsageStats, error)

	// LLMUsageByModel aggregates usage per model.
	LLMUsageByModel(ctx context.Context) ([]LLMModelUsage, error)
}

// GenerationRunData summarizes one document generation run. Generated
// questions themselves are not stored.
type GenerationRunData struct {
	RunID        string
	DocumentID   string
	Source       string
	QuestionType string
	Providers    []string
	ChunkCount   int
	RecordCount  int
	CachedChunks int
	FailedChunks []int
	Cancelled    bool
	DurationMs   int64
}

// GenerationRunRecord is a stored generation run.
type GenerationRunRecord struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	GenerationRunData
}

// RunRepo provides append and query access to generation runs.
type RunRepo interface {
	// AppendGenerationRun records a finished run.
	AppendGenerationRun(ctx context.Context, data GenerationRunData) error

	// QueryGenerationRuns returns runs newest first.
	QueryGenerationRuns(ctx context.Context, opts QueryOpts) ([]GenerationRunRecord, error)

	// GetGenerationRun returns the run with the given run ID, or nil if none.
	GetGenerationRun(ctx context.Context, runID string) (*GenerationRunRecord, error)
}
