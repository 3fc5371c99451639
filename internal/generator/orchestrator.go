// Package generator turns documents into validated question banks.
//
// An Orchestrator splits each document into chunks, sends every chunk to an
// LLM provider, parses and validates the response, and retries or falls back
// to the next provider when a step fails. Chunks are processed concurrently
// but results are always reported in chunk order.
package generator

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/abhisek/qagen/internal/cache"
	"github.com/abhisek/qagen/internal/chunker"
	"github.com/abhisek/qagen/internal/llm"
	"github.com/abhisek/qagen/internal/qa"
	"github.com/abhisek/qagen/internal/store"
)

// Orchestrator drives chunk generation across a set of named providers.
// It is safe for concurrent use.
type Orchestrator struct {
	providers map[string]llm.Provider
	order     []string

	cache    cache.Cache
	cacheTTL time.Duration
	runs     store.RunRepo
	logger   zerolog.Logger

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Defaults to the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithCache stores validated chunk results in c and serves repeated chunks
// from it. A zero ttl uses the cache default.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(o *Orchestrator) {
		o.cache = c
		o.cacheTTL = ttl
	}
}

// WithRunRepo records a summary of every finished run.
func WithRunRepo(r store.RunRepo) Option {
	return func(o *Orchestrator) { o.runs = r }
}

// WithDefaultPriority sets the provider order used when a Config does not
// name one. Without it providers are tried in name order.
func WithDefaultPriority(names ...string) Option {
	return func(o *Orchestrator) { o.order = slices.Clone(names) }
}

// New creates an Orchestrator over providers, keyed by the names used in
// Config.ProviderPriority.
func New(providers map[string]llm.Provider, opts ...Option) (*Orchestrator, error) {
	if len(providers) == 0 {
		return nil, qa.ConfigErrorf("providers", "at least one provider is required")
	}
	o := &Orchestrator{
		providers: make(map[string]llm.Provider, len(providers)),
		logger:    log.Logger,
		now:       time.Now,
		sleep:     sleep,
	}
	for name, p := range providers {
		if p == nil {
			return nil, qa.ConfigErrorf("providers", "provider %q is nil", name)
		}
		o.providers[name] = p
	}
	for _, opt := range opts {
		opt(o)
	}
	if len(o.order) == 0 {
		for name := range o.providers {
			o.order = append(o.order, name)
		}
		sort.Strings(o.order)
	}
	if _, err := o.chain(o.order); err != nil {
		return nil, err
	}
	return o, nil
}

// chain resolves the provider order for a run.
func (o *Orchestrator) chain(priority []string) ([]string, error) {
	if len(priority) == 0 {
		return o.order, nil
	}
	seen := make(map[string]bool, len(priority))
	for _, name := range priority {
		if _, ok := o.providers[name]; !ok {
			return nil, qa.ConfigErrorf("provider_priority", "unknown provider %q", name)
		}
		if seen[name] {
			return nil, qa.ConfigErrorf("provider_priority", "provider %q listed twice", name)
		}
		seen[name] = true
	}
	return priority, nil
}

// Generate produces a question bank for doc.
//
// Only configuration problems are returned as errors. Chunk failures are
// reported in the Result. When ctx is cancelled, no new chunks are
// dispatched, chunks that have not finished are reported as failed with
// ReasonCancelled, and the partial Result is returned.
func (o *Orchestrator) Generate(ctx context.Context, doc qa.Document, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	chain, err := o.chain(cfg.ProviderPriority)
	if err != nil {
		return nil, err
	}
	chunks, err := chunker.Split(doc, cfg.chunking())
	if err != nil {
		return nil, err
	}

	start := o.now()
	runID := uuid.NewString()
	source := cfg.Source
	if source == "" {
		source = doc.Source()
	}

	g := &run{
		o:      o,
		cfg:    cfg,
		chain:  chain,
		source: source,
		log: o.logger.With().
			Str("run_id", runID).
			Str("doc", doc.ID).
			Str("type", string(cfg.QuestionType)).
			Logger(),
	}
	g.log.Info().
		Strs("providers", chain).
		Int("max_chunk_size", cfg.MaxChunkSize).
		Int("questions_per_chunk", cfg.QuestionCount).
		Msg("generation started")

	ctx = llm.WithRunID(llm.WithPurpose(ctx, purposeFor(cfg.QuestionType)), runID)

	var (
		mu      sync.Mutex
		reports = make(map[int]ChunkReport)
		wg      sync.WaitGroup
		total   int
	)
	put := func(rep ChunkReport) {
		mu.Lock()
		reports[rep.Index] = rep
		mu.Unlock()
	}

	sem := semaphore.NewWeighted(int64(cfg.ConcurrencyLimit))
	for c := range chunks {
		total++
		if ctx.Err() != nil {
			put(g.cancelled(c.Index))
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			put(g.cancelled(c.Index))
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			put(g.chunk(ctx, c))
		}()
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		// In-flight chunks are abandoned; they observe ctx and exit on their own.
	}

	mu.Lock()
	res := &Result{
		RunID:      runID,
		DocumentID: doc.ID,
		Source:     source,
		Type:       cfg.QuestionType,
		Providers:  slices.Clone(chain),
		Chunks:     make([]ChunkReport, total),
	}
	for i := range total {
		rep, ok := reports[i]
		if !ok {
			rep = g.cancelled(i)
		}
		res.Chunks[i] = rep
	}
	mu.Unlock()

	for _, rep := range res.Chunks {
		if rep.Done() {
			res.Records = append(res.Records, rep.Records...)
		} else {
			res.FailedChunks = append(res.FailedChunks, rep.Index)
		}
	}
	res.Cancelled = ctx.Err() != nil
	res.Duration = o.now().Sub(start)

	g.log.Info().
		Int("chunks", total).
		Int("records", len(res.Records)).
		Ints("failed_chunks", res.FailedChunks).
		Bool("cancelled", res.Cancelled).
		Dur("duration", res.Duration).
		Msg("generation finished")

	o.recordRun(ctx, res)
	return res, nil
}

// GenerateBatch runs Generate for each document in order. It stops at the
// first configuration error and returns the results produced so far.
func (o *Orchestrator) GenerateBatch(ctx context.Context, docs []qa.Document, cfg Config) ([]*Result, error) {
	results := make([]*Result, 0, len(docs))
	for _, doc := range docs {
		res, err := o.Generate(ctx, doc, cfg)
		if err != nil {
			return results, fmt.Errorf("document %q: %w", doc.ID, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (o *Orchestrator) recordRun(ctx context.Context, res *Result) {
	if o.runs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err := o.runs.AppendGenerationRun(ctx, store.GenerationRunData{
		RunID:        res.RunID,
		DocumentID:   res.DocumentID,
		Source:       res.Source,
		QuestionType: string(res.Type),
		Providers:    res.Providers,
		ChunkCount:   len(res.Chunks),
		RecordCount:  len(res.Records),
		CachedChunks: res.CachedChunks(),
		FailedChunks: res.FailedChunks,
		Cancelled:    res.Cancelled,
		DurationMs:   res.Duration.Milliseconds(),
	})
	if err != nil {
		o.logger.Warn().Err(err).Str("run_id", res.RunID).Msg("failed to record generation run")
	}
}
