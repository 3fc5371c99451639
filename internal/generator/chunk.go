package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/qagen/internal/chunker"
	"github.com/abhisek/qagen/internal/llm"
	"github.com/abhisek/qagen/internal/parser"
	"github.com/abhisek/qagen/internal/qa"
	"github.com/abhisek/qagen/internal/qaschema"
)

// run holds the per-Generate state shared by all chunk workers.
type run struct {
	o      *Orchestrator
	cfg    Config
	chain  []string
	source string
	log    zerolog.Logger
}

type failKind int

const (
	failTransient failKind = iota
	failUnknown
	failPermanent
	failParse
	failField
	failCountMismatch
	failCancelled
)

func (k failKind) String() string {
	switch k {
	case failTransient:
		return "transient"
	case failUnknown:
		return "unknown"
	case failPermanent:
		return "permanent"
	case failParse:
		return "parse"
	case failField:
		return "field"
	case failCountMismatch:
		return "count_mismatch"
	case failCancelled:
		return "cancelled"
	}
	return "invalid"
}

// failure is the outcome of one unsuccessful attempt.
type failure struct {
	kind  failKind
	state State
	err   error
}

// tracker records the state history of one chunk.
type tracker struct {
	rep ChunkReport
	now func() time.Time
	log zerolog.Logger
}

func (t *tracker) move(to State, provider string, attempt int, detail string) {
	if len(t.rep.History) > 0 && !canMove(t.rep.State, to) {
		t.log.Error().Str("from", string(t.rep.State)).Str("to", string(to)).Msg("illegal chunk transition")
	}
	t.rep.State = to
	t.rep.History = append(t.rep.History, Transition{
		State:    to,
		Provider: provider,
		Attempt:  attempt,
		Detail:   detail,
		At:       t.now(),
	})
	t.log.Debug().Str("state", string(to)).Str("provider", provider).Int("attempt", attempt).Msg(detail)
}

func (t *tracker) fail(reason FailureReason, err error) ChunkReport {
	t.rep.Reason = reason
	if err != nil {
		t.rep.LastError = err.Error()
	}
	t.move(StateFailed, t.rep.Provider, 0, string(reason))
	t.log.Warn().
		Str("reason", string(reason)).
		Int("attempts", t.rep.Attempts).
		Str("last_error", t.rep.LastError).
		Msg("chunk failed")
	return t.rep
}

// cancelled reports a chunk that was never dispatched, or whose worker
// did not finish before cancellation.
func (g *run) cancelled(index int) ChunkReport {
	t := g.tracker(index)
	t.move(StatePending, "", 0, "")
	t.rep.Reason = ReasonCancelled
	t.rep.LastError = context.Canceled.Error()
	t.move(StateFailed, "", 0, string(ReasonCancelled))
	return t.rep
}

func (g *run) tracker(index int) *tracker {
	return &tracker{
		rep: ChunkReport{Index: index},
		now: g.o.now,
		log: g.log.With().Int("chunk", index).Logger(),
	}
}

// chunk drives one chunk from PENDING to DONE or FAILED.
func (g *run) chunk(ctx context.Context, c chunker.Chunk) ChunkReport {
	t := g.tracker(c.Index)
	t.move(StatePending, "", 0, "")

	if recs, ok := g.cached(ctx, c); ok {
		t.rep.Cached = true
		t.rep.Records = recs
		t.move(StateDone, "", 0, "cache hit")
		return t.rep
	}

	var last failure
	for i, name := range g.chain {
		f, ok := g.tryProvider(ctx, t, c, name)
		if ok {
			g.store(ctx, c, t.rep.Records)
			return t.rep
		}
		last = f
		if f.kind == failCancelled {
			return t.fail(ReasonCancelled, f.err)
		}
		if i == len(g.chain)-1 || !g.fallsBack(f) {
			break
		}
		t.move(StateRetryPending, name, 0, "falling back to "+g.chain[i+1])
		t.log.Warn().
			Str("from", name).
			Str("to", g.chain[i+1]).
			Str("error_kind", f.kind.String()).
			Msg("provider fallback")
	}
	return t.fail(reasonFor(last), last.err)
}

// tryProvider runs attempts against one provider until one succeeds, the
// retry budget for the failure kind is spent, or ctx is cancelled.
func (g *run) tryProvider(ctx context.Context, t *tracker, c chunker.Chunk, name string) (failure, bool) {
	p := g.o.providers[name]
	retries := 0
	restate := false

	for {
		if err := ctx.Err(); err != nil {
			return failure{kind: failCancelled, err: err}, false
		}
		attempt := retries + 1
		t.rep.Attempts++
		t.rep.Provider = name
		t.move(StateDispatched, name, attempt, "")

		recs, method, f := g.attempt(ctx, p, c, restate)
		if method != "" {
			t.move(StateParsedOK, name, attempt, string(method))
		}
		if f == nil {
			t.rep.ParseMethod = string(method)
			t.rep.Records = recs
			t.rep.LastError = ""
			t.move(StateValidated, name, attempt, fmt.Sprintf("%d records", len(recs)))
			t.move(StateDone, name, attempt, "")
			return failure{}, true
		}

		t.rep.LastError = f.err.Error()
		t.move(f.state, name, attempt, f.err.Error())
		if f.kind == failCancelled {
			return *f, false
		}

		budget := g.retryBudget(f.kind)
		if retries >= budget {
			return *f, false
		}
		retries++
		if f.kind == failCountMismatch {
			restate = true
		}

		wait := g.cfg.Backoff.delay(retries-1, f.err)
		t.move(StateRetryPending, name, attempt, fmt.Sprintf("retry %d/%d in %s", retries, budget, wait))
		t.log.Warn().
			Str("provider", name).
			Str("error_kind", f.kind.String()).
			Err(f.err).
			Dur("wait", wait).
			Msg("retrying chunk")

		if err := g.o.sleep(ctx, wait); err != nil {
			return failure{kind: failCancelled, err: err}, false
		}
	}
}

// attempt makes one provider call and runs the parse and validate steps.
// method is set whenever parsing succeeded.
func (g *run) attempt(ctx context.Context, p llm.Provider, c chunker.Chunk, restate bool) ([]qa.Record, parser.Method, *failure) {
	actx, cancel := context.WithTimeout(ctx, g.cfg.AttemptTimeout)
	defer cancel()

	req := llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{{
			Role: llm.RoleUser,
			Content: buildUserMessage(promptInput{
				Source:       g.source,
				Text:         c.Text,
				Type:         g.cfg.QuestionType,
				Count:        g.cfg.QuestionCount,
				RestateCount: restate,
			}),
		}},
		Schema:      qaschema.For(g.cfg.QuestionType),
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	}

	resp, err := p.Generate(actx, req)
	if err != nil {
		return nil, "", classifyDispatch(ctx, err)
	}
	if resp.StopReason == llm.StopMaxTokens {
		err := fmt.Errorf("response cut off at the %d token limit", g.cfg.MaxTokens)
		return nil, "", &failure{kind: failParse, state: StateParseFailed, err: err}
	}

	cand, err := parser.Parse(resp.Text)
	if err != nil {
		return nil, "", &failure{kind: failParse, state: StateParseFailed, err: err}
	}

	recs, err := qaschema.Validate(cand.Value, qaschema.Expect{
		Type:       g.cfg.QuestionType,
		Count:      g.cfg.QuestionCount,
		ChunkIndex: c.Index,
	})
	if err != nil {
		kind := failField
		var se *qaschema.SchemaError
		if errors.As(err, &se) && se.Reason == qaschema.ReasonCountMismatch {
			kind = failCountMismatch
		}
		return nil, cand.Method, &failure{kind: kind, state: StateValidationFailed, err: err}
	}
	return recs, cand.Method, nil
}

// classifyDispatch sorts a provider error into a failure kind. parent is
// the run context, used to tell cancellation apart from the attempt timeout.
func classifyDispatch(parent context.Context, err error) *failure {
	f := &failure{state: StateDispatchFailed, err: err}

	var (
		tr *llm.ErrTransient
		pe *llm.ErrPermanent
		ue *llm.ErrUnknown
	)
	switch {
	case parent.Err() != nil:
		f.kind = failCancelled
		f.err = parent.Err()
	case errors.As(err, &tr):
		f.kind = failTransient
	case errors.As(err, &pe):
		f.kind = failPermanent
	case errors.As(err, &ue):
		f.kind = failUnknown
	case errors.Is(err, context.DeadlineExceeded):
		f.kind = failTransient
		f.err = &llm.ErrTransient{Reason: llm.ReasonTimeout, Err: err}
	default:
		f.kind = failUnknown
	}
	return f
}

// retryBudget is how many same-provider retries a failure kind allows.
func (g *run) retryBudget(k failKind) int {
	switch k {
	case failTransient, failParse, failField:
		return g.cfg.MaxRetries
	case failUnknown:
		return g.cfg.UnknownRetries
	case failCountMismatch:
		if g.cfg.CountMismatchPolicy == CountMismatchRetry {
			return g.cfg.MaxRetries
		}
	}
	return 0
}

// fallsBack reports whether a chunk that ended on f moves to the next provider.
func (g *run) fallsBack(f failure) bool {
	switch f.kind {
	case failPermanent:
		return true
	case failCountMismatch:
		return g.cfg.CountMismatchPolicy == CountMismatchFallback || g.cfg.FallbackOnExhaustion
	case failCancelled:
		return false
	}
	return g.cfg.FallbackOnExhaustion
}

func reasonFor(f failure) FailureReason {
	switch f.kind {
	case failPermanent:
		return ReasonPermanent
	case failCountMismatch:
		return ReasonCountMismatch
	case failCancelled:
		return ReasonCancelled
	}
	return ReasonExhausted
}
