package generator

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/abhisek/qagen/internal/cache"
	"github.com/abhisek/qagen/internal/chunker"
	"github.com/abhisek/qagen/internal/qa"
)

// cacheKey identifies a chunk result by the provider models that may
// produce it, the requested bank shape and the chunk text.
func (g *run) cacheKey(c chunker.Chunk) string {
	parts := make([]string, 0, len(g.chain)+3)
	for _, name := range g.chain {
		parts = append(parts, name+"/"+g.o.providers[name].ModelID())
	}
	parts = append(parts, string(g.cfg.QuestionType), strconv.Itoa(g.cfg.QuestionCount), c.Text)
	return cache.Key("chunk", parts...)
}

// cached returns the stored records for c. Cache errors count as a miss.
func (g *run) cached(ctx context.Context, c chunker.Chunk) ([]qa.Record, bool) {
	if g.o.cache == nil {
		return nil, false
	}
	key := g.cacheKey(c)
	raw, found, err := g.o.cache.Get(ctx, key)
	if err != nil {
		g.log.Warn().Err(err).Int("chunk", c.Index).Msg("cache lookup failed")
		return nil, false
	}
	if !found {
		return nil, false
	}
	var recs []qa.Record
	if err := json.Unmarshal([]byte(raw), &recs); err != nil || len(recs) == 0 {
		g.log.Warn().Err(err).Int("chunk", c.Index).Msg("discarding unreadable cache entry")
		if err := g.o.cache.Delete(context.WithoutCancel(ctx), key); err != nil {
			g.log.Warn().Err(err).Int("chunk", c.Index).Msg("cache delete failed")
		}
		return nil, false
	}
	// The same text may sit at a different position in another document.
	for i := range recs {
		recs[i].ChunkIndex = c.Index
	}
	return recs, true
}

func (g *run) store(ctx context.Context, c chunker.Chunk, recs []qa.Record) {
	if g.o.cache == nil {
		return
	}
	b, err := json.Marshal(recs)
	if err != nil {
		g.log.Warn().Err(err).Int("chunk", c.Index).Msg("cache encode failed")
		return
	}
	if err := g.o.cache.Set(context.WithoutCancel(ctx), g.cacheKey(c), string(b), g.o.cacheTTL); err != nil {
		g.log.Warn().Err(err).Int("chunk", c.Index).Msg("cache store failed")
	}
}
