// Package chunker splits documents into bounded, ordered text segments that
// fit a model's context window.
package chunker

import (
	"iter"
	"slices"
	"strings"
	"unicode"

	"github.com/abhisek/qagen/internal/qa"
)

// Chunk is a contiguous slice of a document.
type Chunk struct {
	// Index is the zero-based sequence position of the chunk.
	Index int

	// Text is the chunk content, including the overlap with the previous chunk.
	Text string

	// Start and End are rune offsets into the document text. End is exclusive.
	Start int
	End   int

	// Overlap is the number of leading runes this chunk shares with the
	// previous one. Always 0 for the first chunk.
	Overlap int
}

// Len returns the chunk size in runes.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// Fresh returns the part of the chunk that is not shared with the previous chunk.
func (c Chunk) Fresh() string {
	r := []rune(c.Text)
	return string(r[c.Overlap:])
}

// Config bounds the chunk size.
type Config struct {
	// MaxSize is the maximum chunk length in runes. Must be > 0.
	MaxSize int

	// Overlap is the number of runes each chunk repeats from the end of the
	// previous one. Must be in [0, MaxSize).
	Overlap int
}

// Validate checks the size bounds.
func (c Config) Validate() error {
	if c.MaxSize <= 0 {
		return qa.ConfigErrorf("max_chunk_size", "must be > 0, got %d", c.MaxSize)
	}
	if c.Overlap < 0 || c.Overlap >= c.MaxSize {
		return qa.ConfigErrorf("overlap", "must be in [0, %d), got %d", c.MaxSize, c.Overlap)
	}
	return nil
}

// Split returns the chunks of doc as a lazy sequence. The sequence is
// recomputed on every iteration and always yields the same chunks for the
// same document and config.
//
// Cuts prefer paragraph breaks, then sentence ends, then whitespace. A hard
// cut at MaxSize happens only when no boundary fits in the window.
func Split(doc qa.Document, cfg Config) (iter.Seq[Chunk], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	text := doc.Text

	return func(yield func(Chunk) bool) {
		runes := []rune(text)
		n := len(runes)
		pos := 0
		for i := 0; pos < n; i++ {
			start := max(pos-cfg.Overlap, 0)
			limit := min(start+cfg.MaxSize, n)
			end := limit
			if limit < n {
				end = cut(runes, pos, limit)
			}
			c := Chunk{
				Index:   i,
				Text:    string(runes[start:end]),
				Start:   start,
				End:     end,
				Overlap: pos - start,
			}
			if !yield(c) {
				return
			}
			pos = end
		}
	}, nil
}

// All collects the chunks of doc into a slice.
func All(doc qa.Document, cfg Config) ([]Chunk, error) {
	seq, err := Split(doc, cfg)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}

// Join rebuilds the original text from an ordered chunk list by dropping
// each chunk's overlap.
func Join(chunks []Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Fresh())
	}
	return b.String()
}

type boundary int

const (
	boundaryNone boundary = iota - 1
	boundaryParagraph
	boundarySentence
	boundaryWord
)

// cut picks the end of a chunk in (lo, hi]. It returns the right-most
// boundary of the strongest kind that keeps at least half of the window,
// then the strongest kind anywhere in the window, or hi when there is none.
func cut(r []rune, lo, hi int) int {
	half := lo + (hi-lo+1)/2
	found := [3]int{-1, -1, -1}
	for p := hi; p > lo; p-- {
		k := boundaryAt(r, p)
		if k != boundaryNone && found[k] < 0 {
			found[k] = p
		}
	}
	for _, b := range found {
		if b >= half {
			return b
		}
	}
	for _, b := range found {
		if b > 0 {
			return b
		}
	}
	return hi
}

// boundaryAt classifies position p as a place to cut: the first rune after
// a whitespace run. The whitespace stays with the preceding chunk.
func boundaryAt(r []rune, p int) boundary {
	if p <= 0 || p >= len(r) {
		return boundaryNone
	}
	if unicode.IsSpace(r[p]) || !unicode.IsSpace(r[p-1]) {
		return boundaryNone
	}

	j := p - 1
	newlines := 0
	for j >= 0 && unicode.IsSpace(r[j]) {
		if r[j] == '\n' {
			newlines++
		}
		j--
	}
	if newlines >= 2 {
		return boundaryParagraph
	}

	for j >= 0 && strings.ContainsRune(closers, r[j]) {
		j--
	}
	if j >= 0 && strings.ContainsRune(sentenceEnds, r[j]) {
		return boundarySentence
	}
	return boundaryWord
}

const (
	sentenceEnds = ".!?。！？；"
	closers      = "\"')]”’»"
)
