package chunker

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/abhisek/qagen/internal/qa"
)

func TestSplit_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero max size", Config{MaxSize: 0}},
		{"negative max size", Config{MaxSize: -5}},
		{"negative overlap", Config{MaxSize: 10, Overlap: -1}},
		{"overlap equals max", Config{MaxSize: 10, Overlap: 10}},
		{"overlap exceeds max", Config{MaxSize: 10, Overlap: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split(qa.Document{Text: "hello"}, tt.cfg)
			var cfgErr *qa.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
		})
	}
}

func TestSplit_EmptyDocument(t *testing.T) {
	chunks, err := All(qa.Document{}, Config{MaxSize: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}

func TestSplit_TwoParagraphs(t *testing.T) {
	p1 := "The first paragraph is about rivers.\n\n"
	p2 := "The other paragraph is about plains.\n\n"
	if utf8.RuneCountInString(p1) != utf8.RuneCountInString(p2) {
		t.Fatalf("test paragraphs must have equal length")
	}

	chunks, err := All(qa.Document{Text: p1 + p2}, Config{MaxSize: utf8.RuneCountInString(p1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %#v", len(chunks), chunks)
	}
	if chunks[0].Text != p1 {
		t.Errorf("chunk 0 = %q, want %q", chunks[0].Text, p1)
	}
	if chunks[1].Text != p2 {
		t.Errorf("chunk 1 = %q, want %q", chunks[1].Text, p2)
	}
}

func TestSplit_PrefersSentenceOverWord(t *testing.T) {
	text := "One short sentence. Another one follows here and keeps going"
	chunks, err := All(qa.Document{Text: text}, Config{MaxSize: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunks[0].Text != "One short sentence. " {
		t.Fatalf("expected cut after the sentence, got %q", chunks[0].Text)
	}
}

func TestSplit_ShortParagraphDoesNotEndChunk(t *testing.T) {
	text := "Title\n\nFirst sentence is here. Second sentence follows it. Third one ends."
	chunks, err := All(qa.Document{Text: text}, Config{MaxSize: 40})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "Title\n\nFirst sentence is here. "; chunks[0].Text != want {
		t.Fatalf("chunk 0 = %q, want %q", chunks[0].Text, want)
	}
	if got := Join(chunks); got != text {
		t.Fatalf("Join = %q, want %q", got, text)
	}
}

func TestSplit_ParagraphBeatsSentenceWhenFull(t *testing.T) {
	text := "A long first paragraph. It has two sentences.\n\nNext paragraph here."
	chunks, err := All(qa.Document{Text: text}, Config{MaxSize: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "A long first paragraph. It has two sentences.\n\n"; chunks[0].Text != want {
		t.Fatalf("chunk 0 = %q, want %q", chunks[0].Text, want)
	}
}

func TestSplit_HardCutLongWord(t *testing.T) {
	text := strings.Repeat("x", 25)
	chunks, err := All(qa.Document{Text: text}, Config{MaxSize: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if c.Len() > 10 {
			t.Errorf("chunk %d has length %d", c.Index, c.Len())
		}
	}
}

func TestSplit_Overlap(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta eta theta iota kappa"
	chunks, err := All(qa.Document{Text: text}, Config{MaxSize: 20, Overlap: 6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks[1:] {
		prev := chunks[i]
		if c.Overlap != 6 {
			t.Errorf("chunk %d overlap = %d, want 6", c.Index, c.Overlap)
		}
		if c.Start != prev.End-c.Overlap {
			t.Errorf("chunk %d starts at %d, previous ends at %d", c.Index, c.Start, prev.End)
		}
	}
	if got := Join(chunks); got != text {
		t.Fatalf("Join = %q, want %q", got, text)
	}
}

func TestSplit_Restartable(t *testing.T) {
	doc := qa.Document{Text: "Some text. More text here.\n\nA second paragraph with words."}
	seq, err := Split(doc, Config{MaxSize: 12, Overlap: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var first, second []Chunk
	for c := range seq {
		first = append(first, c)
	}
	for c := range seq {
		second = append(second, c)
	}
	if len(first) != len(second) {
		t.Fatalf("iterations differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chunk %d differs between iterations", i)
		}
	}
}

func TestSplit_EarlyStop(t *testing.T) {
	seq, err := Split(qa.Document{Text: strings.Repeat("word ", 100)}, Config{MaxSize: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n := 0
	for range seq {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("expected to stop after 2 chunks, got %d", n)
	}
}

func TestSplit_ReconstructsAndBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	words := []string{"the", "Nile", "river", "shaped", "Égypte", "pyramids.", "tombs", "kingdom!", "why?", "\n\n", "\n", "  ", "a"}

	for trial := 0; trial < 200; trial++ {
		var b strings.Builder
		for w := rng.IntN(80); w > 0; w-- {
			b.WriteString(words[rng.IntN(len(words))])
			if rng.IntN(3) > 0 {
				b.WriteString(" ")
			}
		}
		text := b.String()
		maxSize := 1 + rng.IntN(40)
		overlap := rng.IntN(maxSize)

		chunks, err := All(qa.Document{Text: text}, Config{MaxSize: maxSize, Overlap: overlap})
		if err != nil {
			t.Fatalf("trial %d: unexpected error: %v", trial, err)
		}
		for i, c := range chunks {
			if c.Index != i {
				t.Fatalf("trial %d: chunk index %d at position %d", trial, c.Index, i)
			}
			if utf8.RuneCountInString(c.Text) > maxSize {
				t.Fatalf("trial %d: chunk %d has %d runes, max %d", trial, i, utf8.RuneCountInString(c.Text), maxSize)
			}
		}
		if got := Join(chunks); got != text {
			t.Fatalf("trial %d (max=%d overlap=%d): reconstruction mismatch\n got: %q\nwant: %q", trial, maxSize, overlap, got, text)
		}
	}
}
