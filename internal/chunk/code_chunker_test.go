package chunk

import (
	"errors"
	"testing"

	"github.com/hieutran512/ragkit/internal/models"
)

type fakeExtractor struct {
	symbols []models.Symbol
	err     error
}

func (f fakeExtractor) ExtractSymbols(source string, profile Profile) ([]models.Symbol, error) {
	return f.symbols, f.err
}

func symbolAt(name string, start, end int) models.Symbol {
	return models.Symbol{
		Name: name,
		Kind: models.SymbolFunction,
		ContentRange: models.Range{
			Start: models.Position{Offset: start},
			End:   models.Position{Offset: end},
		},
	}
}

func TestCodeChunkerFallsBackWithoutAST(t *testing.T) {
	text := NewTextChunker(1200, 200)
	cc := NewCodeChunker(text, fakeExtractor{})
	chunks := cc.Chunk("plain text content with no symbols at all", Profile{Name: "markdown", HasAST: false})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 fallback chunk, got %d", len(chunks))
	}
	if len(chunks[0].symbols) != 0 {
		t.Fatalf("expected no symbols in fallback chunk")
	}
}

func TestCodeChunkerFallsBackOnExtractorError(t *testing.T) {
	text := NewTextChunker(1200, 200)
	cc := NewCodeChunker(text, fakeExtractor{err: errors.New("boom")})
	chunks := cc.Chunk("func Foo() {}\nfunc Bar() {}", Profile{Name: "go", HasAST: true})
	if len(chunks) == 0 {
		t.Fatal("expected fallback chunks on extractor error")
	}
}

func TestCodeChunkerSpansAndGaps(t *testing.T) {
	source := "package x\n\nfunc Foo() {\n  return\n}\n\nfunc Bar() {\n  return\n}\n"
	fooStart := len("package x\n\n")
	fooEnd := fooStart + len("func Foo() {\n  return\n}")
	barStart := fooEnd + len("\n\n")
	barEnd := barStart + len("func Bar() {\n  return\n}")

	symbols := []models.Symbol{
		symbolAt("Foo", fooStart, fooEnd),
		symbolAt("Bar", barStart, barEnd),
	}

	text := NewTextChunker(1200, 200)
	cc := NewCodeChunker(text, fakeExtractor{symbols: symbols})
	chunks := cc.Chunk(source, Profile{Name: "go", HasAST: true})

	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}

	var sawFoo, sawBar bool
	for _, c := range chunks {
		for _, s := range c.symbols {
			if s.Name == "Foo" {
				sawFoo = true
			}
			if s.Name == "Bar" {
				sawBar = true
			}
		}
	}
	if !sawFoo || !sawBar {
		t.Fatalf("expected both symbols to appear across chunks, sawFoo=%v sawBar=%v", sawFoo, sawBar)
	}
}

func TestSanitizeSpansRejectsBackwardAndOutOfRange(t *testing.T) {
	symbols := []models.Symbol{
		symbolAt("bad-backward", 10, 5),
		symbolAt("bad-zero", 5, 5),
		symbolAt("ok", 0, 3),
	}
	spans := sanitizeSpans(symbols, 100)
	if len(spans) != 1 || spans[0].Name != "ok" {
		t.Fatalf("expected only the valid span to survive, got %+v", spans)
	}
}

func TestMergeSmallChunksForwardAndBackward(t *testing.T) {
	chunks := []pendingChunk{
		{content: "a very long chunk that exceeds the minimum size threshold by a wide margin indeed"},
		{content: "tiny"},
		{content: "another very long chunk that also exceeds the minimum size threshold comfortably"},
		{content: "x"},
	}
	merged := mergeSmallChunks(chunks, 20)
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged chunks, got %d: %+v", len(merged), merged)
	}
}
