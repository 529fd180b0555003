package chunk

import (
	"sort"
	"strings"

	"github.com/hieutran512/ragkit/internal/models"
)

// CodeChunker produces symbol-aware chunks: it asks a SymbolExtractor
// for the spans of named declarations, fills the gaps between and
// around them with plain text, and falls back to TextChunker whenever
// no AST profile applies, the extractor fails, or it returns nothing.
type CodeChunker struct {
	text         *TextChunker
	extractor    SymbolExtractor
	tokens       *TokenCounter
	chunkSize    int
	minChunkSize int
}

// NewCodeChunker builds a CodeChunker using extractor for AST-capable
// languages and text as its plain-text fallback. Languages with
// boundary patterns but no AST grammar get a token-budgeted line
// chunker between the two, when the token encoding is available.
func NewCodeChunker(text *TextChunker, extractor SymbolExtractor) *CodeChunker {
	chunkSize := DefaultChunkSize
	if text != nil {
		chunkSize = text.ChunkSize
	}
	tokens, err := NewTokenCounter()
	if err != nil {
		tokens = nil
	}
	return &CodeChunker{
		text:         text,
		extractor:    extractor,
		tokens:       tokens,
		chunkSize:    chunkSize,
		minChunkSize: DefaultMinChunkSize,
	}
}

type pendingChunk struct {
	content string
	symbols []models.Symbol
}

// Chunk partitions source using profile's AST symbols when available,
// falling back to TextChunker otherwise. Returns chunks in source
// order, each paired with the symbols whose spans were accumulated into
// it; when an oversized buffer is split by TextChunker, every piece
// carries all of that buffer's symbols.
func (c *CodeChunker) Chunk(source string, profile Profile) []pendingChunk {
	normalized := strings.ReplaceAll(source, "\r\n", "\n")
	if strings.TrimSpace(normalized) == "" {
		return nil
	}

	if !profile.HasAST || c.extractor == nil {
		if byBoundary := c.chunkByBoundaries(normalized, profile); len(byBoundary) > 0 {
			return byBoundary
		}
		return c.textFallback(normalized)
	}

	symbols, err := c.extractor.ExtractSymbols(normalized, profile)
	if err != nil || len(symbols) == 0 {
		return c.textFallback(normalized)
	}

	spans := sanitizeSpans(symbols, len(normalized))
	if len(spans) == 0 {
		return c.textFallback(normalized)
	}

	chunks := c.chunkBySpans(normalized, spans)
	if len(chunks) == 0 {
		return c.textFallback(normalized)
	}
	return mergeSmallChunks(chunks, c.minChunkSize)
}

func sanitizeSpans(symbols []models.Symbol, srcLen int) []models.Symbol {
	spans := make([]models.Symbol, 0, len(symbols))
	for _, s := range symbols {
		start, end := s.ContentRange.Start.Offset, s.ContentRange.End.Offset
		if start < 0 {
			start = 0
		}
		if end > srcLen {
			end = srcLen
		}
		if start >= end {
			continue
		}
		s.ContentRange.Start.Offset = start
		s.ContentRange.End.Offset = end
		spans = append(spans, s)
	}
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].ContentRange.Start.Offset != spans[j].ContentRange.Start.Offset {
			return spans[i].ContentRange.Start.Offset < spans[j].ContentRange.Start.Offset
		}
		return spans[i].ContentRange.End.Offset < spans[j].ContentRange.End.Offset
	})
	return spans
}

func (c *CodeChunker) chunkBySpans(source string, spans []models.Symbol) []pendingChunk {
	var chunks []pendingChunk
	var pendingContent strings.Builder
	var pendingSymbols []models.Symbol

	flush := func() {
		trimmed := strings.TrimSpace(pendingContent.String())
		if trimmed == "" {
			pendingContent.Reset()
			pendingSymbols = nil
			return
		}
		if len(trimmed) > c.chunkSize {
			for _, piece := range c.text.Chunk(trimmed) {
				chunks = append(chunks, pendingChunk{content: piece, symbols: pendingSymbols})
			}
		} else {
			chunks = append(chunks, pendingChunk{content: trimmed, symbols: pendingSymbols})
		}
		pendingContent.Reset()
		pendingSymbols = nil
	}

	appendWithOverflowCheck := func(text string) {
		if text == "" {
			return
		}
		if pendingContent.Len()+len(text)+1 > c.chunkSize && pendingContent.Len() > 0 {
			flush()
		}
		if pendingContent.Len() > 0 {
			pendingContent.WriteString("\n")
		}
		pendingContent.WriteString(text)
	}

	cursor := 0
	for _, span := range spans {
		start, end := span.ContentRange.Start.Offset, span.ContentRange.End.Offset

		if start > cursor {
			gap := strings.TrimSpace(source[cursor:start])
			appendWithOverflowCheck(gap)
		}

		appendWithOverflowCheck(source[start:end])
		pendingSymbols = append(pendingSymbols, span)

		if end > cursor {
			cursor = end
		}
	}
	flush()

	if cursor < len(source) {
		trailing := strings.TrimSpace(source[cursor:])
		for _, piece := range c.text.Chunk(trailing) {
			chunks = append(chunks, pendingChunk{content: piece})
		}
	}

	return chunks
}

func (c *CodeChunker) textFallback(source string) []pendingChunk {
	var out []pendingChunk
	for _, piece := range c.text.Chunk(source) {
		out = append(out, pendingChunk{content: piece})
	}
	return out
}

// mergeSmallChunks merges chunks shorter than minSize into their
// neighbor: forward first, then a trailing short remainder backward.
func mergeSmallChunks(chunks []pendingChunk, minSize int) []pendingChunk {
	if len(chunks) < 2 {
		return chunks
	}

	merged := make([]pendingChunk, 0, len(chunks))
	for _, cur := range chunks {
		if len(merged) > 0 && len(cur.content) < minSize {
			prev := merged[len(merged)-1]
			merged[len(merged)-1] = pendingChunk{
				content: prev.content + "\n" + cur.content,
				symbols: unionSymbols(prev.symbols, cur.symbols),
			}
			continue
		}
		merged = append(merged, cur)
	}

	if len(merged) >= 2 && len(merged[len(merged)-1].content) < minSize {
		last := merged[len(merged)-1]
		prev := merged[len(merged)-2]
		merged[len(merged)-2] = pendingChunk{
			content: prev.content + "\n" + last.content,
			symbols: unionSymbols(prev.symbols, last.symbols),
		}
		merged = merged[:len(merged)-1]
	}

	return merged
}

func unionSymbols(a, b []models.Symbol) []models.Symbol {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	return append(append([]models.Symbol{}, a...), b...)
}

// ChunkToModels runs Chunk and attaches ids/metadata, producing the
// final unembedded models.Chunk set for a file.
func (c *CodeChunker) ChunkToModels(relPath string, modifiedAt int64, source string, profile Profile) []models.Chunk {
	pieces := c.Chunk(source, profile)
	out := make([]models.Chunk, 0, len(pieces))
	for i, p := range pieces {
		out = append(out, models.Chunk{
			ID:         chunkID(relPath, i),
			FilePath:   relPath,
			ModifiedAt: modifiedAt,
			Content:    p.content,
			Symbols:    p.symbols,
		})
	}
	return out
}
