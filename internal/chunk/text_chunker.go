// Package chunk partitions source text into bounded, trimmed pieces
// ready for embedding: a deterministic sliding-window text chunker, and
// a symbol-aware code chunker that falls back to it wherever AST
// extraction isn't available or doesn't apply.
package chunk

import (
	"strconv"
	"strings"

	"github.com/hieutran512/ragkit/internal/models"
)

const (
	DefaultChunkSize    = 1200
	DefaultChunkOverlap = 200
	DefaultMinChunkSize = 200
)

// TextChunker produces overlapping, size-bounded chunks from plain
// text with no symbol awareness. It is deterministic and O(n).
type TextChunker struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewTextChunker builds a TextChunker with the given size policy,
// falling back to the package defaults for a non-positive chunkSize or
// a negative chunkOverlap (an overlap of 0 is kept).
func NewTextChunker(chunkSize, chunkOverlap int) *TextChunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	return &TextChunker{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}
}

// Chunk splits source into chunks of at most ChunkSize runes, each
// chunk overlapping the previous by ChunkOverlap. Returns nil for
// empty/whitespace-only input.
func (c *TextChunker) Chunk(source string) []string {
	normalized := normalizeNewlines(source)
	trimmed := strings.TrimSpace(normalized)
	if trimmed == "" {
		return nil
	}

	runes := []rune(normalized)
	var chunks []string

	start := 0
	for start < len(runes) {
		end := start + c.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			chunks = append(chunks, piece)
		}
		if end >= len(runes) {
			break
		}
		next := end - c.ChunkOverlap
		if next < start+1 {
			next = start + 1
		}
		start = next
	}

	return chunks
}

// ChunkToModels runs Chunk and wraps each piece into an unembedded
// models.Chunk with a "{relPath}::{ordinal}" id.
func (c *TextChunker) ChunkToModels(relPath string, modifiedAt int64, source string) []models.Chunk {
	pieces := c.Chunk(source)
	out := make([]models.Chunk, 0, len(pieces))
	for i, p := range pieces {
		out = append(out, models.Chunk{
			ID:         chunkID(relPath, i),
			FilePath:   relPath,
			ModifiedAt: modifiedAt,
			Content:    p,
		})
	}
	return out
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func chunkID(relPath string, ordinal int) string {
	return relPath + "::" + strconv.Itoa(ordinal)
}
