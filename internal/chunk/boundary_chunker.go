package chunk

import "strings"

// boundaryTokenBudget is the per-chunk token budget the boundary-aware
// fallback targets, roughly DefaultChunkSize characters at the ~4
// chars/token density typical of source code.
const boundaryTokenBudget = 300

// boundaryLookahead is how many lines past the budget the chunker scans
// for a declaration boundary before giving up and cutting mid-block.
const boundaryLookahead = 10

// chunkByBoundaries splits source line-wise under a token budget,
// preferring to cut at declaration boundaries (per profile's patterns)
// so a function or class body isn't split mid-declaration. It is the
// middle fallback for code languages that have boundary patterns but no
// AST extractor. Returns nil when it produces nothing useful, in which
// case the caller falls back to plain text chunking.
func (c *CodeChunker) chunkByBoundaries(source string, profile Profile) []pendingChunk {
	if c.tokens == nil || len(profile.BoundaryRegex) == 0 {
		return nil
	}

	lines := strings.Split(source, "\n")

	var chunks []pendingChunk
	var current []string
	currentTokens := 0

	flush := func() {
		content := strings.TrimSpace(strings.Join(current, "\n"))
		current = current[:0]
		currentTokens = 0
		if content == "" {
			return
		}
		if len(content) > c.chunkSize {
			for _, piece := range c.text.Chunk(content) {
				chunks = append(chunks, pendingChunk{content: piece})
			}
			return
		}
		chunks = append(chunks, pendingChunk{content: content})
	}

	i := 0
	for i < len(lines) {
		line := lines[i]
		lineTokens := c.tokens.Count(line)

		if currentTokens+lineTokens > boundaryTokenBudget && len(current) > 0 {
			// Look ahead for a natural boundary so the cut lands between
			// declarations rather than inside one.
			cut := false
			for j := i; j < i+boundaryLookahead && j < len(lines); j++ {
				if profile.IsBoundary(lines[j]) {
					for k := i; k < j; k++ {
						current = append(current, lines[k])
					}
					i = j
					cut = true
					break
				}
			}
			flush()
			if cut {
				continue
			}
		}

		current = append(current, line)
		currentTokens += lineTokens
		i++
	}
	flush()

	return mergeSmallChunks(chunks, c.minChunkSize)
}
