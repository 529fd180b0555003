package folder

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hieutran512/ragkit/internal/ann"
	"github.com/hieutran512/ragkit/pkg/ignore"
)

// DefaultTopK is the number of matches search returns when the caller
// doesn't override it.
const DefaultTopK = 6

// QueryResultCacheTopK bounds how many reranked candidates are kept in
// the result cache per query, independent of any single caller's topK.
const QueryResultCacheTopK = 24

// SearchOptions configures one Search call. OutputFolder must match the
// override the folder was indexed with, if any, or the search will not
// find its persisted state.
type SearchOptions struct {
	TopK         int
	OutputFolder string
}

// Match is one ranked chunk returned to a caller.
type Match struct {
	FilePath string  `json:"filePath"`
	Score    float64 `json:"score"`
	Content  string  `json:"content"`
}

// SearchResult is the full response of Search.
type SearchResult struct {
	Matches     []Match `json:"matches"`
	DurationMs  int64   `json:"durationMs"`
	TotalChunks int     `json:"totalChunks"`
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func normalizeQueryKey(query string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(query)), " ")
}

// Search embeds query, retrieves candidates through the folder's ANN
// index (falling back to a brute-force scan over every chunk when the
// index is absent or returns too few candidates), reranks by cosine
// similarity, and returns the top TopK matches.
func (m *Manager) Search(ctx context.Context, folderPath, query string, opts SearchOptions) (SearchResult, error) {
	start := time.Now()
	c, err := m.EnsureLoaded(folderPath, opts.OutputFolder)
	if err != nil {
		return SearchResult{}, err
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	c.mu.Lock()
	enabled := c.config.Enabled
	totalChunks := len(c.chunks)
	c.mu.Unlock()

	queryKey := normalizeQueryKey(query)
	if !enabled || totalChunks == 0 || queryKey == "" {
		return SearchResult{DurationMs: time.Since(start).Milliseconds(), TotalChunks: totalChunks}, nil
	}

	if cached, ok := m.lookupResultCache(c, queryKey, topK); ok {
		return SearchResult{
			Matches:     materializeMatches(c, cached, topK),
			DurationMs:  time.Since(start).Milliseconds(),
			TotalChunks: totalChunks,
		}, nil
	}

	queryEmbedding, err := m.resolveQueryEmbedding(ctx, c, queryKey, query)
	if err != nil {
		return SearchResult{}, err
	}

	ranked := m.rankCandidates(c, queryEmbedding, topK)

	c.mu.Lock()
	c.queryResultCache.Set(queryKey, resultCacheEntry{Revision: c.indexRevision, Ranked: ranked})
	c.mu.Unlock()

	return SearchResult{
		Matches:     materializeMatches(c, ranked, topK),
		DurationMs:  time.Since(start).Milliseconds(),
		TotalChunks: totalChunks,
	}, nil
}

func (m *Manager) lookupResultCache(c *Cache, queryKey string, topK int) ([]ann.Scored, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.queryResultCache.Get(queryKey)
	if !ok {
		return nil, false
	}
	if entry.Revision != c.indexRevision || len(entry.Ranked) < topK {
		return nil, false
	}
	return entry.Ranked, true
}

func (m *Manager) resolveQueryEmbedding(ctx context.Context, c *Cache, queryKey, rawQuery string) ([]float32, error) {
	c.mu.Lock()
	if v, ok := c.queryEmbeddingCache.Get(queryKey); ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	vectors, err := m.provider.Embed(ctx, []string{strings.TrimSpace(rawQuery)})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	v := vectors[0]

	c.mu.Lock()
	c.queryEmbeddingCache.Set(queryKey, v)
	c.mu.Unlock()

	return v, nil
}

func (m *Manager) rankCandidates(c *Cache, queryEmbedding []float32, topK int) []ann.Scored {
	cacheTopK := topK
	if QueryResultCacheTopK > cacheTopK {
		cacheTopK = QueryResultCacheTopK
	}

	c.mu.Lock()
	annIndex := c.annIndex
	var candidateIDs []string
	if annIndex != nil {
		candidateIDs = annIndex.Query(queryEmbedding)
	}

	var pool map[string][]float32
	if candidateIDs != nil {
		pool = make(map[string][]float32, len(candidateIDs))
		for _, id := range candidateIDs {
			if ch, ok := c.chunks[id]; ok {
				pool[id] = ch.Embedding
			}
		}
	} else {
		pool = make(map[string][]float32, len(c.chunks))
		for id, ch := range c.chunks {
			pool[id] = ch.Embedding
		}
	}
	c.mu.Unlock()

	return ann.Rank(pool, queryEmbedding, cacheTopK)
}

func materializeMatches(c *Cache, ranked []ann.Scored, topK int) []Match {
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Match, 0, len(ranked))
	for _, r := range ranked {
		ch, ok := c.chunks[r.ID]
		if !ok {
			continue
		}
		out = append(out, Match{
			FilePath: ch.FilePath,
			Score:    roundScore(r.Score),
			Content:  ch.Content,
		})
	}
	stableSortByScoreThenPath(out)
	return out
}

// stableSortByScoreThenPath preserves the cosine-score ordering but
// breaks ties between equally-scored matches (common once scores are
// rounded to 3 decimals) using the file-path noise/signal heuristic,
// so a hit in internal/ or pkg/ displays ahead of an equally-scored
// hit in vendor/ or a test fixture. It never reorders across distinct
// scores, so it cannot change which matches clear the cutoff.
func stableSortByScoreThenPath(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return false
		}
		return ignore.PathScore(matches[i].FilePath) > ignore.PathScore(matches[j].FilePath)
	})
}

func roundScore(score float64) float64 {
	return math.Round(score*1000) / 1000
}

// GetContext runs Search and formats its matches into a prompt block a
// caller can splice directly into an LLM request: a fixed header line,
// an instruction line, then each match as a "### {filePath}" section.
func (m *Manager) GetContext(ctx context.Context, folderPath, query string, opts SearchOptions) (string, error) {
	result, err := m.Search(ctx, folderPath, query, opts)
	if err != nil {
		return "", err
	}
	if len(result.Matches) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("## RAG Context (project files)\n")
	b.WriteString("Use the following snippets as additional project context when relevant:\n\n")
	for _, match := range result.Matches {
		b.WriteString("### ")
		b.WriteString(match.FilePath)
		b.WriteString("\n")
		b.WriteString(match.Content)
		b.WriteString("\n")
	}
	return b.String(), nil
}
