package ann

import (
	"sort"

	"github.com/hieutran512/ragkit/internal/vector"
)

// Scored pairs an identifier with its cosine score against a query.
type Scored struct {
	ID    string
	Score float64
}

// Rank scores each candidate's embedding against queryEmbedding by
// cosine similarity, drops non-positive scores, sorts descending, and
// returns at most topK entries.
func Rank(candidates map[string][]float32, queryEmbedding []float32, topK int) []Scored {
	scored := make([]Scored, 0, len(candidates))
	for id, emb := range candidates {
		score := vector.Cosine(emb, queryEmbedding)
		if score <= 0 {
			continue
		}
		scored = append(scored, Scored{ID: id, Score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK >= 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
