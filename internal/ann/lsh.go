// Package ann implements the in-process approximate-nearest-neighbor
// index used for candidate retrieval ahead of the exact cosine rerank:
// sign-projection locality-sensitive hashing over fixed, deterministic
// random projections.
package ann

import (
	"strings"

	"github.com/hieutran512/ragkit/internal/vector"
)

const (
	// DefaultProjectionDim is the number of projection rows, and
	// therefore the length of each signature in bits.
	DefaultProjectionDim = 16
	// DefaultMaxHammingDistance bounds the bit-flip radius enumerated
	// when looking up candidate buckets.
	DefaultMaxHammingDistance = 3
	// DefaultFallbackMinCandidates is the minimum candidate-set size
	// below which the caller should brute-force instead.
	DefaultFallbackMinCandidates = 32
	// DefaultMaxRerankCandidates caps how many candidate ids a query
	// accumulates before it stops enumerating further signatures.
	DefaultMaxRerankCandidates = 1200
)

// Params configures index construction and queries.
type Params struct {
	ProjectionDim         int
	MaxHammingDistance    int
	FallbackMinCandidates int
	MaxRerankCandidates   int
}

// DefaultParams returns the default parameter set.
func DefaultParams() Params {
	return Params{
		ProjectionDim:         DefaultProjectionDim,
		MaxHammingDistance:    DefaultMaxHammingDistance,
		FallbackMinCandidates: DefaultFallbackMinCandidates,
		MaxRerankCandidates:   DefaultMaxRerankCandidates,
	}
}

// Embedded is the minimal view of an indexed item the LSH index needs:
// an identifier and its embedding vector.
type Embedded interface {
	EmbeddingID() string
	EmbeddingVector() []float32
}

// Index is a sign-projection LSH structure built over a fixed set of
// embeddings. It references items by id only; candidate materialization
// is the caller's job, which tolerates items vanishing between build and
// query time.
type Index struct {
	dimensions int
	params     Params
	projection [][]float64
	buckets    map[string][]string
}

// Build constructs an Index from items, all of whose embeddings must
// share the same dimensionality (the first item's). Items with a
// differently-sized embedding are skipped. Returns nil if items is empty
// or the first embedding is empty.
func Build(items []Embedded, params Params) *Index {
	if len(items) == 0 {
		return nil
	}
	dims := len(items[0].EmbeddingVector())
	if dims == 0 {
		return nil
	}

	idx := &Index{
		dimensions: dims,
		params:     params,
		projection: buildProjection(dims, params.ProjectionDim),
		buckets:    make(map[string][]string),
	}

	for _, item := range items {
		v := item.EmbeddingVector()
		if len(v) != dims {
			continue
		}
		sig := idx.signature(v)
		idx.buckets[sig] = append(idx.buckets[sig], item.EmbeddingID())
	}

	return idx
}

// Dimensions reports the embedding length this index was built for.
func (idx *Index) Dimensions() int { return idx.dimensions }

// buildProjection seeds a Mulberry32 PRNG deterministically from
// (dimensions, projectionDim) so identical inputs reproduce an
// identical matrix across platforms and runs, with no need to persist
// it alongside the index.
func buildProjection(dimensions, projectionDim int) [][]float64 {
	seed := uint32(dimensions)*73856093 + uint32(projectionDim)*19349663
	rng := vector.NewMulberry32(seed)

	rows := make([][]float64, projectionDim)
	for i := range rows {
		row := make([]float64, dimensions)
		for j := range row {
			row[j] = rng.Signed()
		}
		rows[i] = row
	}
	return rows
}

// signature computes the projectionDim-bit sign signature of v: bit i
// is '1' iff the dot product of v with projection row i is >= 0.
func (idx *Index) signature(v []float32) string {
	var b strings.Builder
	b.Grow(len(idx.projection))
	for _, row := range idx.projection {
		var dot float64
		for j, p := range row {
			dot += p * float64(v[j])
		}
		if dot >= 0 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Query returns candidate item ids within the configured Hamming radius
// of queryEmbedding's signature, or nil if the dimensionality doesn't
// match or too few candidates were found (caller should brute-force).
func (idx *Index) Query(queryEmbedding []float32) []string {
	if len(queryEmbedding) != idx.dimensions {
		return nil
	}

	sig := idx.signature(queryEmbedding)
	seen := make(map[string]struct{})
	var candidates []string

	add := func(s string) bool {
		ids, ok := idx.buckets[s]
		if !ok {
			return false
		}
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			candidates = append(candidates, id)
		}
		return len(candidates) >= idx.params.MaxRerankCandidates
	}

	if add(sig) {
		return idx.finishQuery(candidates)
	}

	if idx.params.MaxHammingDistance >= 1 {
		if idx.enumerateFlips(sig, 1, add) {
			return idx.finishQuery(candidates)
		}
	}
	if idx.params.MaxHammingDistance >= 2 {
		if idx.enumerateFlips(sig, 2, add) {
			return idx.finishQuery(candidates)
		}
	}

	return idx.finishQuery(candidates)
}

func (idx *Index) finishQuery(candidates []string) []string {
	if len(candidates) < idx.params.FallbackMinCandidates {
		return nil
	}
	if len(candidates) > idx.params.MaxRerankCandidates {
		candidates = candidates[:idx.params.MaxRerankCandidates]
	}
	return candidates
}

// enumerateFlips enumerates all signatures at exactly flips bit
// positions away from sig, calling add for each and stopping early if
// add reports the candidate set is full.
func (idx *Index) enumerateFlips(sig string, flips int, add func(string) bool) bool {
	n := len(sig)
	switch flips {
	case 1:
		for i := 0; i < n; i++ {
			if add(flipBit(sig, i)) {
				return true
			}
		}
	case 2:
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if add(flipBit(flipBit(sig, i), j)) {
					return true
				}
			}
		}
	}
	return false
}

func flipBit(sig string, pos int) string {
	b := []byte(sig)
	if b[pos] == '1' {
		b[pos] = '0'
	} else {
		b[pos] = '1'
	}
	return string(b)
}
