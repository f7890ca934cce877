package index

import (
	"math"
	"sort"

	"github.com/scranton-labs/auditdex/internal/domain"
)

// normalize returns a unit-length copy of v. Dot product over
// normalized vectors equals cosine similarity.
func normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(float64(f) * inv)
	}
	return out
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// topK scores every chunk against the query vector and returns the k
// best, ties broken by original chunk order. Corpora here are small
// enough that a flat scan beats maintaining an ANN structure.
func topK(snap *Snapshot, query []float32, k int) []domain.ScoredChunk {
	if k <= 0 || len(snap.Chunks) == 0 {
		return nil
	}

	scored := make([]domain.ScoredChunk, len(snap.Chunks))
	for i, c := range snap.Chunks {
		scored[i] = domain.ScoredChunk{Chunk: c, Score: dot(query, snap.Vectors[i])}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
