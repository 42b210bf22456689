package domain

import (
	"math"
	"sort"
)

// CosineSimilarity returns the cosine of the angle between a and b,
// or 0 when the lengths differ or either vector is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RankTopK scores every record against query and returns the k best,
// highest score first. Equal scores keep insertion order (lower Seq first).
func RankTopK(query []float32, records []Record, k int) []ScoredChunk {
	if k <= 0 || len(records) == 0 {
		return nil
	}

	type scored struct {
		rec   *Record
		score float64
	}
	all := make([]scored, len(records))
	for i := range records {
		all[i] = scored{rec: &records[i], score: CosineSimilarity(query, records[i].Vector)}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].rec.Seq < all[j].rec.Seq
	})

	if k > len(all) {
		k = len(all)
	}
	out := make([]ScoredChunk, k)
	for i := 0; i < k; i++ {
		out[i] = ScoredChunk{Chunk: all[i].rec.Chunk, Score: all[i].score}
	}
	return out
}
