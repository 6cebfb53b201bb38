package rag

import (
	"sort"
)

const (
	// RRFConstant is the constant used in RRF formula: 1 / (k + rank)
	// Standard value is 60, which provides a good balance between
	// giving weight to top-ranked documents while not ignoring lower-ranked ones
	RRFConstant = 60

	// DefaultBM25Weight is the default weight for BM25 results in RRF fusion
	// 0.4 means BM25 contributes 40% and vector search contributes 60%
	DefaultBM25Weight = 0.4

	// DefaultVectorWeight is the default weight for vector search results
	DefaultVectorWeight = 0.6
)

// FusedResult is a course produced by RRF fusion of BM25 and vector
// search rankings.
type FusedResult struct {
	CourseID   string
	Title      string
	Department string
	BM25Score  float64 // BM25 score (0 if not found in BM25)
	VectorSim  float32 // Vector similarity (0 if not found in vector)
	RRFScore   float64 // Combined RRF score
	BM25Rank   int     // Rank in BM25 results (0 if not found)
	VectorRank int     // Rank in vector results (0 if not found)
}

// Distance converts the fused ranking to an ascending-is-better scale.
// When the course appeared in vector search its true cosine distance is
// used; pure-lexical hits get a rank-derived distance since raw BM25
// scores are unbounded and query-dependent.
func (r FusedResult) Distance() float32 {
	if r.VectorSim > 0 {
		return 1 - r.VectorSim
	}
	return 1 - rankConfidence(r.BM25Rank)
}

// rankConfidence maps a 1-indexed rank to a (0, 1) confidence:
// rank 1 → 0.95, rank 5 → 0.80, rank 10 → 0.67.
func rankConfidence(rank int) float32 {
	if rank <= 0 {
		return 0
	}
	return float32(1.0 / (1.0 + 0.05*float64(rank)))
}

// FuseRRF combines BM25 and vector search results using Reciprocal Rank
// Fusion.
//
// RRF formula: score(d) = Σ (w_i / (k + rank_i))
// where k is RRFConstant (60), rank_i is the rank in each source,
// and w_i is the weight for each source.
//
// bm25Weight is clamped to [0, 1]; the vector weight is its complement.
// Results are sorted by RRF score descending and capped at topN.
func FuseRRF(bm25Results []BM25Result, vectorResults []VectorResult, bm25Weight float64, topN int) []FusedResult {
	if bm25Weight < 0 {
		bm25Weight = 0
	}
	if bm25Weight > 1 {
		bm25Weight = 1
	}
	vectorWeight := 1.0 - bm25Weight

	resultMap := make(map[string]*FusedResult)

	for i, r := range bm25Results {
		rank := i + 1 // 1-indexed rank
		score := bm25Weight / float64(RRFConstant+rank)

		if existing, ok := resultMap[r.CourseID]; ok {
			existing.BM25Score = r.Score
			existing.BM25Rank = rank
			existing.RRFScore += score
		} else {
			resultMap[r.CourseID] = &FusedResult{
				CourseID:   r.CourseID,
				Title:      r.Title,
				Department: r.Department,
				BM25Score:  r.Score,
				BM25Rank:   rank,
				RRFScore:   score,
			}
		}
	}

	for i, r := range vectorResults {
		rank := i + 1
		score := vectorWeight / float64(RRFConstant+rank)

		if existing, ok := resultMap[r.CourseID]; ok {
			existing.VectorSim = r.Similarity
			existing.VectorRank = rank
			existing.RRFScore += score
			if existing.Title == "" {
				existing.Title = r.Title
			}
			if existing.Department == "" {
				existing.Department = r.Department
			}
		} else {
			resultMap[r.CourseID] = &FusedResult{
				CourseID:   r.CourseID,
				Title:      r.Title,
				Department: r.Department,
				VectorSim:  r.Similarity,
				VectorRank: rank,
				RRFScore:   score,
			}
		}
	}

	results := make([]FusedResult, 0, len(resultMap))
	for _, r := range resultMap {
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].RRFScore > results[j].RRFScore
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}

	return results
}

// FuseRRFWithDefaults uses default weights for BM25 (0.4) and Vector (0.6)
func FuseRRFWithDefaults(bm25Results []BM25Result, vectorResults []VectorResult, topN int) []FusedResult {
	return FuseRRF(bm25Results, vectorResults, DefaultBM25Weight, topN)
}
