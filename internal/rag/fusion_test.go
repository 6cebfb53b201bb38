package rag

import (
	"math"
	"testing"
)

func TestFuseRRFMergesSources(t *testing.T) {
	bm25Results := []BM25Result{
		{CourseID: "COMP 250", Title: "Introduction to Computer Science", Department: "COMP", Score: 12.5, Rank: 1},
		{CourseID: "COMP 310", Title: "Operating Systems", Department: "COMP", Score: 8.1, Rank: 2},
	}
	vectorResults := []VectorResult{
		{CourseID: "COMP 250", Title: "Introduction to Computer Science", Department: "COMP", Similarity: 0.85},
		{CourseID: "MATH 240", Title: "Discrete Structures", Department: "MATH", Similarity: 0.70},
	}

	fused := FuseRRFWithDefaults(bm25Results, vectorResults, 10)

	if len(fused) != 3 {
		t.Fatalf("FuseRRF() returned %d results, want 3", len(fused))
	}

	// COMP 250 is rank 1 in both sources and must win.
	if fused[0].CourseID != "COMP 250" {
		t.Errorf("top result = %s, want COMP 250", fused[0].CourseID)
	}
	if fused[0].BM25Rank != 1 || fused[0].VectorRank != 1 {
		t.Errorf("COMP 250 ranks = (%d, %d), want (1, 1)", fused[0].BM25Rank, fused[0].VectorRank)
	}

	wantTop := DefaultBM25Weight/float64(RRFConstant+1) + DefaultVectorWeight/float64(RRFConstant+1)
	if math.Abs(fused[0].RRFScore-wantTop) > 1e-9 {
		t.Errorf("COMP 250 RRF score = %v, want %v", fused[0].RRFScore, wantTop)
	}

	for i := 1; i < len(fused); i++ {
		if fused[i-1].RRFScore < fused[i].RRFScore {
			t.Errorf("results not sorted by RRF score descending at %d", i)
		}
	}
}

func TestFuseRRFVectorOnlyAndBM25Only(t *testing.T) {
	vectorOnly := FuseRRFWithDefaults(nil, []VectorResult{
		{CourseID: "COMP 310", Similarity: 0.9},
	}, 10)
	if len(vectorOnly) != 1 {
		t.Fatalf("vector-only fusion returned %d results, want 1", len(vectorOnly))
	}
	if vectorOnly[0].BM25Rank != 0 || vectorOnly[0].VectorRank != 1 {
		t.Errorf("ranks = (%d, %d), want (0, 1)", vectorOnly[0].BM25Rank, vectorOnly[0].VectorRank)
	}

	bm25Only := FuseRRFWithDefaults([]BM25Result{
		{CourseID: "COMP 310", Score: 5.0, Rank: 1},
	}, nil, 10)
	if len(bm25Only) != 1 {
		t.Fatalf("bm25-only fusion returned %d results, want 1", len(bm25Only))
	}
	if bm25Only[0].VectorSim != 0 {
		t.Errorf("VectorSim = %v, want 0", bm25Only[0].VectorSim)
	}
}

func TestFuseRRFWeightClamping(t *testing.T) {
	bm25Results := []BM25Result{{CourseID: "COMP 250", Score: 5.0, Rank: 1}}
	vectorResults := []VectorResult{{CourseID: "MATH 240", Similarity: 0.8}}

	// Weight above 1 clamps to 1: vector contributes nothing.
	fused := FuseRRF(bm25Results, vectorResults, 1.5, 10)
	for _, f := range fused {
		if f.CourseID == "MATH 240" && f.RRFScore != 0 {
			t.Errorf("vector result RRF score = %v with bm25Weight=1, want 0", f.RRFScore)
		}
	}

	// Negative weight clamps to 0: BM25 contributes nothing.
	fused = FuseRRF(bm25Results, vectorResults, -0.5, 10)
	for _, f := range fused {
		if f.CourseID == "COMP 250" && f.RRFScore != 0 {
			t.Errorf("bm25 result RRF score = %v with bm25Weight=0, want 0", f.RRFScore)
		}
	}
}

func TestFuseRRFTopN(t *testing.T) {
	bm25Results := []BM25Result{
		{CourseID: "COMP 202", Score: 3.0, Rank: 1},
		{CourseID: "COMP 250", Score: 2.0, Rank: 2},
		{CourseID: "COMP 251", Score: 1.0, Rank: 3},
	}
	fused := FuseRRFWithDefaults(bm25Results, nil, 2)
	if len(fused) != 2 {
		t.Errorf("FuseRRF() with topN=2 returned %d results", len(fused))
	}

	if got := FuseRRFWithDefaults(nil, nil, 5); len(got) != 0 {
		t.Errorf("FuseRRF() with no input returned %d results", len(got))
	}
}

func TestFusedResultDistance(t *testing.T) {
	// Vector hits use true cosine distance.
	withVector := FusedResult{VectorSim: 0.85, BM25Rank: 1}
	if d := withVector.Distance(); math.Abs(float64(d)-0.15) > 1e-6 {
		t.Errorf("Distance() = %v, want 0.15", d)
	}

	// Pure-lexical hits fall back to a rank-derived distance that grows
	// with rank and stays inside (0, 1).
	rank1 := FusedResult{BM25Rank: 1}.Distance()
	rank10 := FusedResult{BM25Rank: 10}.Distance()
	if rank1 <= 0 || rank1 >= 1 {
		t.Errorf("rank-1 distance = %v, want in (0, 1)", rank1)
	}
	if rank10 <= rank1 {
		t.Errorf("rank-10 distance %v should exceed rank-1 distance %v", rank10, rank1)
	}

	// No rank information at all means no confidence.
	if d := (FusedResult{}).Distance(); d != 1 {
		t.Errorf("Distance() with no signals = %v, want 1", d)
	}
}
