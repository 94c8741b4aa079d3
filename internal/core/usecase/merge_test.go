package usecase

import (
	"math"
	"testing"

	"github.com/finqlabs/finretriever/internal/core/domain"
)

func structuredCandidate(id string, page int, score float64) domain.Candidate {
	return domain.Candidate{
		ID:       id,
		Engine:   domain.EngineStructured,
		Value:    "420",
		RawScore: score,
		Attribution: domain.Attribution{
			SourceDocument: "10q.pdf",
			Pages:          domain.SinglePage(page),
			Engines:        []domain.Engine{domain.EngineStructured},
		},
	}
}

func semanticCandidate(id string, page int, score float64) domain.Candidate {
	return domain.Candidate{
		ID:       id,
		Engine:   domain.EngineSemantic,
		Text:     "passage",
		RawScore: score,
		Attribution: domain.Attribution{
			SourceDocument: "10q.pdf",
			Pages:          domain.SinglePage(page),
			Engines:        []domain.Engine{domain.EngineSemantic},
		},
	}
}

func hybridDecision() domain.RouteDecision {
	return domain.RouteDecision{Route: domain.RouteHybrid, BlendWeight: 0.5}
}

func TestMergeOutputSortedNonIncreasing(t *testing.T) {
	m := NewMerger(10)
	results := m.Merge(hybridDecision(), []domain.Candidate{
		structuredCandidate("a", 1, 0.4),
		structuredCandidate("b", 2, 0.9),
		semanticCandidate("c", 3, 0.8),
		semanticCandidate("d", 4, -0.2),
	})

	for i := 1; i < len(results); i++ {
		if results[i].NormalizedScore > results[i-1].NormalizedScore {
			t.Fatalf("results not sorted at %d: %v > %v", i, results[i].NormalizedScore, results[i-1].NormalizedScore)
		}
	}
}

func TestMergeTieBreakPrefersStructuredThenPage(t *testing.T) {
	m := NewMerger(10)
	// Clamped structured score 0.8 ties the cosine-normalized semantic
	// score (raw 0.6 -> 0.8); a non-hybrid route keeps blending out of the
	// way so only the tie-break rules decide.
	results := m.Merge(domain.RouteDecision{Route: domain.RouteSemantic}, []domain.Candidate{
		semanticCandidate("sem-late", 9, 0.6),
		structuredCandidate("str", 5, 0.8),
		semanticCandidate("sem-early", 2, 0.6),
	})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].ID != "str" {
		t.Fatalf("expected structured candidate first on score tie, got %s", results[0].ID)
	}
	if results[1].ID != "sem-early" || results[2].ID != "sem-late" {
		t.Fatalf("expected page-order tie-break, got %s then %s", results[1].ID, results[2].ID)
	}
}

func TestMergeDeduplicationTakesMaxNeverSum(t *testing.T) {
	m := NewMerger(10)
	results := m.Merge(domain.RouteDecision{Route: domain.RouteSemantic}, []domain.Candidate{
		structuredCandidate("str", 4, 0.7),
		semanticCandidate("sem", 4, 0.4), // normalizes to 0.7; same doc+page
	})

	if len(results) != 1 {
		t.Fatalf("expected cross-source dedup to 1 result, got %d", len(results))
	}
	got := results[0]
	if math.Abs(got.NormalizedScore-0.7) > 1e-9 {
		t.Fatalf("merged score = %v, want max 0.7, never the sum", got.NormalizedScore)
	}
	if len(got.Attribution.Engines) != 2 {
		t.Fatalf("expected both engines recorded, got %v", got.Attribution.Engines)
	}
	if got.Attribution.Engines[0] != domain.EngineStructured {
		t.Fatalf("expected structured listed first, got %v", got.Attribution.Engines)
	}
}

func TestMergeBlendWeightAppliesOnHybridOnly(t *testing.T) {
	m := NewMerger(10)

	hybrid := m.Merge(domain.RouteDecision{Route: domain.RouteHybrid, BlendWeight: 0.8}, []domain.Candidate{
		structuredCandidate("str", 1, 1.0),
		semanticCandidate("sem", 2, 1.0),
	})
	if math.Abs(hybrid[0].NormalizedScore-0.8) > 1e-9 {
		t.Fatalf("structured hybrid score = %v, want 0.8", hybrid[0].NormalizedScore)
	}
	if math.Abs(hybrid[1].NormalizedScore-0.2) > 1e-9 {
		t.Fatalf("semantic hybrid score = %v, want 0.2", hybrid[1].NormalizedScore)
	}

	single := m.Merge(domain.RouteDecision{Route: domain.RouteStructured}, []domain.Candidate{
		structuredCandidate("str", 1, 0.9),
	})
	if math.Abs(single[0].NormalizedScore-0.9) > 1e-9 {
		t.Fatalf("single-route score = %v, want pass-through 0.9", single[0].NormalizedScore)
	}
}

func TestMergeTopKTruncatesAfterMerge(t *testing.T) {
	m := NewMerger(2)
	results := m.Merge(domain.RouteDecision{Route: domain.RouteSemantic}, []domain.Candidate{
		structuredCandidate("a", 1, 0.9),
		semanticCandidate("b", 1, 0.99), // same page as a: merges, not crowds
		structuredCandidate("c", 2, 0.5),
		structuredCandidate("d", 3, 0.4),
	})

	if len(results) != 2 {
		t.Fatalf("expected top-2, got %d", len(results))
	}
	// The page-1 pair merged first; truncation happened after, so page-2
	// still made the cut.
	if results[1].Attribution.Pages.Start != 2 {
		t.Fatalf("expected page-2 result to survive truncation, got %+v", results[1].Attribution)
	}
}

func TestMinMaxNormalizerMonotoneAndIdempotentOrder(t *testing.T) {
	raw := []float64{3.5, 12.0, 7.2, 12.0, 0.1}
	first := minMaxNormalizer(raw)
	second := minMaxNormalizer(first)

	for i := range raw {
		for j := range raw {
			if (raw[i] < raw[j]) != (first[i] < first[j]) {
				t.Fatalf("normalization broke order between %d and %d", i, j)
			}
			if (first[i] < first[j]) != (second[i] < second[j]) {
				t.Fatalf("re-normalization broke order between %d and %d", i, j)
			}
		}
	}
	for _, v := range first {
		if v < 0 || v > 1 {
			t.Fatalf("normalized value %v outside [0,1]", v)
		}
	}
}

func TestCosineNormalizerFixedAffineMap(t *testing.T) {
	got := cosineNormalizer([]float64{-1, 0, 1})
	want := []float64{0, 0.5, 1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("cosine normalize[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMergeConstantKeywordBatch(t *testing.T) {
	m := NewMerger(10)
	results := m.Merge(domain.RouteDecision{Route: domain.RouteSemantic}, []domain.Candidate{
		{ID: "k1", Engine: domain.EngineKeyword, RawScore: 4.2, Attribution: domain.Attribution{SourceDocument: "a.pdf", Pages: domain.SinglePage(1)}},
		{ID: "k2", Engine: domain.EngineKeyword, RawScore: 4.2, Attribution: domain.Attribution{SourceDocument: "b.pdf", Pages: domain.SinglePage(1)}},
	})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.NormalizedScore != 1 {
			t.Fatalf("constant batch must normalize to 1, got %v", r.NormalizedScore)
		}
	}
}
