package usecase

import (
	"sort"
	"strings"

	"github.com/finqlabs/finretriever/internal/core/domain"
)

// Normalizer maps one engine's raw score batch onto [0,1]. Implementations
// must be monotonic (preserve the engine's internal ranking) and
// deterministic for a fixed batch. Adding a retrieval source means
// registering a normalizer, not touching the combination logic.
type Normalizer func(raw []float64) []float64

// Merger reconciles incomparable score scales from heterogeneous engines
// into one ranked, deduplicated result list.
type Merger struct {
	normalizers map[domain.Engine]Normalizer
	topK        int
}

func NewMerger(topK int) *Merger {
	if topK <= 0 {
		topK = 8
	}
	return &Merger{
		normalizers: map[domain.Engine]Normalizer{
			domain.EngineStructured: clampNormalizer,
			domain.EngineSemantic:   cosineNormalizer,
			domain.EngineKeyword:    minMaxNormalizer,
		},
		topK: topK,
	}
}

// RegisterNormalizer installs or replaces the normalizer for an engine.
func (m *Merger) RegisterNormalizer(engine domain.Engine, fn Normalizer) {
	if fn != nil {
		m.normalizers[engine] = fn
	}
}

// Merge normalizes per engine, blends by route weight, deduplicates across
// sources, and ranks deterministically. Truncation to top-K happens strictly
// after the merge so a locally-strong result cannot crowd out a better
// cross-engine match.
func (m *Merger) Merge(decision domain.RouteDecision, candidates []domain.Candidate) []domain.RankedResult {
	normalized := m.normalize(candidates)
	m.blend(decision, normalized)
	merged := dedupeAcrossEngines(normalized)

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].NormalizedScore != merged[j].NormalizedScore {
			return merged[i].NormalizedScore > merged[j].NormalizedScore
		}
		// Structured matches carry exact-value attribution; prefer them
		// when scores tie.
		si, sj := hasEngine(merged[i], domain.EngineStructured), hasEngine(merged[j], domain.EngineStructured)
		if si != sj {
			return si
		}
		if merged[i].Attribution.Pages.Start != merged[j].Attribution.Pages.Start {
			return merged[i].Attribution.Pages.Start < merged[j].Attribution.Pages.Start
		}
		return merged[i].ID < merged[j].ID
	})

	if len(merged) > m.topK {
		merged = merged[:m.topK]
	}
	return merged
}

func (m *Merger) normalize(candidates []domain.Candidate) []domain.RankedResult {
	byEngine := make(map[domain.Engine][]int, 3)
	for i, c := range candidates {
		byEngine[c.Engine] = append(byEngine[c.Engine], i)
	}

	out := make([]domain.RankedResult, len(candidates))
	for i, c := range candidates {
		out[i] = domain.RankedResult{Candidate: c}
	}

	for engine, idxs := range byEngine {
		fn, ok := m.normalizers[engine]
		if !ok {
			fn = clampNormalizer
		}
		raw := make([]float64, len(idxs))
		for j, i := range idxs {
			raw[j] = candidates[i].RawScore
		}
		norm := fn(raw)
		for j, i := range idxs {
			out[i].NormalizedScore = norm[j]
		}
	}
	return out
}

// blend applies the classifier's blend weight on the hybrid route. On a
// single route the normalized scores pass through unchanged.
func (m *Merger) blend(decision domain.RouteDecision, results []domain.RankedResult) {
	if decision.Route != domain.RouteHybrid {
		return
	}
	weight := decision.BlendWeight
	if weight <= 0 || weight >= 1 {
		weight = 0.5
	}
	for i := range results {
		if results[i].Engine == domain.EngineStructured {
			results[i].NormalizedScore *= weight
		} else {
			results[i].NormalizedScore *= 1 - weight
		}
	}
}

// dedupeAcrossEngines merges candidates resolving to the same
// (source document, pages) into one result whose score is the maximum of
// the contributions. Never summed: summation would double-count agreement
// and bias toward redundant hits.
func dedupeAcrossEngines(results []domain.RankedResult) []domain.RankedResult {
	byKey := make(map[string]int, len(results))
	out := make([]domain.RankedResult, 0, len(results))

	for _, r := range results {
		key := r.Attribution.SourceDocument + "|" + r.Attribution.Pages.String()
		i, ok := byKey[key]
		if !ok {
			r.Attribution.Engines = []domain.Engine{r.Engine}
			byKey[key] = len(out)
			out = append(out, r)
			continue
		}

		kept := &out[i]
		kept.Attribution.Engines = appendEngine(kept.Attribution.Engines, r.Engine)
		if r.NormalizedScore > kept.NormalizedScore ||
			(r.NormalizedScore == kept.NormalizedScore && r.ID < kept.ID) {
			engines := kept.Attribution.Engines
			kept.Candidate = r.Candidate
			kept.NormalizedScore = r.NormalizedScore
			kept.Attribution.Engines = engines
		}
	}

	for i := range out {
		sortEngines(out[i].Attribution.Engines)
	}
	return out
}

func hasEngine(r domain.RankedResult, engine domain.Engine) bool {
	for _, e := range r.Attribution.Engines {
		if e == engine {
			return true
		}
	}
	return false
}

func appendEngine(engines []domain.Engine, engine domain.Engine) []domain.Engine {
	for _, e := range engines {
		if e == engine {
			return engines
		}
	}
	return append(engines, engine)
}

var engineOrder = map[domain.Engine]int{
	domain.EngineStructured: 0,
	domain.EngineSemantic:   1,
	domain.EngineKeyword:    2,
}

func sortEngines(engines []domain.Engine) {
	sort.Slice(engines, func(i, j int) bool {
		oi, oki := engineOrder[engines[i]]
		oj, okj := engineOrder[engines[j]]
		if oki && okj {
			return oi < oj
		}
		return strings.Compare(string(engines[i]), string(engines[j])) < 0
	})
}

// clampNormalizer pins scores already meant to be in [0,1].
func clampNormalizer(raw []float64) []float64 {
	out := make([]float64, len(raw))
	for i, v := range raw {
		switch {
		case v < 0:
			out[i] = 0
		case v > 1:
			out[i] = 1
		default:
			out[i] = v
		}
	}
	return out
}

// cosineNormalizer remaps cosine similarity from its known [-1,1] range with
// a fixed affine map. Batch-independent, so the same raw score always lands
// on the same normalized score.
func cosineNormalizer(raw []float64) []float64 {
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = (v + 1) / 2
		if out[i] < 0 {
			out[i] = 0
		}
		if out[i] > 1 {
			out[i] = 1
		}
	}
	return out
}

// minMaxNormalizer handles unbounded keyword relevance scores by min-max
// scaling within the current batch. A constant batch maps to 1.0 for every
// member; relative order inside the batch is always preserved.
func minMaxNormalizer(raw []float64) []float64 {
	out := make([]float64, len(raw))
	if len(raw) == 0 {
		return out
	}

	lo, hi := raw[0], raw[0]
	for _, v := range raw[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	if hi == lo {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	for i, v := range raw {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}
