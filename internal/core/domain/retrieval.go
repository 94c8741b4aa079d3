package domain

// Engine identifies the retrieval backend a candidate came from.
type Engine string

const (
	EngineStructured Engine = "structured"
	EngineSemantic   Engine = "semantic"
	EngineKeyword    Engine = "keyword"
)

// Route is the classifier's decision of which engines a query goes to.
type Route string

const (
	RouteStructured Route = "structured"
	RouteSemantic   Route = "semantic"
	RouteHybrid     Route = "hybrid"
)

// RouteDecision is produced once per query and consumed by the orchestrator
// fan-out. BlendWeight is the structured engine's share of a hybrid blend.
type RouteDecision struct {
	Route       Route    `json:"route"`
	BlendWeight float64  `json:"blend_weight"`
	Entities    []string `json:"entities,omitempty"`
	Period      Period   `json:"period"`
	Explanation string   `json:"explanation"`
}

// Attribution ties a result back to its source document and pages, plus the
// engines that produced it.
type Attribution struct {
	SourceDocument string    `json:"source_document"`
	Pages          PageRange `json:"pages"`
	Engines        []Engine  `json:"engines"`
}

// Candidate is the unit produced by a search engine, still on the engine's
// native score scale. Ephemeral: built per query, discarded after the
// response is returned.
type Candidate struct {
	ID          string      `json:"id"`
	Engine      Engine      `json:"-"`
	Text        string      `json:"text,omitempty"`
	Value       string      `json:"value,omitempty"`
	Entity      string      `json:"entity,omitempty"`
	Period      string      `json:"period,omitempty"`
	Unit        string      `json:"unit,omitempty"`
	RawScore    float64     `json:"-"`
	Attribution Attribution `json:"attribution"`
}

// RankedResult is a candidate after normalization and merging, with its
// score on the shared [0,1] scale.
type RankedResult struct {
	Candidate
	NormalizedScore float64 `json:"score"`
}

// Answer is the caller-facing response for one query.
type Answer struct {
	Query       string         `json:"query"`
	Route       Route          `json:"route"`
	Partial     bool           `json:"partial,omitempty"`
	Explanation string         `json:"explanation,omitempty"`
	Results     []RankedResult `json:"results"`
}
