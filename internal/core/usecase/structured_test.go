package usecase

import (
	"context"
	"testing"

	"github.com/finqlabs/finretriever/internal/core/domain"
	"github.com/finqlabs/finretriever/internal/core/fuzzy"
	"github.com/finqlabs/finretriever/internal/core/index"
)

func newTestProvider(entities []domain.TableEntity) *index.Provider {
	p := index.NewProvider()
	p.Swap(index.New(entities))
	return p
}

func q2Entities() []domain.TableEntity {
	return []domain.TableEntity{
		{EntityName: "Total Revenues", Period: domain.Period{Quarter: 2, Year: 2024}, Value: "420", Unit: "$", SourceDocument: "10q.pdf", Page: 4, ElementIndex: 7},
		{EntityName: "Total Revenues", Period: domain.Period{Quarter: 1, Year: 2024}, Value: "395", Unit: "$", SourceDocument: "10q.pdf", Page: 4, ElementIndex: 7},
		{EntityName: "Total Expenses", Period: domain.Period{Quarter: 2, Year: 2024}, Value: "310", Unit: "$", SourceDocument: "10q.pdf", Page: 5, ElementIndex: 9},
	}
}

func TestStructuredSearchSingleEntityPeriodFilter(t *testing.T) {
	s := NewStructuredSearch(fuzzy.NewMatcher(0), newTestProvider(q2Entities()))

	decision := domain.RouteDecision{
		Route:    domain.RouteStructured,
		Entities: []string{"total revenue"},
		Period:   domain.Period{Quarter: 2, Year: 2024},
	}

	candidates, err := s.Search(context.Background(), decision)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d: %+v", len(candidates), candidates)
	}

	got := candidates[0]
	if got.Value != "420" {
		t.Fatalf("value = %s, want 420", got.Value)
	}
	if got.Engine != domain.EngineStructured {
		t.Fatalf("engine = %s, want structured", got.Engine)
	}
	if got.Attribution.SourceDocument != "10q.pdf" || got.Attribution.Pages.Start != 4 {
		t.Fatalf("attribution = %+v, want 10q.pdf p.4", got.Attribution)
	}
	if got.RawScore <= 0 || got.RawScore > 1 {
		t.Fatalf("raw score = %v, want (0,1]", got.RawScore)
	}
}

func TestStructuredSearchMultiEntityUnionKeepsEntityAttribution(t *testing.T) {
	s := NewStructuredSearch(fuzzy.NewMatcher(0), newTestProvider(q2Entities()))

	decision := domain.RouteDecision{
		Route:    domain.RouteStructured,
		Entities: []string{"revenue", "expenses"},
		Period:   domain.Period{Quarter: 2, Year: 2024},
	}

	candidates, err := s.Search(context.Background(), decision)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected a union of 2 candidates, got %d", len(candidates))
	}

	seen := map[string]bool{}
	for _, c := range candidates {
		seen[c.Entity] = true
	}
	if !seen["revenue"] || !seen["expenses"] {
		t.Fatalf("expected both entity tokens retained, got %+v", candidates)
	}
}

func TestStructuredSearchUnresolvableEntityIsEmptyNotError(t *testing.T) {
	s := NewStructuredSearch(fuzzy.NewMatcher(0), newTestProvider(q2Entities()))

	decision := domain.RouteDecision{
		Route:    domain.RouteStructured,
		Entities: []string{"headcount"},
	}

	candidates, err := s.Search(context.Background(), decision)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected empty result for unresolvable entity, got %+v", candidates)
	}
}

func TestStructuredSearchDuplicateSuppression(t *testing.T) {
	entities := q2Entities()
	// Same (entity, period, page) twice; the lower-value duplicate must lose.
	entities = append(entities, entities[0])

	s := NewStructuredSearch(fuzzy.NewMatcher(0), newTestProvider(entities))
	decision := domain.RouteDecision{
		Route:    domain.RouteStructured,
		Entities: []string{"total revenues"},
		Period:   domain.Period{Quarter: 2, Year: 2024},
	}

	candidates, err := s.Search(context.Background(), decision)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected duplicate collapse to 1 candidate, got %d", len(candidates))
	}
}

func TestStructuredSearchCancelledContext(t *testing.T) {
	s := NewStructuredSearch(fuzzy.NewMatcher(0), newTestProvider(q2Entities()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Search(ctx, domain.RouteDecision{Entities: []string{"revenue"}}); err == nil {
		t.Fatalf("expected context error")
	}
}
