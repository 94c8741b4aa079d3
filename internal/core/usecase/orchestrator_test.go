package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/finqlabs/finretriever/internal/core/domain"
	"github.com/finqlabs/finretriever/internal/core/fuzzy"
	"github.com/finqlabs/finretriever/internal/core/index"
)

type fakeStructuredEngine struct {
	candidates []domain.Candidate
	err        error
	calls      int
}

func (f *fakeStructuredEngine) Search(_ context.Context, _ domain.RouteDecision) ([]domain.Candidate, error) {
	f.calls++
	return f.candidates, f.err
}

type fakeSemanticEngine struct {
	candidates []domain.Candidate
	err        error
	block      bool
	calls      int
}

func (f *fakeSemanticEngine) Search(ctx context.Context, _ string, _ int) ([]domain.Candidate, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.candidates, f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(provider *index.Provider, structured *fakeStructuredEngine, semantic *fakeSemanticEngine, timeout time.Duration) *Orchestrator {
	return NewOrchestrator(
		NewClassifier(fuzzy.NewMatcher(0), 0.5),
		provider,
		structured,
		semantic,
		NewMerger(8),
		quietLogger(),
		timeout,
		0,
	)
}

func TestOrchestratorStructuredQueryEndToEnd(t *testing.T) {
	provider := newTestProvider(q2Entities())
	semantic := &fakeSemanticEngine{}
	o := NewOrchestrator(
		NewClassifier(fuzzy.NewMatcher(0), 0.5),
		provider,
		NewStructuredSearch(fuzzy.NewMatcher(0), provider),
		semantic,
		NewMerger(8),
		quietLogger(),
		0,
		0,
	)

	answer, err := o.Answer(context.Background(), "What was Total Revenue in Q2 2024?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Route != domain.RouteStructured {
		t.Fatalf("route = %s, want structured", answer.Route)
	}
	if answer.Partial {
		t.Fatal("structured route must not report partial results")
	}
	if semantic.calls != 0 {
		t.Fatalf("semantic engine called %d times on the structured route", semantic.calls)
	}
	if len(answer.Results) != 1 {
		t.Fatalf("expected 1 result, got %d: %+v", len(answer.Results), answer.Results)
	}

	got := answer.Results[0]
	if got.Value != "420" {
		t.Fatalf("value = %s, want 420", got.Value)
	}
	if got.NormalizedScore <= 0 || got.NormalizedScore > 1 {
		t.Fatalf("score = %v, want (0,1]", got.NormalizedScore)
	}
	if got.Attribution.SourceDocument != "10q.pdf" || got.Attribution.Pages.Start != 4 {
		t.Fatalf("attribution = %+v, want 10q.pdf p.4", got.Attribution)
	}
}

func TestOrchestratorEmptyQuery(t *testing.T) {
	o := newTestOrchestrator(newTestProvider(nil), &fakeStructuredEngine{}, &fakeSemanticEngine{}, 0)

	_, err := o.Answer(context.Background(), "   ")
	if !domain.IsKind(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestOrchestratorStructuredRouteWithoutData(t *testing.T) {
	structured := &fakeStructuredEngine{}
	o := newTestOrchestrator(newTestProvider(q2Entities()), structured, &fakeSemanticEngine{}, 0)

	answer, err := o.Answer(context.Background(), "What was Total Revenue in Q2?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if structured.calls != 1 {
		t.Fatalf("structured engine calls = %d, want 1", structured.calls)
	}
	if len(answer.Results) != 0 {
		t.Fatalf("expected empty results, got %+v", answer.Results)
	}
	if answer.Explanation != "no structured data found" {
		t.Fatalf("explanation = %q", answer.Explanation)
	}
}

func TestOrchestratorStructuredRouteEngineFailure(t *testing.T) {
	structured := &fakeStructuredEngine{err: errors.New("pg down")}
	o := newTestOrchestrator(newTestProvider(q2Entities()), structured, &fakeSemanticEngine{}, 0)

	_, err := o.Answer(context.Background(), "What was Total Revenue in Q2?")
	if !domain.IsKind(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestOrchestratorHybridMergesBothEngines(t *testing.T) {
	structured := &fakeStructuredEngine{candidates: []domain.Candidate{structuredCandidate("str", 4, 0.9)}}
	semantic := &fakeSemanticEngine{candidates: []domain.Candidate{semanticCandidate("sem", 7, 0.5)}}
	o := newTestOrchestrator(newTestProvider(q2Entities()), structured, semantic, 0)

	answer, err := o.Answer(context.Background(), "Compare Total Revenues and Total Expenses for Q2 2024")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Route != domain.RouteHybrid {
		t.Fatalf("route = %s, want hybrid", answer.Route)
	}
	if answer.Partial {
		t.Fatal("both engines succeeded, answer must not be partial")
	}
	if structured.calls != 1 || semantic.calls != 1 {
		t.Fatalf("engine calls = (%d, %d), want both engines invoked once", structured.calls, semantic.calls)
	}
	if len(answer.Results) != 2 {
		t.Fatalf("expected 2 merged results, got %d: %+v", len(answer.Results), answer.Results)
	}
}

func TestOrchestratorHybridDegradesToPartial(t *testing.T) {
	structured := &fakeStructuredEngine{candidates: []domain.Candidate{structuredCandidate("str", 4, 0.9)}}
	semantic := &fakeSemanticEngine{err: errors.New("qdrant unreachable")}
	o := newTestOrchestrator(newTestProvider(q2Entities()), structured, semantic, 0)

	answer, err := o.Answer(context.Background(), "Compare Total Revenues and Total Expenses for Q2 2024")
	if err != nil {
		t.Fatalf("one healthy engine must still answer, got error %v", err)
	}
	if !answer.Partial {
		t.Fatal("expected Partial to be set after a single engine failure")
	}
	if len(answer.Results) != 1 || answer.Results[0].ID != "str" {
		t.Fatalf("expected the surviving engine's result, got %+v", answer.Results)
	}
}

func TestOrchestratorHybridBothEnginesFail(t *testing.T) {
	structured := &fakeStructuredEngine{err: errors.New("pg down")}
	semantic := &fakeSemanticEngine{err: errors.New("qdrant down")}
	o := newTestOrchestrator(newTestProvider(q2Entities()), structured, semantic, 0)

	_, err := o.Answer(context.Background(), "Compare Total Revenues and Total Expenses for Q2 2024")
	if !domain.IsKind(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestOrchestratorHybridTimeoutBoundsLatency(t *testing.T) {
	structured := &fakeStructuredEngine{candidates: []domain.Candidate{structuredCandidate("str", 4, 0.9)}}
	semantic := &fakeSemanticEngine{block: true}
	o := newTestOrchestrator(newTestProvider(q2Entities()), structured, semantic, 25*time.Millisecond)

	start := time.Now()
	answer, err := o.Answer(context.Background(), "Compare Total Revenues and Total Expenses for Q2 2024")
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !answer.Partial {
		t.Fatal("expected partial answer when one engine times out")
	}
	if elapsed > 2*time.Second {
		t.Fatalf("hybrid fan-out took %v, engine timeout did not bound latency", elapsed)
	}
}

func TestOrchestratorSemanticRouteSkipsStructured(t *testing.T) {
	structured := &fakeStructuredEngine{}
	semantic := &fakeSemanticEngine{candidates: []domain.Candidate{semanticCandidate("sem", 2, 0.4)}}
	o := newTestOrchestrator(newTestProvider(q2Entities()), structured, semantic, 0)

	answer, err := o.Answer(context.Background(), "What drove the change in operating margins?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Route != domain.RouteSemantic {
		t.Fatalf("route = %s, want semantic", answer.Route)
	}
	if structured.calls != 0 {
		t.Fatalf("structured engine called %d times on the semantic route", structured.calls)
	}
	if len(answer.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(answer.Results))
	}
}

func TestOrchestratorEngineObserverSeesEveryCall(t *testing.T) {
	structured := &fakeStructuredEngine{candidates: []domain.Candidate{
		{ID: "s1", Engine: domain.EngineStructured, RawScore: 0.9,
			Attribution: domain.Attribution{SourceDocument: "10q.pdf", Pages: domain.PageRange{Start: 4, End: 4}}},
	}}
	semantic := &fakeSemanticEngine{err: errors.New("qdrant down")}
	o := newTestOrchestrator(newTestProvider(q2Entities()), structured, semantic, 0)

	// The hybrid fan-out signals from both engine goroutines.
	var mu sync.Mutex
	byEngine := map[domain.Engine]error{}
	o.SetEngineObserver(func(engine domain.Engine, elapsed time.Duration, err error) {
		if elapsed < 0 {
			t.Errorf("negative elapsed for %s", engine)
		}
		mu.Lock()
		byEngine[engine] = err
		mu.Unlock()
	})

	answer, err := o.Answer(context.Background(), "Compare Total Revenues and Total Expenses for Q2 2024")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !answer.Partial {
		t.Fatal("expected partial answer with semantic engine down")
	}

	if len(byEngine) != 2 {
		t.Fatalf("observer saw %d engines, want 2", len(byEngine))
	}
	if byEngine[domain.EngineStructured] != nil {
		t.Fatalf("structured signal carries error: %v", byEngine[domain.EngineStructured])
	}
	if byEngine[domain.EngineSemantic] == nil {
		t.Fatal("semantic signal missing its error")
	}
}

func TestOrchestratorEngineObserverSingleRoute(t *testing.T) {
	structured := &fakeStructuredEngine{}
	semantic := &fakeSemanticEngine{candidates: []domain.Candidate{
		{ID: "c1", Engine: domain.EngineSemantic, RawScore: 0.6,
			Attribution: domain.Attribution{SourceDocument: "10q.pdf", Pages: domain.PageRange{Start: 2, End: 2}}},
	}}
	o := newTestOrchestrator(newTestProvider(nil), structured, semantic, 0)

	var engines []domain.Engine
	o.SetEngineObserver(func(engine domain.Engine, _ time.Duration, err error) {
		if err != nil {
			t.Fatalf("unexpected engine error: %v", err)
		}
		engines = append(engines, engine)
	})

	if _, err := o.Answer(context.Background(), "What drove the change in operating margins?"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(engines) != 1 || engines[0] != domain.EngineSemantic {
		t.Fatalf("observer signals = %v, want one semantic call", engines)
	}
}
