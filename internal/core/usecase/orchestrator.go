package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/finqlabs/finretriever/internal/core/domain"
	"github.com/finqlabs/finretriever/internal/core/index"
	"github.com/finqlabs/finretriever/internal/core/ports"
)

// Orchestrator is the top-level coordinator for one query: classify, fan out
// to the selected engines (concurrently on the hybrid route), and merge. It
// performs no retries; retry policy lives inside the engine clients.
type Orchestrator struct {
	classifier     *Classifier
	provider       *index.Provider
	structured     ports.StructuredEngine
	semantic       ports.SemanticEngine
	merger         *Merger
	logger         *slog.Logger
	engineTimeout  time.Duration
	candidateLimit int
	observer       EngineObserver
}

// EngineObserver receives one signal per engine call, feeding
// instrumentation without coupling the core to a metrics backend. A nil
// error means the call succeeded.
type EngineObserver func(engine domain.Engine, elapsed time.Duration, err error)

func NewOrchestrator(
	classifier *Classifier,
	provider *index.Provider,
	structured ports.StructuredEngine,
	semantic ports.SemanticEngine,
	merger *Merger,
	logger *slog.Logger,
	engineTimeout time.Duration,
	candidateLimit int,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if engineTimeout <= 0 {
		engineTimeout = 10 * time.Second
	}
	if candidateLimit <= 0 {
		candidateLimit = 30
	}
	return &Orchestrator{
		classifier:     classifier,
		provider:       provider,
		structured:     structured,
		semantic:       semantic,
		merger:         merger,
		logger:         logger,
		engineTimeout:  engineTimeout,
		candidateLimit: candidateLimit,
	}
}

// SetEngineObserver installs the per-engine-call hook. Install before
// serving queries; it is not swapped under a lock, and the hybrid route
// invokes it from both engine goroutines concurrently.
func (o *Orchestrator) SetEngineObserver(observer EngineObserver) {
	o.observer = observer
}

func (o *Orchestrator) observe(outcome engineOutcome) engineOutcome {
	if o.observer != nil {
		o.observer(outcome.engine, outcome.elapsed, outcome.err)
	}
	return outcome
}

type engineOutcome struct {
	engine     domain.Engine
	candidates []domain.Candidate
	err        error
	elapsed    time.Duration
}

// Answer handles one query end to end. A single engine's failure on the
// hybrid route degrades to partial results; failure of the sole selected
// engine is user-visible and names the attempted route.
func (o *Orchestrator) Answer(ctx context.Context, query string) (*domain.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidQuery, "answer", errors.New("query is empty"))
	}

	decision, err := o.classifier.Classify(query, o.provider.Current().EntityNames())
	if err != nil {
		return nil, err
	}

	answer := &domain.Answer{
		Query:       query,
		Route:       decision.Route,
		Explanation: decision.Explanation,
	}

	var candidates []domain.Candidate
	switch decision.Route {
	case domain.RouteStructured:
		outcome := o.callStructured(ctx, decision)
		if outcome.err != nil {
			return nil, o.engineFailure(decision.Route, outcome)
		}
		if len(outcome.candidates) == 0 {
			answer.Explanation = "no structured data found"
			answer.Results = []domain.RankedResult{}
			return answer, nil
		}
		candidates = outcome.candidates

	case domain.RouteSemantic:
		outcome := o.callSemantic(ctx, query)
		if outcome.err != nil {
			return nil, o.engineFailure(decision.Route, outcome)
		}
		candidates = outcome.candidates

	case domain.RouteHybrid:
		structuredCh := make(chan engineOutcome, 1)
		semanticCh := make(chan engineOutcome, 1)

		fanoutCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		go func() { structuredCh <- o.callStructured(fanoutCtx, decision) }()
		go func() { semanticCh <- o.callSemantic(fanoutCtx, query) }()

		structuredOut := <-structuredCh
		semanticOut := <-semanticCh

		if structuredOut.err != nil && semanticOut.err != nil {
			return nil, domain.WrapError(
				domain.ErrBackendUnavailable,
				"hybrid retrieval",
				fmt.Errorf("structured: %w; semantic: %w", structuredOut.err, semanticOut.err),
			)
		}
		for _, outcome := range []engineOutcome{structuredOut, semanticOut} {
			if outcome.err != nil {
				answer.Partial = true
				o.logger.Warn("engine_degraded",
					"engine", string(outcome.engine),
					"route", string(decision.Route),
					"elapsed_ms", outcome.elapsed.Milliseconds(),
					"error", outcome.err,
				)
				continue
			}
			candidates = append(candidates, outcome.candidates...)
		}
	}

	answer.Results = o.merger.Merge(decision, candidates)
	if answer.Results == nil {
		answer.Results = []domain.RankedResult{}
	}
	if len(answer.Results) == 0 && answer.Explanation == "" {
		answer.Explanation = "no matching data"
	}
	return answer, nil
}

// callStructured runs the structured engine under its own timeout. The
// engine call inherits cancellation from the query context.
func (o *Orchestrator) callStructured(ctx context.Context, decision domain.RouteDecision) engineOutcome {
	callCtx, cancel := context.WithTimeout(ctx, o.engineTimeout)
	defer cancel()

	start := time.Now()
	candidates, err := o.structured.Search(callCtx, decision)
	return o.observe(engineOutcome{
		engine:     domain.EngineStructured,
		candidates: candidates,
		err:        err,
		elapsed:    time.Since(start),
	})
}

func (o *Orchestrator) callSemantic(ctx context.Context, query string) engineOutcome {
	callCtx, cancel := context.WithTimeout(ctx, o.engineTimeout)
	defer cancel()

	start := time.Now()
	candidates, err := o.semantic.Search(callCtx, query, o.candidateLimit)
	return o.observe(engineOutcome{
		engine:     domain.EngineSemantic,
		candidates: candidates,
		err:        err,
		elapsed:    time.Since(start),
	})
}

func (o *Orchestrator) engineFailure(route domain.Route, outcome engineOutcome) error {
	o.logger.Warn("engine_failed",
		"engine", string(outcome.engine),
		"route", string(route),
		"elapsed_ms", outcome.elapsed.Milliseconds(),
		"error", outcome.err,
	)
	return domain.WrapError(
		domain.ErrBackendUnavailable,
		fmt.Sprintf("%s retrieval", route),
		outcome.err,
	)
}
