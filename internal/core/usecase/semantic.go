package usecase

import (
	"context"
	"fmt"

	"github.com/finqlabs/finretriever/internal/core/domain"
	"github.com/finqlabs/finretriever/internal/core/ports"
)

// SemanticSearch is the thin adapter in front of the external vector/keyword
// store. It owns no ranking logic: it embeds the query, issues the dense and
// keyword searches, and passes candidates through with their native scores
// and engine tags for the merger to normalize.
type SemanticSearch struct {
	embedder ports.Embedder
	store    ports.VectorStore
}

func NewSemanticSearch(embedder ports.Embedder, store ports.VectorStore) *SemanticSearch {
	return &SemanticSearch{
		embedder: embedder,
		store:    store,
	}
}

// Search runs both sub-searches. One sub-path failing degrades to the other;
// only a total miss is an error.
func (s *SemanticSearch) Search(ctx context.Context, query string, limit int) ([]domain.Candidate, error) {
	if limit <= 0 {
		limit = 10
	}

	var dense []domain.Candidate
	denseErr := func() error {
		vector, err := s.embedder.EmbedQuery(ctx, query)
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		dense, err = s.store.SearchSemantic(ctx, vector, limit)
		if err != nil {
			return fmt.Errorf("semantic search: %w", err)
		}
		return nil
	}()

	keyword, keywordErr := s.store.SearchKeyword(ctx, query, limit)
	if keywordErr != nil {
		keywordErr = fmt.Errorf("keyword search: %w", keywordErr)
	}

	if denseErr != nil && keywordErr != nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "semantic engine", fmt.Errorf("%w; %w", denseErr, keywordErr))
	}

	out := make([]domain.Candidate, 0, len(dense)+len(keyword))
	out = append(out, tagged(dense, domain.EngineSemantic)...)
	out = append(out, tagged(keyword, domain.EngineKeyword)...)
	return out, nil
}

func tagged(candidates []domain.Candidate, engine domain.Engine) []domain.Candidate {
	for i := range candidates {
		candidates[i].Engine = engine
		candidates[i].Attribution.Engines = []domain.Engine{engine}
	}
	return candidates
}
