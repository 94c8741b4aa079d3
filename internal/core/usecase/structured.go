package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/finqlabs/finretriever/internal/core/domain"
	"github.com/finqlabs/finretriever/internal/core/fuzzy"
	"github.com/finqlabs/finretriever/internal/core/index"
)

// StructuredSearch answers structured lookups ("value of X for period Y")
// against the current table index snapshot. Entity tokens resolve through
// the fuzzy matcher; each matching table row yields one candidate scored by
// entity similarity times period exactness.
type StructuredSearch struct {
	matcher  *fuzzy.Matcher
	provider *index.Provider
}

func NewStructuredSearch(matcher *fuzzy.Matcher, provider *index.Provider) *StructuredSearch {
	return &StructuredSearch{
		matcher:  matcher,
		provider: provider,
	}
}

// Search unions independent per-entity lookups. An entity that matches
// nothing contributes an empty result, never an error: the caller reads an
// empty set as "no structured data found".
func (s *StructuredSearch) Search(ctx context.Context, decision domain.RouteDecision) ([]domain.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snapshot := s.provider.Current()
	names := snapshot.EntityNames()

	out := make([]domain.Candidate, 0, 8)
	for _, token := range decision.Entities {
		out = append(out, s.searchEntity(snapshot, names, token, decision.Period)...)
	}

	out = dedupeStructured(out)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RawScore != out[j].RawScore {
			return out[i].RawScore > out[j].RawScore
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *StructuredSearch) searchEntity(snapshot *index.Index, names []string, token string, period domain.Period) []domain.Candidate {
	out := make([]domain.Candidate, 0, 4)
	for _, match := range s.matcher.Match(token, names) {
		for _, row := range snapshot.LookupCanonical(fuzzy.Normalize(match.Name)) {
			exactness := period.Exactness(row.Period)
			if exactness == 0 {
				continue
			}
			out = append(out, domain.Candidate{
				ID:       structuredCandidateID(row),
				Engine:   domain.EngineStructured,
				Text:     formatStructuredHit(row),
				Value:    row.Value,
				Entity:   token,
				Period:   row.Period.String(),
				Unit:     row.Unit,
				RawScore: match.Similarity * exactness,
				Attribution: domain.Attribution{
					SourceDocument: row.SourceDocument,
					Pages:          domain.SinglePage(row.Page),
					Engines:        []domain.Engine{domain.EngineStructured},
				},
			})
		}
	}
	return out
}

// dedupeStructured collapses candidates referring to the same
// (entity, period, page) onto the highest-scoring instance.
func dedupeStructured(candidates []domain.Candidate) []domain.Candidate {
	best := make(map[string]int, len(candidates))
	out := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		key := strings.Join([]string{fuzzy.Normalize(c.Entity), c.Period, c.Attribution.SourceDocument, c.Attribution.Pages.String()}, "|")
		if i, ok := best[key]; ok {
			if c.RawScore > out[i].RawScore {
				out[i] = c
			}
			continue
		}
		best[key] = len(out)
		out = append(out, c)
	}
	return out
}

func structuredCandidateID(row domain.TableEntity) string {
	return fmt.Sprintf("%s:%d:%s:%s", row.SourceDocument, row.ElementIndex, row.CanonicalName, row.Period.String())
}

func formatStructuredHit(row domain.TableEntity) string {
	value := row.Value
	if row.Unit == "%" {
		value += "%"
	} else if row.Unit != "" {
		value = row.Unit + value
	}
	if row.Period.IsZero() && row.Period.Raw == "" {
		return fmt.Sprintf("%s: %s", row.EntityName, value)
	}
	return fmt.Sprintf("%s (%s): %s", row.EntityName, row.Period.String(), value)
}
