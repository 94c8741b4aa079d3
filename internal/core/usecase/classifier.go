package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/finqlabs/finretriever/internal/core/domain"
	"github.com/finqlabs/finretriever/internal/core/fuzzy"
)

const maxEntityGram = 4

// Classifier decides which retrieval engine(s) a query goes to. It is a pure
// function of the query text plus a read-only snapshot of known entity
// names: no side effects, no stored state beyond tuning parameters.
type Classifier struct {
	matcher      *fuzzy.Matcher
	defaultBlend float64
}

func NewClassifier(matcher *fuzzy.Matcher, defaultBlend float64) *Classifier {
	if defaultBlend <= 0 || defaultBlend >= 1 {
		defaultBlend = 0.5
	}
	return &Classifier{
		matcher:      matcher,
		defaultBlend: defaultBlend,
	}
}

var (
	numericTokenPattern = regexp.MustCompile(`\b[0-9][0-9,.]*\b`)

	segmentSplitPattern = regexp.MustCompile(`(?i)\s+and\s+|\s+vs\.?\s+|\s+versus\s+|[,;/]`)
)

// Words that signal analytical intent with no single resolvable value.
var comparativeWords = map[string]struct{}{
	"compare":    {},
	"comparison": {},
	"versus":     {},
	"vs":         {},
	"trend":      {},
	"trends":     {},
	"why":        {},
	"how":        {},
	"explain":    {},
	"discussion": {},
	"drivers":    {},
	"outlook":    {},
	"risks":      {},
}

// Filler that never starts or makes up an entity reference on its own.
var classifierStopwords = map[string]struct{}{
	"what": {}, "was": {}, "is": {}, "are": {}, "were": {}, "the": {},
	"in": {}, "for": {}, "of": {}, "a": {}, "an": {}, "and": {}, "to": {},
	"by": {}, "on": {}, "at": {}, "did": {}, "show": {}, "me": {},
	"value": {}, "during": {}, "much": {}, "many": {}, "quarter": {},
	"year": {}, "fiscal": {}, "first": {}, "second": {}, "third": {},
	"fourth": {},
}

// Classify routes a query. It only fails for a malformed structured query
// (an unparseable period); everything else degrades to the semantic route.
func (c *Classifier) Classify(query string, entityNames []string) (domain.RouteDecision, error) {
	period, err := domain.ParsePeriod(query)
	if err != nil {
		return domain.RouteDecision{}, err
	}

	entities := c.resolveEntities(query, entityNames)
	comparative := hasComparativeLanguage(query)
	numeric := !period.IsZero() || numericTokenPattern.MatchString(query)

	decision := domain.RouteDecision{
		BlendWeight: c.defaultBlend,
		Entities:    entities,
		Period:      period,
	}

	switch {
	case len(entities) == 0:
		decision.Route = domain.RouteSemantic
		decision.BlendWeight = 0
		decision.Explanation = "no resolvable entity; semantic search"
	case comparative:
		decision.Route = domain.RouteHybrid
		decision.Explanation = fmt.Sprintf("%d entity reference(s) with analytical language; hybrid search", len(entities))
	case numeric:
		decision.Route = domain.RouteStructured
		decision.BlendWeight = 1
		decision.Explanation = fmt.Sprintf("%d entity reference(s) with period/numeric constraint; structured lookup", len(entities))
	default:
		decision.Route = domain.RouteHybrid
		decision.Explanation = fmt.Sprintf("%d entity reference(s) without period constraint; hybrid search", len(entities))
	}

	return decision, nil
}

// resolveEntities scans the query for spans that match known entity names.
// Segments split on conjunctions so "Revenue and Expenses" yields two
// independent entity tokens. Within a segment the scan is greedy
// longest-span-first, so "total revenue" is consumed as one reference.
func (c *Classifier) resolveEntities(query string, entityNames []string) []string {
	if len(entityNames) == 0 {
		return nil
	}

	out := make([]string, 0, 2)
	seen := make(map[string]struct{}, 2)

	for _, segment := range segmentSplitPattern.Split(query, -1) {
		words := candidateWords(segment)
		for start := 0; start < len(words); {
			matched := 0
			for n := min(maxEntityGram, len(words)-start); n >= 1; n-- {
				gram := strings.Join(words[start:start+n], " ")
				if len(c.matcher.Match(gram, entityNames)) == 0 {
					continue
				}
				if _, dup := seen[gram]; !dup {
					seen[gram] = struct{}{}
					out = append(out, gram)
				}
				matched = n
				break
			}
			if matched == 0 {
				start++
				continue
			}
			start += matched
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// candidateWords normalizes a segment and drops filler, period, and numeric
// tokens that cannot be part of an entity name.
func candidateWords(segment string) []string {
	words := strings.Fields(fuzzy.Normalize(segment))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := classifierStopwords[w]; stop {
			continue
		}
		if _, comparative := comparativeWords[w]; comparative {
			continue
		}
		if isPeriodToken(w) || numericTokenPattern.MatchString(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

func isPeriodToken(w string) bool {
	if len(w) == 2 && w[0] == 'q' && w[1] >= '0' && w[1] <= '9' {
		return true
	}
	return strings.HasPrefix(w, "fy")
}

func hasComparativeLanguage(query string) bool {
	for _, w := range strings.Fields(fuzzy.Normalize(query)) {
		if _, ok := comparativeWords[w]; ok {
			return true
		}
	}
	return false
}
