package fuzzy

import (
	"sort"
	"strings"
	"unicode"

	"github.com/xrash/smetrics"
)

const (
	DefaultFloor = 0.80

	jaroWinklerBoost  = 0.7
	jaroWinklerPrefix = 4
)

// Match is one canonical entity name accepted for a query token.
type Match struct {
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
}

// Matcher resolves user-supplied entity tokens against canonical entity
// names, tolerating spelling and formatting variance. It holds no mutable
// state and is safe for concurrent use.
type Matcher struct {
	floor float64
}

func NewMatcher(floor float64) *Matcher {
	if floor <= 0 || floor >= 1 {
		floor = DefaultFloor
	}
	return &Matcher{floor: floor}
}

func (m *Matcher) Floor() float64 {
	return m.floor
}

// Match returns canonical names scoring at or above the floor, best first.
// Ordering is deterministic: similarity desc, then shorter edit distance,
// then lexical. Zero matches is a normal outcome, not an error.
func (m *Matcher) Match(token string, canonical []string) []Match {
	normToken := Normalize(token)
	if normToken == "" {
		return nil
	}
	tokenWords := strings.Fields(normToken)

	type scored struct {
		match    Match
		editDist int
	}

	accepted := make([]scored, 0, 4)
	for _, name := range canonical {
		normName := Normalize(name)
		if normName == "" {
			continue
		}
		sim := similarity(tokenWords, normName)
		if sim < m.floor {
			continue
		}
		accepted = append(accepted, scored{
			match:    Match{Name: name, Similarity: sim},
			editDist: smetrics.WagnerFischer(normToken, normName, 1, 1, 2),
		})
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		if accepted[i].match.Similarity != accepted[j].match.Similarity {
			return accepted[i].match.Similarity > accepted[j].match.Similarity
		}
		if accepted[i].editDist != accepted[j].editDist {
			return accepted[i].editDist < accepted[j].editDist
		}
		return accepted[i].match.Name < accepted[j].match.Name
	})

	out := make([]Match, 0, len(accepted))
	for _, s := range accepted {
		out = append(out, s.match)
	}
	return out
}

// similarity scores how well every query word is covered by some word of the
// candidate name. Per-word scoring uses Jaro-Winkler, so near-miss spellings
// ("revenu", "revenues") still pair up, while word order and extra candidate
// words ("Total Revenues" for "revenue") do not penalize the query. Word
// scores multiply: one unrelated word ("Expenses" against "Revenue") sinks
// the whole candidate below any sane floor.
func similarity(queryWords []string, candidate string) float64 {
	candidateWords := strings.Fields(candidate)
	if len(queryWords) == 0 || len(candidateWords) == 0 {
		return 0
	}

	total := 1.0
	for _, qw := range queryWords {
		best := 0.0
		for _, cw := range candidateWords {
			s := smetrics.JaroWinkler(qw, cw, jaroWinklerBoost, jaroWinklerPrefix)
			if s > best {
				best = s
			}
		}
		total *= best
	}
	return total
}

// Normalize case-folds, strips punctuation, and collapses whitespace so that
// surface formatting never affects matching.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
