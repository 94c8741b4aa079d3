package index

import (
	"sort"
	"sync/atomic"

	"github.com/finqlabs/finretriever/internal/core/domain"
	"github.com/finqlabs/finretriever/internal/core/fuzzy"
)

// Index is an immutable snapshot of the table entities extracted from the
// ingested corpus. It is read-only after construction and safe to share
// across concurrent queries without locking.
type Index struct {
	entities    []domain.TableEntity
	byCanonical map[string][]int
	names       []string
}

// New builds a snapshot from entities. The input is copied; later mutation
// of the argument does not leak into the snapshot.
func New(entities []domain.TableEntity) *Index {
	owned := make([]domain.TableEntity, len(entities))
	copy(owned, entities)

	byCanonical := make(map[string][]int, len(owned))
	seenNames := make(map[string]struct{}, len(owned))
	names := make([]string, 0, len(owned))

	for i := range owned {
		if owned[i].CanonicalName == "" {
			owned[i].CanonicalName = fuzzy.Normalize(owned[i].EntityName)
		}
		key := owned[i].CanonicalName
		byCanonical[key] = append(byCanonical[key], i)

		if _, ok := seenNames[owned[i].EntityName]; !ok {
			seenNames[owned[i].EntityName] = struct{}{}
			names = append(names, owned[i].EntityName)
		}
	}
	sort.Strings(names)

	return &Index{
		entities:    owned,
		byCanonical: byCanonical,
		names:       names,
	}
}

func (ix *Index) Len() int {
	return len(ix.entities)
}

// EntityNames returns the distinct entity names in the snapshot, sorted.
// Callers must treat the slice as read-only.
func (ix *Index) EntityNames() []string {
	return ix.names
}

// LookupCanonical returns every entity row whose canonical name equals key,
// in extraction order.
func (ix *Index) LookupCanonical(key string) []domain.TableEntity {
	idxs, ok := ix.byCanonical[key]
	if !ok {
		return nil
	}
	out := make([]domain.TableEntity, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, ix.entities[i])
	}
	return out
}

// WithoutDocument returns the snapshot's entities minus those belonging to
// sourceDocument. Used to rebuild a generation when a document is
// re-ingested: the document's entities are replaced wholesale.
func (ix *Index) WithoutDocument(sourceDocument string) []domain.TableEntity {
	out := make([]domain.TableEntity, 0, len(ix.entities))
	for _, e := range ix.entities {
		if e.SourceDocument != sourceDocument {
			out = append(out, e)
		}
	}
	return out
}

// Provider publishes index generations. Rebuilds happen off to the side;
// Swap makes the new generation visible atomically, so in-flight queries
// keep reading a consistent snapshot.
type Provider struct {
	current atomic.Pointer[Index]
}

func NewProvider() *Provider {
	p := &Provider{}
	p.current.Store(New(nil))
	return p
}

func (p *Provider) Current() *Index {
	return p.current.Load()
}

func (p *Provider) Swap(ix *Index) {
	if ix == nil {
		ix = New(nil)
	}
	p.current.Store(ix)
}
