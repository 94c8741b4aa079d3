package domain

import "fmt"

type ElementKind string

const (
	ElementText  ElementKind = "text"
	ElementTable ElementKind = "table"
)

// PageRange is the page attribution of an element or result. Start and End
// are 1-based and inclusive; a zero Start means attribution is unresolved.
type PageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func SinglePage(page int) PageRange {
	return PageRange{Start: page, End: page}
}

func (p PageRange) IsZero() bool {
	return p.Start == 0
}

func (p PageRange) String() string {
	if p.IsZero() {
		return "unknown"
	}
	if p.Start == p.End {
		return fmt.Sprintf("p.%d", p.Start)
	}
	return fmt.Sprintf("pp.%d-%d", p.Start, p.End)
}

// Union widens the range to cover both attributions.
func (p PageRange) Union(other PageRange) PageRange {
	if p.IsZero() {
		return other
	}
	if other.IsZero() {
		return p
	}
	out := p
	if other.Start < out.Start {
		out.Start = other.Start
	}
	if other.End > out.End {
		out.End = other.End
	}
	return out
}

// DocumentElement is one unit of extracted content. Text elements carry Text;
// table elements carry Rows as ordered cell values. ElementIndex is assigned
// monotonically at extraction and is stable across runs.
type DocumentElement struct {
	Kind           ElementKind `json:"kind"`
	Text           string      `json:"text,omitempty"`
	Rows           [][]string  `json:"rows,omitempty"`
	SourceDocument string      `json:"source_document"`
	Pages          PageRange   `json:"pages"`
	ElementIndex   int         `json:"element_index"`
}

// TableEntity is one normalized (entity, period, value, unit) tuple derived
// from a table element. CanonicalName is the matching key; EntityName keeps
// the label as extracted. Immutable once built.
type TableEntity struct {
	EntityName     string `json:"entity_name"`
	CanonicalName  string `json:"canonical_name"`
	Period         Period `json:"period"`
	Value          string `json:"value"`
	Unit           string `json:"unit,omitempty"`
	SourceDocument string `json:"source_document"`
	Page           int    `json:"page"`
	ElementIndex   int    `json:"element_index"`
}
