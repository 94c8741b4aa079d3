package chunk

import (
	"fmt"
	"strings"

	"github.com/finqlabs/finretriever/internal/core/domain"
)

const (
	DefaultMaxTextTokens = 400
	// Tables compress more information per token and tolerate a larger
	// window without diluting relevance.
	DefaultMaxTableTokens = 800
)

// Chunk is one retrieval-addressable unit built from one or more document
// elements.
type Chunk struct {
	ID             string
	Kind           domain.ElementKind
	Text           string
	SourceDocument string
	Pages          domain.PageRange
	ElementIndexes []int
	TokenCount     int
}

// Builder assembles chunks from an extracted element sequence. Text elements
// pack together up to the text token bound; a table element never shares a
// chunk and splits only at row boundaries.
type Builder struct {
	maxTextTokens  int
	maxTableTokens int
}

func NewBuilder(maxTextTokens, maxTableTokens int) *Builder {
	if maxTextTokens <= 0 {
		maxTextTokens = DefaultMaxTextTokens
	}
	if maxTableTokens <= 0 {
		maxTableTokens = DefaultMaxTableTokens
	}
	return &Builder{
		maxTextTokens:  maxTextTokens,
		maxTableTokens: maxTableTokens,
	}
}

func (b *Builder) Build(elements []domain.DocumentElement) []Chunk {
	out := make([]Chunk, 0, len(elements))
	var pending *Chunk

	flush := func() {
		if pending != nil && pending.Text != "" {
			out = append(out, *pending)
		}
		pending = nil
	}

	for _, el := range elements {
		switch el.Kind {
		case domain.ElementTable:
			flush()
			out = append(out, b.tableChunks(el)...)
		case domain.ElementText:
			text := strings.TrimSpace(el.Text)
			if text == "" {
				continue
			}
			tokens := countTokens(text)
			if pending != nil && pending.TokenCount+tokens > b.maxTextTokens {
				flush()
			}
			if tokens > b.maxTextTokens {
				flush()
				out = append(out, b.splitText(el, text)...)
				continue
			}
			if pending == nil {
				pending = &Chunk{
					ID:             chunkID(el.SourceDocument, el.ElementIndex, 0),
					Kind:           domain.ElementText,
					SourceDocument: el.SourceDocument,
				}
			}
			if pending.Text != "" {
				pending.Text += "\n\n"
			}
			pending.Text += text
			pending.TokenCount += tokens
			pending.Pages = pending.Pages.Union(el.Pages)
			pending.ElementIndexes = append(pending.ElementIndexes, el.ElementIndex)
		}
	}
	flush()
	return out
}

// tableChunks serializes a table element. When the serialized table exceeds
// the table token bound it is split between rows, never mid-row, and the
// header row repeats on every continuation chunk.
func (b *Builder) tableChunks(el domain.DocumentElement) []Chunk {
	lines := make([]string, 0, len(el.Rows))
	for _, row := range el.Rows {
		lines = append(lines, strings.Join(row, " | "))
	}
	if len(lines) == 0 {
		return nil
	}

	header := lines[0]
	headerTokens := countTokens(header)

	out := make([]Chunk, 0, 1)
	part := 0
	current := []string{header}
	currentTokens := headerTokens

	emit := func() {
		if len(current) <= 1 && part > 0 {
			return
		}
		out = append(out, Chunk{
			ID:             chunkID(el.SourceDocument, el.ElementIndex, part),
			Kind:           domain.ElementTable,
			Text:           strings.Join(current, "\n"),
			SourceDocument: el.SourceDocument,
			Pages:          el.Pages,
			ElementIndexes: []int{el.ElementIndex},
			TokenCount:     currentTokens,
		})
		part++
	}

	for _, line := range lines[1:] {
		tokens := countTokens(line)
		if currentTokens+tokens > b.maxTableTokens && len(current) > 1 {
			emit()
			current = []string{header}
			currentTokens = headerTokens
		}
		current = append(current, line)
		currentTokens += tokens
	}
	emit()
	return out
}

func (b *Builder) splitText(el domain.DocumentElement, text string) []Chunk {
	words := strings.Fields(text)
	out := make([]Chunk, 0, len(words)/b.maxTextTokens+1)
	part := 0
	for start := 0; start < len(words); start += b.maxTextTokens {
		end := start + b.maxTextTokens
		if end > len(words) {
			end = len(words)
		}
		out = append(out, Chunk{
			ID:             chunkID(el.SourceDocument, el.ElementIndex, part),
			Kind:           domain.ElementText,
			Text:           strings.Join(words[start:end], " "),
			SourceDocument: el.SourceDocument,
			Pages:          el.Pages,
			ElementIndexes: []int{el.ElementIndex},
			TokenCount:     end - start,
		})
		part++
	}
	return out
}

func chunkID(sourceDocument string, elementIndex, part int) string {
	return fmt.Sprintf("%s:%d:%d", sourceDocument, elementIndex, part)
}

// countTokens approximates the tokenizer with whitespace-separated fields.
func countTokens(s string) int {
	return len(strings.Fields(s))
}
