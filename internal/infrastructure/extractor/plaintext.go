package extractor

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/finqlabs/finretriever/internal/core/domain"
)

// extractPlaintext parses UTF-8 text and markdown-ish reports. Paragraphs
// become text elements; runs of pipe-delimited lines become table elements,
// which is how exported financial statements usually arrive as text.
func extractPlaintext(raw []byte, filename string) ([]domain.DocumentElement, error) {
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("unsupported binary format: %s", filename)
	}

	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	blocks := strings.Split(text, "\n\n")

	var elements []domain.DocumentElement
	elementIndex := 0
	emit := func(el domain.DocumentElement) {
		el.SourceDocument = filename
		el.Pages = domain.SinglePage(1)
		el.ElementIndex = elementIndex
		elements = append(elements, el)
		elementIndex++
	}

	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		if rows := parsePipeTable(block); rows != nil {
			emit(domain.DocumentElement{Kind: domain.ElementTable, Rows: rows})
			continue
		}
		emit(domain.DocumentElement{Kind: domain.ElementText, Text: block})
	}
	return elements, nil
}

// parsePipeTable recognizes a block where every line is a pipe-delimited
// row. Markdown separator lines (|---|---|) are dropped.
func parsePipeTable(block string) [][]string {
	lines := strings.Split(block, "\n")
	if len(lines) < 2 {
		return nil
	}

	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "|") {
			return nil
		}
		if isSeparatorRow(line) {
			continue
		}

		cells := strings.Split(strings.Trim(line, "|"), "|")
		row := make([]string, len(cells))
		for i, cell := range cells {
			row[i] = strings.TrimSpace(cell)
		}
		rows = append(rows, row)
	}
	if len(rows) < 2 {
		return nil
	}
	return rows
}

func isSeparatorRow(line string) bool {
	for _, r := range line {
		switch r {
		case '|', '-', ':', ' ':
		default:
			return false
		}
	}
	return true
}
