package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/finqlabs/finretriever/internal/core/domain"
)

// extractPDF emits one text element per page. PDF text comes back without
// layout, so tables inside PDFs surface through the semantic path rather
// than as structured rows.
func extractPDF(raw []byte, filename string) ([]domain.DocumentElement, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", filename, err)
	}

	var elements []domain.DocumentElement
	elementIndex := 0
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract pdf page %d of %s: %w", pageNum, filename, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		elements = append(elements, domain.DocumentElement{
			Kind:           domain.ElementText,
			Text:           text,
			SourceDocument: filename,
			Pages:          domain.SinglePage(pageNum),
			ElementIndex:   elementIndex,
		})
		elementIndex++
	}
	return elements, nil
}
