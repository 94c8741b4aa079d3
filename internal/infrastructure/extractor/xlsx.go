package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/finqlabs/finretriever/internal/core/domain"
)

// extractXLSX emits one table element per non-empty sheet. Sheet order
// stands in for page order since spreadsheets carry no page numbers.
func extractXLSX(raw []byte, filename string) ([]domain.DocumentElement, error) {
	book, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", filename, err)
	}
	defer book.Close()

	var elements []domain.DocumentElement
	elementIndex := 0
	for sheetIndex, sheet := range book.GetSheetList() {
		rows, err := book.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, filename, err)
		}

		cleaned := make([][]string, 0, len(rows))
		for _, row := range rows {
			if rowIsEmpty(row) {
				continue
			}
			cells := make([]string, len(row))
			for i, cell := range row {
				cells[i] = strings.TrimSpace(cell)
			}
			cleaned = append(cleaned, cells)
		}
		if len(cleaned) == 0 {
			continue
		}

		elements = append(elements, domain.DocumentElement{
			Kind:           domain.ElementTable,
			Rows:           cleaned,
			SourceDocument: filename,
			Pages:          domain.SinglePage(sheetIndex + 1),
			ElementIndex:   elementIndex,
		})
		elementIndex++
	}
	return elements, nil
}

func rowIsEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
