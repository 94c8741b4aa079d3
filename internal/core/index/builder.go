package index

import (
	"strings"

	"github.com/finqlabs/finretriever/internal/core/domain"
	"github.com/finqlabs/finretriever/internal/core/fuzzy"
)

// BuildEntities derives normalized (entity, period, value, unit) tuples from
// the table elements of one extracted document. Text elements are ignored.
//
// Table shape: the first row whose trailing cells parse as fiscal periods is
// the header; each following row holds an entity label in the first cell and
// one value per period column. Tables without a recognizable period header
// still index, with the raw column label kept on the period.
func BuildEntities(elements []domain.DocumentElement) []domain.TableEntity {
	out := make([]domain.TableEntity, 0, 32)
	for _, el := range elements {
		if el.Kind != domain.ElementTable {
			continue
		}
		out = append(out, buildFromTable(el)...)
	}
	return out
}

func buildFromTable(el domain.DocumentElement) []domain.TableEntity {
	headerRow, periods := findHeader(el.Rows)
	if headerRow < 0 {
		return nil
	}

	page := el.Pages.Start
	out := make([]domain.TableEntity, 0, len(el.Rows)*2)
	for _, row := range el.Rows[headerRow+1:] {
		if len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}

		for col := 1; col < len(row) && col <= len(periods); col++ {
			rawValue := strings.TrimSpace(row[col])
			if rawValue == "" {
				continue
			}
			value, unit := splitValueUnit(rawValue)
			out = append(out, domain.TableEntity{
				EntityName:     name,
				CanonicalName:  fuzzy.Normalize(name),
				Period:         periods[col-1],
				Value:          value,
				Unit:           unit,
				SourceDocument: el.SourceDocument,
				Page:           page,
				ElementIndex:   el.ElementIndex,
			})
		}
	}
	return out
}

// findHeader returns the index of the header row and the parsed period for
// each value column. Falls back to the first non-empty row when no cell
// parses as a period.
func findHeader(rows [][]string) (int, []domain.Period) {
	fallback := -1
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		if fallback < 0 {
			fallback = i
		}

		periods := make([]domain.Period, 0, len(row)-1)
		recognized := false
		for _, cell := range row[1:] {
			period, err := domain.ParsePeriod(cell)
			if err != nil {
				period = domain.Period{Raw: strings.TrimSpace(cell)}
			}
			if !period.IsZero() {
				recognized = true
			}
			periods = append(periods, period)
		}
		if recognized {
			return i, periods
		}
	}

	if fallback < 0 {
		return -1, nil
	}
	periods := make([]domain.Period, 0, len(rows[fallback])-1)
	for _, cell := range rows[fallback][1:] {
		periods = append(periods, domain.Period{Raw: strings.TrimSpace(cell)})
	}
	return fallback, periods
}

// splitValueUnit peels a leading currency symbol or trailing percent/scale
// marker off a cell value. "$420.5" -> ("420.5", "$"), "12%" -> ("12", "%").
func splitValueUnit(raw string) (string, string) {
	value := raw
	unit := ""

	for _, symbol := range []string{"$", "€", "£"} {
		if strings.HasPrefix(value, symbol) {
			unit = symbol
			value = strings.TrimSpace(strings.TrimPrefix(value, symbol))
			break
		}
	}
	if unit == "" && strings.HasSuffix(value, "%") {
		unit = "%"
		value = strings.TrimSpace(strings.TrimSuffix(value, "%"))
	}
	return value, unit
}
