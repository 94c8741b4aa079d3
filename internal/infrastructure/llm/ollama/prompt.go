package ollama

import "unicode/utf8"

func buildTableSummaryPrompt(tableText string) string {
	const maxSnippet = 4000
	snippet := tableText
	if len(snippet) > maxSnippet {
		// Back off to a rune boundary so the cut never mangles a
		// multi-byte character (currency signs are common in tables).
		cut := maxSnippet
		for cut > 0 && !utf8.RuneStart(snippet[cut]) {
			cut--
		}
		snippet = snippet[:cut]
	}

	return `You summarize financial tables.
Write 2-4 plain sentences stating the metrics, their periods, and their values.
Keep every number and unit exactly as written. No markdown, no commentary.

Table:
` + snippet
}
