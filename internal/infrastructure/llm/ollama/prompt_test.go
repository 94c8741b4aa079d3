package ollama

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTableSummaryPromptKeepsShortTablesIntact(t *testing.T) {
	table := "Metric | Q2 2024\nTotal Revenues | €420"
	prompt := buildTableSummaryPrompt(table)

	if !strings.Contains(prompt, table) {
		t.Fatalf("prompt lost the table text:\n%s", prompt)
	}
}

func TestTableSummaryPromptTruncatesOnRuneBoundary(t *testing.T) {
	// 3-byte runes guarantee the 4000-byte cap lands mid-rune.
	table := strings.Repeat("€", 2000)
	prompt := buildTableSummaryPrompt(table)

	if !utf8.ValidString(prompt) {
		t.Fatal("truncated prompt contains an invalid UTF-8 sequence")
	}
	if strings.ContainsRune(prompt, utf8.RuneError) {
		t.Fatal("truncated prompt contains a replacement rune")
	}
	if len(prompt) >= len(table) {
		t.Fatalf("prompt was not truncated: %d bytes of table kept", len(prompt))
	}
}
