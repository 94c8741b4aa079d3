package extractor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/finqlabs/finretriever/internal/core/domain"
	"github.com/finqlabs/finretriever/internal/core/ports"
)

// Extractor reads a stored source document and dispatches to the
// format-specific parser. Parsers return the finalized element sequence in
// document order with page attribution resolved.
type Extractor struct {
	storage ports.ObjectStorage
}

func New(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) ([]domain.DocumentElement, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read source document: %w", err)
	}

	switch detectFormat(doc) {
	case formatPDF:
		return extractPDF(raw, doc.Filename)
	case formatXLSX:
		return extractXLSX(raw, doc.Filename)
	default:
		return extractPlaintext(raw, doc.Filename)
	}
}

type format int

const (
	formatPlaintext format = iota
	formatPDF
	formatXLSX
)

func detectFormat(doc *domain.Document) format {
	switch doc.MimeType {
	case "application/pdf":
		return formatPDF
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/vnd.ms-excel":
		return formatXLSX
	}
	switch strings.ToLower(filepath.Ext(doc.Filename)) {
	case ".pdf":
		return formatPDF
	case ".xlsx", ".xlsm":
		return formatXLSX
	}
	return formatPlaintext
}
