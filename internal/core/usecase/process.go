package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/finqlabs/finretriever/internal/core/chunk"
	"github.com/finqlabs/finretriever/internal/core/domain"
	"github.com/finqlabs/finretriever/internal/core/index"
	"github.com/finqlabs/finretriever/internal/core/ports"
)

// ProcessDocumentUseCase turns a stored document into retrievable state:
// extract elements, build chunks, embed and index them, and replace the
// document's table entities so the next index generation picks them up.
type ProcessDocumentUseCase struct {
	repo       ports.DocumentRepository
	entities   ports.EntityRepository
	extractor  ports.ElementExtractor
	chunker    *chunk.Builder
	summarizer ports.TableSummarizer
	embedder   ports.Embedder
	vectorDB   ports.VectorStore
	logger     *slog.Logger
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	entities ports.EntityRepository,
	extractor ports.ElementExtractor,
	chunker *chunk.Builder,
	summarizer ports.TableSummarizer,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	logger *slog.Logger,
) *ProcessDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessDocumentUseCase{
		repo:       repo,
		entities:   entities,
		extractor:  extractor,
		chunker:    chunker,
		summarizer: summarizer,
		embedder:   embedder,
		vectorDB:   vectorDB,
		logger:     logger,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	doc, stats, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveStats(ctx, doc.ID, stats); err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) (*domain.Document, domain.ProcessingStats, error) {
	var stats domain.ProcessingStats

	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, stats, fmt.Errorf("fetch document by id: %w", err)
	}

	elements, err := uc.extract(ctx, doc)
	if err != nil {
		return nil, stats, err
	}
	stats.Pages = pageCount(elements)

	chunks, err := uc.chunk(elements)
	if err != nil {
		return nil, stats, err
	}
	chunks = uc.appendTableSummaries(ctx, chunks)
	stats.Chunks = len(chunks)

	tableEntities := index.BuildEntities(elements)
	stats.Entities = len(tableEntities)

	vectors, err := uc.embed(ctx, chunks)
	if err != nil {
		return nil, stats, err
	}

	if err := uc.vectorDB.IndexChunks(ctx, doc, chunks, vectors); err != nil {
		return nil, stats, fmt.Errorf("index chunks in vector db: %w", err)
	}

	if err := uc.entities.ReplaceForDocument(ctx, doc.ID, tableEntities); err != nil {
		return nil, stats, fmt.Errorf("replace table entities: %w", err)
	}

	return doc, stats, nil
}

func (uc *ProcessDocumentUseCase) extract(ctx context.Context, doc *domain.Document) ([]domain.DocumentElement, error) {
	elements, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extract elements: %w", err)
	}
	if len(elements) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract elements", errors.New("document produced zero elements"))
	}
	return elements, nil
}

func (uc *ProcessDocumentUseCase) chunk(elements []domain.DocumentElement) ([]chunk.Chunk, error) {
	chunks := uc.chunker.Build(elements)
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}
	return chunks, nil
}

// appendTableSummaries asks the summarization service for a natural-language
// rendering of each table chunk and indexes it as an extra chunk. The
// service is optional augmentation: any failure degrades to raw-table-only
// indexing.
func (uc *ProcessDocumentUseCase) appendTableSummaries(ctx context.Context, chunks []chunk.Chunk) []chunk.Chunk {
	if uc.summarizer == nil {
		return chunks
	}

	out := chunks
	for _, c := range chunks {
		if c.Kind != domain.ElementTable {
			continue
		}
		summary, err := uc.summarizer.Summarize(ctx, c.Text)
		if err != nil {
			uc.logger.Warn("table_summary_skipped", "chunk", c.ID, "error", err)
			continue
		}
		if summary == "" {
			continue
		}
		out = append(out, chunk.Chunk{
			ID:             c.ID + ":summary",
			Kind:           domain.ElementText,
			Text:           summary,
			SourceDocument: c.SourceDocument,
			Pages:          c.Pages,
			ElementIndexes: c.ElementIndexes,
			TokenCount:     len(summary) / 4,
		})
	}
	return out
}

func (uc *ProcessDocumentUseCase) embed(ctx context.Context, chunks []chunk.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}
	return vectors, nil
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, documentID, status, errMessage)
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}

func pageCount(elements []domain.DocumentElement) int {
	max := 0
	for _, el := range elements {
		if el.Pages.End > max {
			max = el.Pages.End
		}
	}
	return max
}
