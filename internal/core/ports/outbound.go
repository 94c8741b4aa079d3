package ports

import (
	"context"
	"io"

	"github.com/finqlabs/finretriever/internal/core/chunk"
	"github.com/finqlabs/finretriever/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveStats(ctx context.Context, id string, stats domain.ProcessingStats) error
}

// EntityRepository persists the table entities extracted from documents, so
// index snapshots survive process boundaries. ReplaceForDocument swaps a
// document's entities wholesale on re-ingestion.
type EntityRepository interface {
	ReplaceForDocument(ctx context.Context, documentID string, entities []domain.TableEntity) error
	ListAll(ctx context.Context) ([]domain.TableEntity, error)
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// ElementExtractor turns a stored source document into the finalized element
// sequence (text and tables) with resolved page attribution.
type ElementExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) ([]domain.DocumentElement, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// TableSummarizer produces a natural-language summary of a serialized table,
// used as an additional indexable chunk. Callers tolerate failure: ingestion
// degrades to raw-table-only indexing.
type TableSummarizer interface {
	Summarize(ctx context.Context, tableText string) (string, error)
}

// VectorStore indexes chunks and serves dense and keyword search. Returned
// candidates carry engine-native scores and attribution; they are tagged
// with the originating engine so the merger can normalize per engine.
type VectorStore interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []chunk.Chunk, vectors [][]float32) error
	SearchSemantic(ctx context.Context, queryVector []float32, limit int) ([]domain.Candidate, error)
	SearchKeyword(ctx context.Context, queryText string, limit int) ([]domain.Candidate, error)
}

// StructuredEngine answers structured lookups against the current table
// index snapshot.
type StructuredEngine interface {
	Search(ctx context.Context, decision domain.RouteDecision) ([]domain.Candidate, error)
}

// SemanticEngine answers free-text retrieval through the vector/keyword
// store.
type SemanticEngine interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Candidate, error)
}
