// Package bootstrap assembles the object graph shared by the api, worker,
// and mcp binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/finqlabs/finretriever/internal/config"
	"github.com/finqlabs/finretriever/internal/core/chunk"
	"github.com/finqlabs/finretriever/internal/core/fuzzy"
	"github.com/finqlabs/finretriever/internal/core/index"
	"github.com/finqlabs/finretriever/internal/core/ports"
	"github.com/finqlabs/finretriever/internal/core/usecase"
	"github.com/finqlabs/finretriever/internal/infrastructure/extractor"
	"github.com/finqlabs/finretriever/internal/infrastructure/llm/ollama"
	"github.com/finqlabs/finretriever/internal/infrastructure/queue/nats"
	"github.com/finqlabs/finretriever/internal/infrastructure/repository/postgres"
	"github.com/finqlabs/finretriever/internal/infrastructure/resilience"
	"github.com/finqlabs/finretriever/internal/infrastructure/storage/localfs"
	"github.com/finqlabs/finretriever/internal/infrastructure/vector/qdrant"
	"github.com/finqlabs/finretriever/internal/observability/logging"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue    ports.MessageQueue
	Repo     ports.DocumentRepository
	Entities ports.EntityRepository

	IngestUC  *usecase.IngestDocumentUseCase
	ProcessUC *usecase.ProcessDocumentUseCase
	QuerySvc  *usecase.Orchestrator
	Refresher *usecase.IndexRefresher

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	entityRepo := postgres.NewEntityRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.NewWithExecutor(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	summarizer := ollama.NewSummarizer(ollamaClient)

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	elements := extractor.New(storage)
	chunker := chunk.NewBuilder(cfg.MaxTextTokens, cfg.MaxTableTokens)

	matcher := fuzzy.NewMatcher(cfg.SimilarityFloor)
	provider := index.NewProvider()

	classifier := usecase.NewClassifier(matcher, cfg.DefaultBlendWeight)
	structured := usecase.NewStructuredSearch(matcher, provider)
	semantic := usecase.NewSemanticSearch(embedder, vectorDB)
	merger := usecase.NewMerger(cfg.TopK)

	orchestrator := usecase.NewOrchestrator(
		classifier,
		provider,
		structured,
		semantic,
		merger,
		logger,
		time.Duration(cfg.EngineTimeoutSeconds)*time.Second,
		cfg.CandidateLimit,
	)

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(
		repo,
		entityRepo,
		elements,
		chunker,
		summarizer,
		embedder,
		vectorDB,
		logger,
	)
	refresher := usecase.NewIndexRefresher(
		entityRepo,
		provider,
		logger,
		time.Duration(cfg.IndexRefreshSeconds)*time.Second,
	)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:    queue,
		Repo:     repo,
		Entities: entityRepo,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		QuerySvc:  orchestrator,
		Refresher: refresher,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
