package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/finqlabs/finretriever/internal/adapters/http"
	"github.com/finqlabs/finretriever/internal/bootstrap"
	"github.com/finqlabs/finretriever/internal/config"
	"github.com/finqlabs/finretriever/internal/core/domain"
	"github.com/finqlabs/finretriever/internal/observability/metrics"
)

const serviceName = "finretriever-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, serviceName)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	serverMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app.QuerySvc.SetEngineObserver(func(engine domain.Engine, elapsed time.Duration, err error) {
		serverMetrics.ObserveEngineDuration(serviceName, string(engine), elapsed)
		if err != nil {
			serverMetrics.RecordEngineFailure(serviceName, string(engine))
		}
	})
	app.Refresher.SetSnapshotObserver(serverMetrics.SetIndexEntities)

	// Keeps the structured index current as the worker ingests documents.
	go app.Refresher.Run(ctx)

	router := httpadapter.NewRouter(app.IngestUC, app.QuerySvc, app.Repo, cfg, serverMetrics).Handler()
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		app.Logger.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("api_shutdown_error", "error", err)
	}
}
