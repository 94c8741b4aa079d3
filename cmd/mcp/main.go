package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/finqlabs/finretriever/internal/adapters/mcp"
	"github.com/finqlabs/finretriever/internal/bootstrap"
	"github.com/finqlabs/finretriever/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "finretriever-mcp")
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	go app.Refresher.Run(ctx)

	app.Logger.Info("mcp_serving_stdio")
	if err := mcpadapter.NewServer(app.QuerySvc, app.Repo).ServeStdio(); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
