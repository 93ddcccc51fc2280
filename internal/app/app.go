// Package app wires configuration, storage, the ingestion pipeline and the
// chat service into a running HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/docqa/server/internal/config"
	"github.com/docqa/server/internal/core/chat"
	db "github.com/docqa/server/internal/core/database"
	"github.com/docqa/server/internal/core/ingest"
	"github.com/docqa/server/internal/core/llm"
	"github.com/docqa/server/internal/core/vectorstore"
)

type App struct {
	Config   *config.Config
	DB       *db.DatabaseClient
	Pipeline *ingest.Pipeline
	Chat     *chat.Service
	Server   *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	dbClient, err := db.NewDatabaseClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
		dbClient.Close()
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	factory := llm.NewFactory(dbClient, cfg)
	vectors := vectorstore.NewPgVectorStore(dbClient.DB(), factory)

	tracker := ingest.NewTracker()
	pipeline := ingest.NewPipeline(
		ingest.NewLoader(cfg.StorageDir),
		ingest.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		vectors,
		tracker,
		cfg.BatchSize,
	)
	pipeline.OnCompleted = func(ctx context.Context) {
		if err := dbClient.MarkAllDocumentsVectorized(ctx); err != nil {
			slog.Error("mark documents vectorized failed", "error", err)
		}
	}

	chatSvc := chat.NewService(dbClient, vectors, factory)

	a := &App{
		Config:   cfg,
		DB:       dbClient,
		Pipeline: pipeline,
		Chat:     chatSvc,
	}
	a.Server = NewServer(cfg, dbClient, pipeline, chatSvc)
	return a, nil
}

func (a *App) Close() {
	if err := a.DB.Close(); err != nil {
		slog.Error("close database failed", "error", err)
	}
}
