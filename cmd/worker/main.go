package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/peekwez/docai/internal/common"
	"github.com/peekwez/docai/internal/llm"
	"github.com/peekwez/docai/internal/llm/openai"
	"github.com/peekwez/docai/internal/pipeline"
	"github.com/peekwez/docai/internal/queue"
	"github.com/peekwez/docai/internal/repository"
	"github.com/peekwez/docai/internal/schemasvc"
	"github.com/peekwez/docai/internal/stage"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		os.Exit(1)
	}
	defer pool.Close()

	if err := repository.HealthCheck(ctx, pool, 5*time.Second); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	gcs, err := storage.NewClient(ctx)
	if err != nil {
		logger.Error("failed to create storage client", "error", err)
		os.Exit(1)
	}
	defer gcs.Close()

	stager := stage.NewStager(
		stage.NewGCSStore(gcs, cfg.Storage.Bucket),
		cfg.Storage.PresignTTL,
		cfg.Storage.StageConcurrency,
		logger,
	)

	tokens, err := llm.NewTokenCounter()
	if err != nil {
		logger.Error("failed to load token encoding", "error", err)
		os.Exit(1)
	}

	chat := openai.NewClient(openai.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	}, logger)
	extractor := llm.NewSchemaExtractor(chat, cfg.LLM.MaxAttempts, logger)

	schemaRepo := repository.NewSchemaRepository(pool, logger)
	schemas := schemasvc.NewService(schemaRepo, tokens, 0, logger)

	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}

	qc := queue.NewClient(
		redisOpt,
		queue.Options{MaxRetry: 5, Timeout: cfg.Worker.TaskTimeout, Retention: cfg.Worker.Retention},
		logger,
	)
	defer qc.Close()

	orchestrator := pipeline.NewOrchestrator(
		logger,
		schemas,
		repository.NewResultRepository(pool, logger),
		repository.NewMonitorRepository(pool, logger),
		stager,
		extractor,
		qc,
		pipeline.Models{Text: cfg.LLM.TextModel, Vision: cfg.LLM.VisionModel},
	)

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
	})

	mux := asynq.NewServeMux()
	queue.NewWorker(orchestrator, logger).Register(mux)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("worker starting", "concurrency", cfg.Worker.Concurrency, "redis", cfg.Redis.Addr)
		errCh <- srv.Run(mux)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		srv.Shutdown()
	case err := <-errCh:
		if err != nil {
			logger.Error("worker failed", "error", err)
			os.Exit(1)
		}
	}
	logger.Info("worker stopped")
}
