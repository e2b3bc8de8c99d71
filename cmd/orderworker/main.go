package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/puntogafas/order-intake/internal/catalog"
	"github.com/puntogafas/order-intake/internal/common"
	"github.com/puntogafas/order-intake/internal/llm"
	"github.com/puntogafas/order-intake/internal/llm/gemini"
	"github.com/puntogafas/order-intake/internal/pipeline"
	"github.com/puntogafas/order-intake/internal/repository"
	"github.com/puntogafas/order-intake/internal/worker"
)

func main() {
	once := flag.Bool("once", false, "drain the pending queue and exit")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("config.invalid", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("db.open_failed", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	extractor := gemini.NewClient(gemini.Config{
		APIKey:          cfg.Gemini.APIKey,
		Model:           cfg.Gemini.Model,
		BaseURL:         cfg.Gemini.BaseURL,
		Timeout:         cfg.Gemini.Timeout,
		Temperature:     cfg.Gemini.Temperature,
		MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
		Retry: llm.RetryPolicy{
			MaxAttempts: cfg.Gemini.MaxAttempts,
			BaseDelay:   cfg.Gemini.RetryBaseDelay,
			MaxDelay:    cfg.Gemini.RetryMaxDelay,
		},
	}, logger)

	search := catalog.NewSearch(
		repository.NewLensCatalogRepo(pool, logger),
		repository.NewProductRepo(pool, logger),
		logger,
	)

	pl := pipeline.NewPipeline(
		pipeline.NewVisionStage(extractor, http.DefaultClient, logger),
		pipeline.NewConversationStage(extractor, logger),
		pipeline.NewMatcherStage(search, logger),
		pipeline.NewAssemblerStage(cfg.Gemini.Model, logger),
		logger,
	)

	jobs := repository.NewJobRepository(pool, logger)
	writer := repository.NewOrderWriter(pool, jobs, logger)

	w := worker.New(jobs, writer, pl, cfg.Worker, logger)
	if *once {
		processed, err := w.RunUntilEmpty(ctx)
		if err != nil {
			logger.Error("worker.drain_failed", "processed", processed, "error", err)
			os.Exit(1)
		}
		logger.Info("worker.drained", "processed", processed)
		return
	}

	logger.Info("worker.starting", "poll_interval", cfg.Worker.PollInterval.String(), "job_timeout", cfg.Worker.JobTimeout.String())
	w.Run(ctx)
	logger.Info("worker.stopped")
}
