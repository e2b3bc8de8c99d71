package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/google/uuid"

	"github.com/puntogafas/order-intake/internal/catalog"
	"github.com/puntogafas/order-intake/internal/common"
	"github.com/puntogafas/order-intake/internal/entity"
	"github.com/puntogafas/order-intake/internal/llm"
	"github.com/puntogafas/order-intake/internal/llm/gemini"
	"github.com/puntogafas/order-intake/internal/pipeline"
	"github.com/puntogafas/order-intake/internal/repository"
)

// orderpipe runs the extraction pipeline once against a payload file and
// prints the resulting draft as JSON. Nothing is persisted; it is a debugging
// tool for prompt and matching changes.
func main() {
	payloadPath := flag.String("payload", "", "path to a job payload JSON file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if *payloadPath == "" {
		logger.Error("missing -payload flag")
		os.Exit(2)
	}

	raw, err := os.ReadFile(*payloadPath)
	if err != nil {
		logger.Error("payload.read_failed", "path", *payloadPath, "error", err)
		os.Exit(2)
	}
	var payload entity.JobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		logger.Error("payload.decode_failed", "path", *payloadPath, "error", err)
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("config.invalid", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
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

	customerID := ""
	if payload.Customer != nil {
		customerID = payload.Customer.ID
	}
	job := &entity.Job{
		ID:             uuid.New(),
		ConversationID: payload.ConversationID,
		CustomerID:     customerID,
		SedeID:         payload.SedeID,
		Payload:        payload,
	}

	draft := pl.Run(ctx, job)

	out, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		logger.Error("draft.encode_failed", "error", err)
		os.Exit(1)
	}
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))
}
