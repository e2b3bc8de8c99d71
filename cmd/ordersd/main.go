package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/puntogafas/order-intake/internal/common"
	"github.com/puntogafas/order-intake/internal/export"
	"github.com/puntogafas/order-intake/internal/repository"
	"github.com/puntogafas/order-intake/internal/server"
)

func main() {
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

	jobs := repository.NewJobRepository(pool, logger)
	exportSvc := export.NewService(jobs, logger)

	srv := server.New(pool, jobs, exportSvc, logger)
	logger.Info("server.starting", "addr", cfg.Server.HTTPAddr)
	if err := srv.Run(ctx, cfg.Server.HTTPAddr); err != nil {
		logger.Error("server.run_failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server.stopped")
}
