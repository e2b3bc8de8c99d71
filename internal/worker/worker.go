package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/puntogafas/order-intake/internal/common"
	"github.com/puntogafas/order-intake/internal/entity"
	"github.com/puntogafas/order-intake/internal/pipeline"
	"github.com/puntogafas/order-intake/internal/repository"
)

// Worker polls ai_order_jobs for pending work and runs the pipeline, one
// job at a time. Shutdown is cooperative: the current job finishes, then
// the loop exits.
type Worker struct {
	Jobs     repository.JobRepository
	Writer   *repository.OrderWriter
	Pipeline *pipeline.Pipeline
	Cfg      common.WorkerConfig
	Logger   *slog.Logger
}

func New(jobs repository.JobRepository, writer *repository.OrderWriter, pl *pipeline.Pipeline, cfg common.WorkerConfig, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{Jobs: jobs, Writer: writer, Pipeline: pl, Cfg: cfg, Logger: logger}
}

// Run polls until the context is canceled.
func (w *Worker) Run(ctx context.Context) {
	w.Logger.Info("worker started",
		"poll_interval", w.Cfg.PollInterval, "job_timeout", w.Cfg.JobTimeout)

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("worker shutdown complete")
			return
		default:
		}

		job, err := w.Jobs.ClaimOldestPending(ctx)
		if err != nil {
			w.Logger.Error("worker claim error", "error", err)
			w.sleep(ctx)
			continue
		}
		if job == nil {
			w.sleep(ctx)
			continue
		}

		w.processJob(ctx, job)
	}
}

func (w *Worker) processJob(ctx context.Context, job *entity.Job) {
	w.Logger.Info("processing job", "job_id", job.ID, "conversation_id", job.ConversationID)

	// Non-critical status bump; the pipeline runs regardless.
	_ = w.Jobs.MarkExtracting(ctx, job.ID)

	jobCtx := ctx
	if w.Cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.Cfg.JobTimeout)
		defer cancel()
	}
	jobCtx = common.WithJobID(jobCtx, job.ID.String())

	draft := w.Pipeline.Run(jobCtx, job)

	// Persistence uses the parent context: an expired job budget must not
	// prevent writing the result we already have.
	orderID := w.Writer.PersistDraft(ctx, job, &draft)
	if orderID != nil {
		w.Logger.Info("job completed", "job_id", job.ID, "order_id", *orderID)
	} else {
		w.Logger.Warn("job finished but order creation failed", "job_id", job.ID)
	}
}

func (w *Worker) sleep(ctx context.Context) {
	timer := time.NewTimer(w.Cfg.PollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// RunUntilEmpty processes pending jobs until the queue drains. Used by the
// one-shot command.
func (w *Worker) RunUntilEmpty(ctx context.Context) (int, error) {
	processed := 0
	for {
		job, err := w.Jobs.ClaimOldestPending(ctx)
		if err != nil {
			return processed, fmt.Errorf("claim job: %w", err)
		}
		if job == nil {
			return processed, nil
		}
		w.processJob(ctx, job)
		processed++
	}
}
