package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/puntogafas/order-intake/constants"
	"github.com/puntogafas/order-intake/internal/common"
	"github.com/puntogafas/order-intake/internal/entity"
)

// JobRepository manages the ai_order_jobs lifecycle.
type JobRepository interface {
	Enqueue(ctx context.Context, job *entity.Job) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	// ClaimOldestPending atomically moves the oldest pending job to
	// processing and returns it. Returns (nil, nil) when no work exists.
	ClaimOldestPending(ctx context.Context) (*entity.Job, error)
	MarkExtracting(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, result json.RawMessage, orderID *uuid.UUID) error
	Fail(ctx context.Context, id uuid.UUID, errorMessage string) error
	// ListCompleted returns completed jobs with their stored drafts,
	// newest first, optionally bounded by completion time.
	ListCompleted(ctx context.Context, from, to *time.Time) ([]CompletedJob, error)
}

// CompletedJob is a completed job row with its decoded draft.
type CompletedJob struct {
	Job   entity.Job
	Draft entity.OrderDraft
}

type jobRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewJobRepository(pool *pgxpool.Pool, logger *slog.Logger) JobRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &jobRepo{pool: pool, log: logger}
}

func (r *jobRepo) Enqueue(ctx context.Context, job *entity.Job) (uuid.UUID, error) {
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return uuid.Nil, common.WrapError(err, "encode job payload")
	}

	var id uuid.UUID
	err = r.pool.QueryRow(ctx, `
		INSERT INTO ai_order_jobs (conversation_id, customer_id, sede_id, requested_by, status, payload)
		VALUES (NULLIF($1, '')::uuid, $2::uuid, NULLIF($3, '')::uuid, NULLIF($4, '')::uuid, $5, $6)
		RETURNING id`,
		job.ConversationID, job.CustomerID, job.SedeID, job.RequestedBy,
		string(constants.JobStatusPending), payload,
	).Scan(&id)
	if err != nil {
		r.log.Error("job enqueue failed", "customer_id", job.CustomerID, "error", err)
		return uuid.Nil, common.WrapError(err, "insert job")
	}
	r.log.Info("job enqueued", "job_id", id, "customer_id", job.CustomerID)
	return id, nil
}

const jobColumns = `
	id, COALESCE(conversation_id::text, ''), customer_id::text,
	COALESCE(sede_id::text, ''), COALESCE(requested_by::text, ''),
	status, payload, order_id, COALESCE(error_message, ''),
	processing_started_at, completed_at, created_at`

func (r *jobRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM ai_order_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return job, err
}

func (r *jobRepo) ClaimOldestPending(ctx context.Context) (*entity.Job, error) {
	// The status guard in the UPDATE makes the claim atomic against
	// concurrent workers.
	row := r.pool.QueryRow(ctx, `
		UPDATE ai_order_jobs
		SET status = $1, processing_started_at = $2
		WHERE id = (
			SELECT id FROM ai_order_jobs
			WHERE status = $3
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+jobColumns,
		string(constants.JobStatusProcessing), time.Now().UTC(),
		string(constants.JobStatusPending))

	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("job claim failed", "error", err)
		return nil, err
	}
	r.log.Info("job claimed", "job_id", job.ID, "conversation_id", job.ConversationID)
	return job, nil
}

func (r *jobRepo) MarkExtracting(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE ai_order_jobs SET status = $1 WHERE id = $2`,
		string(constants.JobStatusExtracting), id)
	if err != nil {
		r.log.Warn("job mark extracting failed", "job_id", id, "error", err)
	}
	return err
}

func (r *jobRepo) Complete(ctx context.Context, id uuid.UUID, result json.RawMessage, orderID *uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ai_order_jobs
		SET status = $1, result = $2, order_id = $3, completed_at = $4
		WHERE id = $5`,
		string(constants.JobStatusCompleted), result, orderID, time.Now().UTC(), id)
	if err != nil {
		r.log.Error("job complete failed", "job_id", id, "error", err)
		return err
	}
	r.log.Info("job completed", "job_id", id, "order_id", orderID)
	return nil
}

func (r *jobRepo) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ai_order_jobs
		SET status = $1, error_message = $2, completed_at = $3
		WHERE id = $4`,
		string(constants.JobStatusFailed), errorMessage, time.Now().UTC(), id)
	if err != nil {
		r.log.Error("job fail-mark failed", "job_id", id, "error", err)
		return err
	}
	r.log.Warn("job failed", "job_id", id, "error_message", errorMessage)
	return nil
}

func (r *jobRepo) ListCompleted(ctx context.Context, from, to *time.Time) ([]CompletedJob, error) {
	query := `
		SELECT ` + jobColumns + `, result
		FROM ai_order_jobs
		WHERE status = $1 AND result IS NOT NULL`
	args := []any{string(constants.JobStatusCompleted)}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND completed_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND completed_at <= $%d", len(args))
	}
	query += " ORDER BY completed_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("completed jobs query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []CompletedJob
	for rows.Next() {
		var (
			job     entity.Job
			status  string
			payload []byte
			result  []byte
		)
		if err := rows.Scan(
			&job.ID, &job.ConversationID, &job.CustomerID,
			&job.SedeID, &job.RequestedBy,
			&status, &payload, &job.OrderID, &job.ErrorMessage,
			&job.ProcessingStartedAt, &job.CompletedAt, &job.CreatedAt,
			&result,
		); err != nil {
			return nil, err
		}
		job.Status = constants.JobStatus(status)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &job.Payload); err != nil {
				r.log.Warn("skipping job with bad payload", "job_id", job.ID, "error", err)
				continue
			}
		}
		var draft entity.OrderDraft
		if err := json.Unmarshal(result, &draft); err != nil {
			r.log.Warn("skipping job with bad result", "job_id", job.ID, "error", err)
			continue
		}
		out = append(out, CompletedJob{Job: job, Draft: draft})
	}
	return out, rows.Err()
}

func scanJob(row pgx.Row) (*entity.Job, error) {
	var (
		job     entity.Job
		status  string
		payload []byte
	)
	if err := row.Scan(
		&job.ID, &job.ConversationID, &job.CustomerID,
		&job.SedeID, &job.RequestedBy,
		&status, &payload, &job.OrderID, &job.ErrorMessage,
		&job.ProcessingStartedAt, &job.CompletedAt, &job.CreatedAt,
	); err != nil {
		return nil, err
	}
	job.Status = constants.JobStatus(status)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &job.Payload); err != nil {
			return nil, common.WrapError(err, "decode job payload")
		}
	}
	return &job, nil
}
