package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/puntogafas/order-intake/internal/common"
	"github.com/puntogafas/order-intake/internal/entity"
	"github.com/puntogafas/order-intake/internal/repository"
)

type stubJobRepo struct {
	claimErr error
	claims   int
}

func (s *stubJobRepo) Enqueue(context.Context, *entity.Job) (uuid.UUID, error) {
	return uuid.Nil, errors.New("not implemented")
}

func (s *stubJobRepo) GetByID(context.Context, uuid.UUID) (*entity.Job, error) {
	return nil, common.ErrNotFound
}

func (s *stubJobRepo) ClaimOldestPending(context.Context) (*entity.Job, error) {
	s.claims++
	return nil, s.claimErr
}

func (s *stubJobRepo) MarkExtracting(context.Context, uuid.UUID) error { return nil }

func (s *stubJobRepo) Complete(context.Context, uuid.UUID, json.RawMessage, *uuid.UUID) error {
	return nil
}

func (s *stubJobRepo) Fail(context.Context, uuid.UUID, string) error { return nil }

func (s *stubJobRepo) ListCompleted(context.Context, *time.Time, *time.Time) ([]repository.CompletedJob, error) {
	return nil, nil
}

func TestRunUntilEmpty_DrainedQueue(t *testing.T) {
	repo := &stubJobRepo{}
	w := New(repo, nil, nil, common.WorkerConfig{}, nil)

	processed, err := w.RunUntilEmpty(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed != 0 {
		t.Errorf("expected 0 processed jobs, got %d", processed)
	}
	if repo.claims != 1 {
		t.Errorf("expected exactly one claim, got %d", repo.claims)
	}
}

func TestRunUntilEmpty_ClaimError(t *testing.T) {
	repo := &stubJobRepo{claimErr: errors.New("db down")}
	w := New(repo, nil, nil, common.WorkerConfig{}, nil)

	if _, err := w.RunUntilEmpty(context.Background()); err == nil {
		t.Error("expected claim error to propagate")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	repo := &stubJobRepo{}
	w := New(repo, nil, nil, common.WorkerConfig{PollInterval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
	if repo.claims == 0 {
		t.Error("expected the worker to poll at least once")
	}
}
