package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/puntogafas/order-intake/internal/common"
	"github.com/puntogafas/order-intake/internal/entity"
	"github.com/puntogafas/order-intake/internal/export"
	"github.com/puntogafas/order-intake/internal/repository"
)

type stubJobRepo struct {
	enqueued  *entity.Job
	enqueueID uuid.UUID
	byID      map[uuid.UUID]*entity.Job
}

func (s *stubJobRepo) Enqueue(_ context.Context, job *entity.Job) (uuid.UUID, error) {
	s.enqueued = job
	return s.enqueueID, nil
}

func (s *stubJobRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	if job, ok := s.byID[id]; ok {
		return job, nil
	}
	return nil, common.ErrNotFound
}

func (s *stubJobRepo) ClaimOldestPending(context.Context) (*entity.Job, error) { return nil, nil }

func (s *stubJobRepo) MarkExtracting(context.Context, uuid.UUID) error { return nil }

func (s *stubJobRepo) Complete(context.Context, uuid.UUID, json.RawMessage, *uuid.UUID) error {
	return nil
}

func (s *stubJobRepo) Fail(context.Context, uuid.UUID, string) error { return nil }

func (s *stubJobRepo) ListCompleted(context.Context, *time.Time, *time.Time) ([]repository.CompletedJob, error) {
	return nil, nil
}

func newTestServer(repo *stubJobRepo) *Server {
	return New(nil, repo, export.NewService(repo, nil), nil)
}

func TestCreateJob(t *testing.T) {
	repo := &stubJobRepo{enqueueID: uuid.New()}
	srv := newTestServer(repo)

	body := `{
		"conversation_id": "conv-1",
		"customer_id": "cust-1",
		"sede_id": "sede-1",
		"requested_by": "advisor-1",
		"payload": {
			"conversation_id": "conv-1",
			"messages": [{"role": "user", "content": "quiero lentes"}]
		}
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if repo.enqueued == nil || repo.enqueued.CustomerID != "cust-1" {
		t.Errorf("job not enqueued correctly: %+v", repo.enqueued)
	}
	if len(repo.enqueued.Payload.Messages) != 1 {
		t.Errorf("payload messages not carried: %+v", repo.enqueued.Payload)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp["job_id"] != repo.enqueueID.String() || resp["status"] != "pending" {
		t.Errorf("unexpected response: %v", resp)
	}
}

func TestCreateJob_MissingCustomer(t *testing.T) {
	srv := newTestServer(&stubJobRepo{})

	body := `{"payload": {"messages": []}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without customer_id, got %d", w.Code)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	srv := newTestServer(&stubJobRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/"+uuid.NewString(), nil)
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestGetJob_BadID(t *testing.T) {
	srv := newTestServer(&stubJobRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/not-a-uuid", nil)
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestGetJob_Found(t *testing.T) {
	id := uuid.New()
	repo := &stubJobRepo{byID: map[uuid.UUID]*entity.Job{
		id: {ID: id, CustomerID: "cust-1"},
	}}
	srv := newTestServer(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/"+id.String(), nil)
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var job entity.Job
	if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if job.ID != id {
		t.Errorf("expected job %s, got %s", id, job.ID)
	}
}

func TestExportOrders_BadDate(t *testing.T) {
	srv := newTestServer(&stubJobRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/exports/orders.xlsx?from=ayer", nil)
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad date, got %d", w.Code)
	}
}

func TestExportOrders_OK(t *testing.T) {
	srv := newTestServer(&stubJobRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/exports/orders.xlsx?from=2026-03-01&to=2026-03-31", nil)
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("unexpected content type %q", ct)
	}
	if w.Body.Len() == 0 {
		t.Error("expected workbook bytes")
	}
}
