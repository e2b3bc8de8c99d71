package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/puntogafas/order-intake/internal/llm"
)

func candidateBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{
				map[string]any{"text": text},
			}}},
		},
	})
	return string(b)
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Retry:   llm.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}, nil)
}

func TestExtractFromText_OK(t *testing.T) {
	var gotPath, gotKey string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		fmt.Fprint(w, candidateBody(`{"items_requested":[],"urgency":"normal"}`))
	})

	obj, raw, err := c.ExtractFromText(context.Background(), "prompt", "contexto")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if obj["urgency"] != "normal" {
		t.Errorf("unexpected object: %v", obj)
	}
	if !json.Valid(raw) {
		t.Error("raw output should be valid JSON")
	}
	if !strings.Contains(gotPath, "gemini-2.0-flash:generateContent") {
		t.Errorf("unexpected endpoint path %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("API key header missing, got %q", gotKey)
	}
}

func TestExtractFromText_StripsCodeFences(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, candidateBody("```json\n{\"urgency\":\"urgente\"}\n```"))
	})

	obj, _, err := c.ExtractFromText(context.Background(), "prompt", "contexto")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if obj["urgency"] != "urgente" {
		t.Errorf("fenced JSON not decoded: %v", obj)
	}
}

func TestExtractFromText_RetriesOn429(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, candidateBody(`{"ok":true}`))
	})

	obj, _, err := c.ExtractFromText(context.Background(), "prompt", "contexto")
	if err != nil {
		t.Fatalf("expected recovery after 429, got %v", err)
	}
	if obj["ok"] != true {
		t.Errorf("unexpected object: %v", obj)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestExtractFromText_ExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, _, err := c.ExtractFromText(context.Background(), "prompt", "contexto")
	if err == nil {
		t.Fatal("expected failure after exhausting retries")
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExtractFromImage_InvalidJSONRetried(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			fmt.Fprint(w, candidateBody("esto no es JSON"))
			return
		}
		fmt.Fprint(w, candidateBody(`{"image_type":"frame"}`))
	})

	obj, _, err := c.ExtractFromImage(context.Background(), "prompt", llm.ImageInput{
		Bytes: []byte{0xFF, 0xD8}, MimeType: "image/jpeg",
	})
	if err != nil {
		t.Fatalf("expected recovery after bad JSON, got %v", err)
	}
	if obj["image_type"] != "frame" {
		t.Errorf("unexpected object: %v", obj)
	}
}

func TestDecodeJSONObject_NoCandidates(t *testing.T) {
	if _, _, err := decodeJSONObject([]byte(`{"candidates":[]}`)); err == nil {
		t.Error("expected error for empty candidates")
	}
}
