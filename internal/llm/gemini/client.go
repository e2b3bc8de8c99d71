package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/puntogafas/order-intake/internal/llm"
)

// Client implements llm.Extractor against the Gemini generateContent API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger,
	}
}

// request/response wire types for generateContent.

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// ExtractFromImage sends raw image bytes plus the instruction prompt and
// expects a single JSON object back.
func (c *Client) ExtractFromImage(ctx context.Context, prompt string, img llm.ImageInput) (map[string]any, []byte, error) {
	req := generateRequest{
		Contents: []content{{Parts: []part{
			{InlineData: &inlineData{
				MimeType: img.MimeType,
				Data:     base64.StdEncoding.EncodeToString(img.Bytes),
			}},
			{Text: prompt},
		}}},
		GenerationConfig: generationConfig{
			Temperature:     c.cfg.Temperature,
			MaxOutputTokens: c.cfg.MaxOutputTokens,
		},
	}
	return c.generateJSON(ctx, req, "image")
}

// ExtractFromText sends the instruction prompt plus an assembled text
// context and expects a single JSON object back.
func (c *Client) ExtractFromText(ctx context.Context, prompt, textContext string) (map[string]any, []byte, error) {
	req := generateRequest{
		Contents: []content{{Parts: []part{
			{Text: prompt},
			{Text: "\n\n--- DATOS A ANALIZAR ---\n\n" + textContext},
		}}},
		GenerationConfig: generationConfig{
			// Conversation analysis runs slightly warmer than vision.
			Temperature:     c.cfg.Temperature + 0.1,
			MaxOutputTokens: c.cfg.MaxOutputTokens,
		},
	}
	return c.generateJSON(ctx, req, "text")
}

// generateJSON runs the bounded retry loop around one generateContent
// call. Transient failures (429, 5xx, timeouts) back off before retrying;
// malformed JSON retries immediately. Both count against the attempt cap.
func (c *Client) generateJSON(ctx context.Context, req generateRequest, kind string) (map[string]any, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	headers := map[string]string{"x-goog-api-key": c.cfg.APIKey}

	var lastErr error
	for attempt := 0; attempt < c.cfg.Retry.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}

		raw, _, err := llm.SendJSON(ctx, c.httpClient, endpoint, req, headers, c.log)
		if err != nil {
			lastErr = err
			if !llm.IsRetryable(err) {
				c.log.Error("gemini.call_error",
					"req_id", rid, "kind", kind, "attempt", attempt+1, "error", err)
				continue
			}
			c.log.Warn("gemini.rate_limited",
				"req_id", rid, "kind", kind, "attempt", attempt+1,
				"delay", c.cfg.Retry.Delay(attempt).String())
			if sleepErr := c.cfg.Retry.Sleep(ctx, attempt); sleepErr != nil {
				return nil, nil, sleepErr
			}
			continue
		}

		obj, objRaw, parseErr := decodeJSONObject(raw)
		if parseErr != nil {
			lastErr = parseErr
			c.log.Warn("gemini.invalid_json",
				"req_id", rid, "kind", kind, "attempt", attempt+1, "error", parseErr)
			continue
		}

		c.log.Info("gemini.extract.ok",
			"req_id", rid, "kind", kind, "attempt", attempt+1,
			"elapsed_ms", time.Since(start).Milliseconds())
		return obj, objRaw, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("gemini: no response")
	}
	return nil, nil, fmt.Errorf("gemini %s extraction failed after %d attempts: %w",
		kind, c.cfg.Retry.MaxAttempts, lastErr)
}

// decodeJSONObject unwraps the candidate text and decodes it as one JSON
// object, tolerating markdown code fences.
func decodeJSONObject(raw []byte) (map[string]any, []byte, error) {
	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, nil, fmt.Errorf("decode gemini envelope: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, nil, fmt.Errorf("gemini response has no candidates")
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := llm.StripCodeFences(b.String())

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, nil, fmt.Errorf("decode model json: %w", err)
	}
	return obj, []byte(text), nil
}
