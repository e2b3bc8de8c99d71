package llm

import (
	"context"
	"strings"
)

// ImageInput is a downloaded image handed to the extractor.
type ImageInput struct {
	Bytes    []byte
	MimeType string
}

// Extractor is the structured-extraction interface the pipeline depends on.
// Both methods expect the model to answer with a single JSON object; the
// implementation owns retry/backoff and code-fence stripping, and returns
// the decoded object plus the raw JSON it decoded.
//
// Malformed responses and exhausted retries surface as errors; callers
// degrade them to placeholders, never propagate them.
type Extractor interface {
	// ExtractFromImage classifies and extracts one image.
	ExtractFromImage(ctx context.Context, prompt string, img ImageInput) (map[string]any, []byte, error)

	// ExtractFromText analyzes an assembled conversation context.
	ExtractFromText(ctx context.Context, prompt, context string) (map[string]any, []byte, error)
}

// GuessMimeType derives an image MIME type from a URL, defaulting to JPEG.
func GuessMimeType(url string) string {
	lower := strings.ToLower(url)
	if i := strings.IndexByte(lower, '?'); i >= 0 {
		lower = lower[:i]
	}
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
