// Package clip provides text and image encoders backed by a CLIP-style
// embedding service speaking JSON over HTTP. Text and image embeddings
// share one vector space, which is what lets image queries search a
// text-embedded catalog.
package clip

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/brightbasket/reko/internal/domain"
	"github.com/brightbasket/reko/internal/metrics"
)

const defaultTimeout = 30 * time.Second

// Encoder implements domain.TextEncoder and domain.ImageEncoder against
// a CLIP embedding service. Returned vectors are unit-norm.
type Encoder struct {
	baseURL  string
	client   *http.Client
	provider string
	logger   *zap.Logger
}

// Config holds the CLIP service settings.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Provider string
	Logger   *zap.Logger
}

// NewEncoder creates a CLIP service client.
func NewEncoder(cfg *Config) *Encoder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "clip"
	}
	return &Encoder{
		baseURL:  cfg.BaseURL,
		client:   &http.Client{Timeout: timeout},
		provider: provider,
		logger:   cfg.Logger,
	}
}

type textRequest struct {
	Texts []string `json:"texts"`
}

type textResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type imageRequest struct {
	ImageB64 string `json:"image_b64"`
}

type imageResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EncodeText embeds a batch of texts in a single call.
func (e *Encoder) EncodeText(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp textResponse
	if err := e.post(ctx, "text", "/encode/text", textRequest{Texts: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		metrics.EncoderErrorsTotal.WithLabelValues(e.provider, "text", "short_response").Inc()
		return nil, fmt.Errorf("got %d embeddings for %d inputs: %w",
			len(resp.Embeddings), len(texts), domain.ErrEncoderError)
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, v := range resp.Embeddings {
		out[i] = domain.Normalize(v)
	}
	return out, nil
}

// EncodeImage embeds one image supplied as raw bytes.
func (e *Encoder) EncodeImage(ctx context.Context, image []byte) ([]float32, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("empty image payload: %w", domain.ErrInvalidImage)
	}

	req := imageRequest{ImageB64: base64.StdEncoding.EncodeToString(image)}
	var resp imageResponse
	if err := e.post(ctx, "image", "/encode/image", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		metrics.EncoderErrorsTotal.WithLabelValues(e.provider, "image", "empty_response").Inc()
		return nil, fmt.Errorf("empty image embedding: %w", domain.ErrEncoderError)
	}
	return domain.Normalize(resp.Embedding), nil
}

// HealthCheck probes the service health endpoint.
func (e *Encoder) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("clip health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("clip health: status %d", resp.StatusCode)
	}
	return nil
}

func (e *Encoder) post(ctx context.Context, modality, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := e.client.Do(req)
	duration := time.Since(start)

	if err != nil {
		metrics.EncoderRequestsTotal.WithLabelValues(e.provider, modality, "error").Inc()
		metrics.EncoderErrorsTotal.WithLabelValues(e.provider, modality, "transport").Inc()
		return fmt.Errorf("clip request failed: %w", domain.ErrEncoderError)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.EncoderRequestsTotal.WithLabelValues(e.provider, modality, "error").Inc()
		metrics.EncoderErrorsTotal.WithLabelValues(e.provider, modality, "api_error").Inc()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("clip service error %d: %s: %w",
			resp.StatusCode, bytes.TrimSpace(detail), domain.ErrEncoderError)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.EncoderRequestsTotal.WithLabelValues(e.provider, modality, "error").Inc()
		metrics.EncoderErrorsTotal.WithLabelValues(e.provider, modality, "bad_response").Inc()
		return fmt.Errorf("decode clip response: %w", domain.ErrEncoderError)
	}

	metrics.EncoderRequestsTotal.WithLabelValues(e.provider, modality, "success").Inc()
	metrics.EncoderRequestDuration.WithLabelValues(e.provider, modality).Observe(duration.Seconds())
	return nil
}
