// Package openai provides a text encoder backed by an OpenAI-compatible
// embeddings API (OpenAI, Nebius, vLLM and friends).
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/brightbasket/reko/internal/domain"
	"github.com/brightbasket/reko/internal/metrics"
)

// Encoder implements domain.TextEncoder over the embeddings endpoint.
// Returned vectors are unit-norm.
type Encoder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	provider   string
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Provider   string
	Logger     *zap.Logger
}

// NewEncoder creates an OpenAI-compatible text encoder.
func NewEncoder(cfg *Config) *Encoder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Encoder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   cfg.Provider,
		logger:     cfg.Logger,
	}
}

// EncodeText embeds a batch of texts in a single API call and normalizes
// each vector.
func (e *Encoder) EncodeText(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.EncoderRequestsTotal.WithLabelValues(e.provider, "text", "error").Inc()
		metrics.EncoderErrorsTotal.WithLabelValues(e.provider, "text", "api_error").Inc()
		return nil, parseAPIError(err)
	}

	if len(resp.Data) != len(texts) {
		metrics.EncoderRequestsTotal.WithLabelValues(e.provider, "text", "error").Inc()
		metrics.EncoderErrorsTotal.WithLabelValues(e.provider, "text", "short_response").Inc()
		return nil, fmt.Errorf("got %d embeddings for %d inputs: %w",
			len(resp.Data), len(texts), domain.ErrEncoderError)
	}

	metrics.EncoderRequestsTotal.WithLabelValues(e.provider, "text", "success").Inc()
	metrics.EncoderRequestDuration.WithLabelValues(e.provider, "text").Observe(duration.Seconds())

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range: %w", d.Index, domain.ErrEncoderError)
		}
		out[d.Index] = domain.Normalize(d.Embedding)
	}
	return out, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Encoder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrEncoderError for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrEncoderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("embedding API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("embedding request failed: %w", wrap)
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
