// Package openai provides an embedder adapter for the OpenAI
// embeddings API and compatible servers, including locally hosted
// e5-family models behind an OpenAI-style endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lectern-dev/lectern/internal/core/domain"
	"github.com/lectern-dev/lectern/internal/core/ports/driven"
)

// Ensure Embedder implements the interface.
var _ driven.Embedder = (*Embedder)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second

	// DefaultMaxTokens is the model context window used for input
	// truncation when the config does not override it.
	DefaultMaxTokens = 8191

	// DefaultRequestsPerSecond throttles API calls. Zero in the config
	// selects this; a negative config value disables throttling.
	DefaultRequestsPerSecond = 5
)

// batchSize bounds how many texts go into one API request.
const batchSize = 100

// truncationCharsPerToken converts the token window into a character
// budget. Coarse on purpose: truncation is a guard against oversized
// requests, not an exact token count.
const truncationCharsPerToken = 4

// Model dimensions for common embedding models.
var modelDimensions = map[string]int{
	"text-embedding-3-small":         1536,
	"text-embedding-3-large":         3072,
	"text-embedding-ada-002":         1536,
	"intfloat/multilingual-e5-small": 384,
	"intfloat/multilingual-e5-base":  768,
	"intfloat/multilingual-e5-large": 1024,
}

// Config holds configuration for the OpenAI-compatible embedder.
type Config struct {
	// APIKey is the API key (required for the hosted API).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Point it at a local inference server for e5-family models.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-3-small).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions overrides the default dimension for the model.
	Dimensions int

	// MaxTokens is the model's input window, used to derive the
	// character truncation limit (default: 8191).
	MaxTokens int

	// RequestsPerSecond throttles API calls. Zero selects the default;
	// a negative value disables throttling.
	RequestsPerSecond float64
}

// Embedder generates embeddings through an OpenAI-compatible API.
// e5-family models get the "passage: "/"query: " role prefixes the
// model family was trained with; other models are sent the raw text.
type Embedder struct {
	client     *http.Client
	limiter    *rate.Limiter
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	maxChars   int
	prefixed   bool
}

// embeddingRequest is the API request format.
type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// embeddingResponse is the API response format.
type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewEmbedder creates a new OpenAI-compatible embedder.
func NewEmbedder(cfg Config) (*Embedder, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.APIKey == "" && cfg.BaseURL == DefaultBaseURL {
		return nil, fmt.Errorf("%w: API key is required for the hosted API",
			domain.ErrEmbeddingProvider)
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		var ok bool
		dimensions, ok = modelDimensions[cfg.Model]
		if !ok {
			dimensions = 1536
		}
	}

	rps := cfg.RequestsPerSecond
	if rps == 0 {
		rps = DefaultRequestsPerSecond
	}
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}

	return &Embedder{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:    limiter,
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: dimensions,
		maxChars:   cfg.MaxTokens * truncationCharsPerToken,
		prefixed:   strings.Contains(strings.ToLower(cfg.Model), "e5"),
	}, nil
}

// Embed generates a single vector. Equivalent to a one-element batch.
func (e *Embedder) Embed(ctx context.Context, text string, variant driven.EmbeddingVariant) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text}, variant)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || vectors[0] == nil {
		return nil, fmt.Errorf("%w: no embedding returned", domain.ErrEmbeddingProvider)
	}
	return vectors[0], nil
}

// EmbedBatch generates one vector per input text, order-preserving.
// Inputs are split into fixed-size API batches; any batch failure is
// fatal for the whole call.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string, variant driven.EmbeddingVariant) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	prepared := make([]string, len(texts))
	for i, t := range texts {
		prepared[i] = e.prepare(t, variant)
	}

	vectors := make([][]float32, len(texts))
	for start := 0; start < len(prepared); start += batchSize {
		end := start + batchSize
		if end > len(prepared) {
			end = len(prepared)
		}
		batch, err := e.embedBatch(ctx, prepared[start:end])
		if err != nil {
			return nil, err
		}
		copy(vectors[start:], batch)
	}
	return vectors, nil
}

// prepare applies the variant's role prefix and the character
// truncation limit.
func (e *Embedder) prepare(text string, variant driven.EmbeddingVariant) string {
	if len(text) > e.maxChars {
		text = text[:e.maxChars]
	}
	if e.prefixed {
		return string(variant) + ": " + text
	}
	return text
}

// embedBatch issues one API request for up to batchSize texts.
func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	reqBody := embeddingRequest{
		Model: e.model,
		Input: texts,
	}
	// Only the hosted text-embedding-3-* models accept a dimensions
	// parameter.
	if strings.HasPrefix(e.model, "text-embedding-3-") {
		reqBody.Dimensions = e.dimensions
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		e.baseURL+"/embeddings",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var embedResp embeddingResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", domain.ErrEmbeddingProvider, err)
	}
	if embedResp.Error != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmbeddingProvider, embedResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s",
			domain.ErrEmbeddingProvider, resp.StatusCode, string(body))
	}
	if len(embedResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: requested %d embeddings, got %d",
			domain.ErrEmbeddingProvider, len(texts), len(embedResp.Data))
	}

	// Convert float64 to float32 and order by index.
	vectors := make([][]float32, len(texts))
	for _, data := range embedResp.Data {
		if data.Index < 0 || data.Index >= len(vectors) {
			return nil, fmt.Errorf("%w: embedding index %d out of range",
				domain.ErrEmbeddingProvider, data.Index)
		}
		vector := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vector[i] = float32(v)
		}
		vectors[data.Index] = vector
	}
	return vectors, nil
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the name of the embedding model being used.
func (e *Embedder) ModelName() string {
	return e.model
}
