// Package ollama provides a quiz model adapter using a local Ollama
// server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lectern-dev/lectern/internal/adapters/driven/llm"
	"github.com/lectern-dev/lectern/internal/core/domain"
	"github.com/lectern-dev/lectern/internal/core/ports/driven"
)

// Ensure QuizModel implements the interface.
var _ driven.QuizModel = (*QuizModel)(nil)

// Default configuration values.
const (
	DefaultBaseURL     = "http://localhost:11434"
	DefaultModel       = "llama3.2"
	DefaultTimeout     = 120 * time.Second
	DefaultTemperature = 0.7
)

// Config holds configuration for the Ollama quiz model.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// Temperature controls sampling randomness (default: 0.7).
	Temperature float64
}

// QuizModel generates quiz questions using the Ollama generate API.
type QuizModel struct {
	client      *http.Client
	baseURL     string
	model       string
	temperature float64
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	Temperature float64 `json:"temperature,omitempty"`
}

// generateResponse is the Ollama /api/generate response format.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewQuizModel creates a new Ollama quiz model.
func NewQuizModel(cfg Config) *QuizModel {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}

	return &QuizModel{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

// GenerateQuestions produces count questions of the given type from the
// context block. Output is validated at the boundary; elements that
// fail validation come back as domain.UnparsedQuestion.
func (m *QuizModel) GenerateQuestions(ctx context.Context, contextBlock string, quizType domain.QuizType, count int) ([]domain.Question, error) {
	reqBody := generateRequest{
		Model:  m.model,
		Prompt: llm.BuildPrompt(contextBlock, quizType, count),
		Stream: false,
		Options: &options{
			Temperature: m.temperature,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		m.baseURL+"/api/generate",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQuizModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: status %d", domain.ErrQuizModelUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: status %d: %s",
			domain.ErrQuizModelUnavailable, resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", domain.ErrQuizModelUnavailable, err)
	}

	return llm.ParseResponse(genResp.Response)
}

// ModelName returns the name of the model being used.
func (m *QuizModel) ModelName() string {
	return m.model
}

// Close releases resources.
func (m *QuizModel) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
