// Package anthropic provides a quiz model adapter using the Anthropic
// API.
package anthropic

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
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 4096

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic quiz model.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the model to use (default: claude-3-5-sonnet-latest).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// MaxTokens caps the response length (default: 4096).
	MaxTokens int
}

// QuizModel generates quiz questions using the Anthropic messages API.
type QuizModel struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model     string            `json:"model"`
	Messages  []messagesMessage `json:"messages"`
	MaxTokens int               `json:"max_tokens"`
}

// messagesMessage is the Anthropic message format.
type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewQuizModel creates a new Anthropic quiz model.
func NewQuizModel(cfg Config) (*QuizModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key is required", domain.ErrQuizModelUnavailable)
	}
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

	return &QuizModel{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// GenerateQuestions produces count questions of the given type from the
// context block. Output is validated at the boundary; elements that
// fail validation come back as domain.UnparsedQuestion.
func (m *QuizModel) GenerateQuestions(ctx context.Context, contextBlock string, quizType domain.QuizType, count int) ([]domain.Question, error) {
	reqBody := messagesRequest{
		Model: m.model,
		Messages: []messagesMessage{
			{Role: "user", Content: llm.BuildPrompt(contextBlock, quizType, count)},
		},
		MaxTokens: m.maxTokens,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		m.baseURL+"/v1/messages",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", m.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQuizModelUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", domain.ErrQuizModelUnavailable, err)
	}
	if msgResp.Error != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrQuizModelUnavailable, msgResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s",
			domain.ErrQuizModelUnavailable, resp.StatusCode, string(body))
	}
	if len(msgResp.Content) == 0 {
		return nil, fmt.Errorf("%w: empty response content", domain.ErrQuizModelUnavailable)
	}

	return llm.ParseResponse(msgResp.Content[0].Text)
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
