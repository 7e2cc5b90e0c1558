package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lingopal/server/domain/repositories"
)

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel   = "meta-llama/llama-3.2-3b-instruct:free"
)

// OpenRouterConfig holds configuration for the OpenRouter adapter.
type OpenRouterConfig struct {
	APIKey  string // Required
	BaseURL string // Optional, defaults to the public API
	Model   string // Optional default model
}

// OpenRouterLLM implements FeedbackModel against the OpenRouter chat
// completions API.
type OpenRouterLLM struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

var _ repositories.FeedbackModel = (*OpenRouterLLM)(nil)

type openRouterRequest struct {
	Model    string              `json:"model"`
	Messages []openRouterMessage `json:"messages"`
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenRouterLLM creates an OpenRouter-backed feedback model.
func NewOpenRouterLLM(config OpenRouterConfig, logger *zap.Logger) (*OpenRouterLLM, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	model := config.Model
	if model == "" {
		model = defaultOpenRouterModel
	}

	return &OpenRouterLLM{
		apiKey:  config.APIKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}, nil
}

// Complete sends one user message and returns the assistant reply.
func (o *OpenRouterLLM) Complete(ctx context.Context, message string, model string) (string, error) {
	if message == "" {
		return "", fmt.Errorf("message is required")
	}
	if model == "" {
		model = o.model
	}

	body, err := json.Marshal(openRouterRequest{
		Model:    model,
		Messages: []openRouterMessage{{Role: "user", Content: message}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openrouter request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(resp.Body)
		o.logger.Error("OpenRouter returned error",
			zap.Int("statusCode", resp.StatusCode),
			zap.ByteString("response", errorBody))
		return "", fmt.Errorf("openrouter returned status %d", resp.StatusCode)
	}

	var parsed openRouterResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openrouter error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openrouter returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
