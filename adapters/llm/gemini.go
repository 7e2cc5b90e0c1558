package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/lingopal/server/domain/repositories"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiLLM implements FeedbackModel using Google's Gemini API.
type GeminiLLM struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

var _ repositories.FeedbackModel = (*GeminiLLM)(nil)

// NewGeminiLLM creates a Gemini-backed feedback model.
func NewGeminiLLM(apiKey string, logger *zap.Logger) (*GeminiLLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiLLM{
		client: client,
		model:  defaultGeminiModel,
		logger: logger,
	}, nil
}

// Complete sends one user message and returns the model reply. The model
// argument overrides the default Gemini model when non-empty.
func (g *GeminiLLM) Complete(ctx context.Context, message string, model string) (string, error) {
	if message == "" {
		return "", fmt.Errorf("message is required")
	}
	if model == "" {
		model = g.model
	}

	contents := []*genai.Content{genai.NewContentFromText(message, genai.RoleUser)}

	response, err := g.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil ||
		len(response.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	var text string
	for _, part := range response.Candidates[0].Content.Parts {
		text += part.Text
	}
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}

	return text, nil
}
