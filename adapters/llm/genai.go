package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sheetlens/internal/errors"
	"sheetlens/models"
	"sheetlens/ports"

	"google.golang.org/genai"
)

// GeminiClient implements ports.ChatClient with Google's GenAI SDK
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a Gemini backend
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.ConfigInvalid("missing gemini API key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.ExternalServiceError("gemini", fmt.Errorf("failed to create GenAI client: %w", err))
	}
	return &GeminiClient{client: client}, nil
}

// Provider returns "gemini"
func (c *GeminiClient) Provider() string {
	return "gemini"
}

// Complete sends the conversation as GenAI contents. System messages become
// the system instruction.
func (c *GeminiClient) Complete(ctx context.Context, req ports.ChatRequest) (*ports.ChatResponse, error) {
	if strings.TrimSpace(req.Model) == "" {
		return nil, errors.InvalidInput("missing model")
	}

	temperature := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{Temperature: &temperature}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			cfg.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	start := time.Now()
	result, err := c.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, errors.ExternalServiceError("gemini", err)
	}

	resp := &ports.ChatResponse{
		Content:  result.Text(),
		Model:    req.Model,
		Provider: c.Provider(),
		Latency:  time.Since(start),
	}
	if result.UsageMetadata != nil {
		resp.Usage = models.TokenUsage{
			PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(result.UsageMetadata.TotalTokenCount),
		}
	}
	return resp, nil
}
