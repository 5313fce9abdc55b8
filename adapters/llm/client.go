package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sheetlens/internal/errors"
	"sheetlens/models"
	"sheetlens/ports"

	"github.com/tidwall/gjson"
)

// DefaultGroqBaseURL is the OpenAI-compatible endpoint used for the groq provider
const DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

// DefaultOpenAIBaseURL is used for the openai provider
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient implements ports.ChatClient for OpenAI-compatible chat APIs
type OpenAIClient struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	provider string
	http     *http.Client
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint
func NewOpenAIClient(provider, apiKey, baseURL string, timeout time.Duration) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.ConfigInvalid(fmt.Sprintf("missing %s API key", provider))
	}

	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
		if provider == "openai" {
			baseURL = DefaultOpenAIBaseURL
		}
	}

	return &OpenAIClient{
		APIKey:   apiKey,
		BaseURL:  baseURL,
		Timeout:  timeout,
		provider: provider,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

// Provider returns the provider name reported in usage data
func (c *OpenAIClient) Provider() string {
	return c.provider
}

// Complete sends one chat completion request
func (c *OpenAIClient) Complete(ctx context.Context, req ports.ChatRequest) (*ports.ChatResponse, error) {
	if strings.TrimSpace(req.Model) == "" {
		return nil, errors.InvalidInput("missing model")
	}

	type reqBody struct {
		Model       string          `json:"model"`
		Messages    []ports.Message `json:"messages"`
		Temperature float64         `json:"temperature"`
		MaxTokens   int             `json:"max_tokens,omitempty"`
	}
	raw, err := json.Marshal(reqBody{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.ExternalServiceError(c.provider, err)
	}
	defer resp.Body.Close()

	respRaw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ExternalServiceError(c.provider, fmt.Errorf("read response: %w", err))
	}
	latency := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(respRaw, "error.message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(respRaw))
		}
		return nil, errors.ExternalServiceError(c.provider, fmt.Errorf("http %d: %s", resp.StatusCode, msg))
	}
	if !gjson.ValidBytes(respRaw) {
		return nil, errors.ExternalServiceError(c.provider, fmt.Errorf("invalid JSON response"))
	}

	content := gjson.GetBytes(respRaw, "choices.0.message.content")
	if !content.Exists() {
		return nil, errors.ExternalServiceError(c.provider, fmt.Errorf("response missing choices"))
	}

	usage := gjson.GetBytes(respRaw, "usage")
	model := gjson.GetBytes(respRaw, "model").String()
	if model == "" {
		model = req.Model
	}

	return &ports.ChatResponse{
		Content:  content.String(),
		Model:    model,
		Provider: c.provider,
		Usage: models.TokenUsage{
			PromptTokens:     int(usage.Get("prompt_tokens").Int()),
			CompletionTokens: int(usage.Get("completion_tokens").Int()),
			TotalTokens:      int(usage.Get("total_tokens").Int()),
		},
		Latency: latency,
	}, nil
}
