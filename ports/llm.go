package ports

import (
	"context"
	"time"

	"sheetlens/models"
)

// Message is one chat turn
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a single chat completion call
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// ChatResponse carries the reply with usage data
type ChatResponse struct {
	Content  string
	Model    string
	Provider string
	Usage    models.TokenUsage
	Latency  time.Duration
}

// ChatClient is implemented by every LLM provider backend
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Provider() string
}

// UserPrompt builds a request holding one user message
func UserPrompt(model, prompt string, temperature float64) ChatRequest {
	return ChatRequest{
		Model:       model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: temperature,
	}
}
