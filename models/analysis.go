package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenUsage is the token accounting reported by the model provider
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens" db:"completion_tokens"`
	TotalTokens      int `json:"total_tokens" db:"total_tokens"`
}

// Add returns the element-wise sum of two usages
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
}

// GenerationResult is the outcome of asking the model for a snippet
type GenerationResult struct {
	Success  bool       `json:"success"`
	Code     string     `json:"code"`
	Error    string     `json:"error,omitempty"`
	LatencyS float64    `json:"latency_s"`
	Model    string     `json:"model,omitempty"`
	Tokens   TokenUsage `json:"tokens"`
}

// ExecutionResult is the outcome of running a snippet against a table
type ExecutionResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
}

// AnalysisResult combines generation and execution of one instruction
type AnalysisResult struct {
	ID           uuid.UUID  `json:"id"`
	Instruction  string     `json:"instruction"`
	Success      bool       `json:"success"`
	Code         string     `json:"code"`
	Output       string     `json:"output"`
	Error        string     `json:"error,omitempty"`
	LatencyS     float64    `json:"latency_s"`
	Model        string     `json:"model,omitempty"`
	Tokens       TokenUsage `json:"tokens"`
	Repaired     bool       `json:"repaired"`
	InitialError string     `json:"initial_error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// HasOutput reports whether the snippet printed anything
func (r *AnalysisResult) HasOutput() bool {
	return strings.TrimSpace(r.Output) != ""
}

// Model sizes accepted by the front ends
const (
	ModelSmall = "small"
	ModelLarge = "large"
)
