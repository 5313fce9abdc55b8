package models

import (
	"time"

	"github.com/google/uuid"
)

// RunRecord is one analysis persisted in the history store
type RunRecord struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	BatchID          *uuid.UUID `json:"batch_id,omitempty" db:"batch_id"`
	Instruction      string     `json:"instruction" db:"instruction"`
	Section          string     `json:"section,omitempty" db:"section"`
	Model            string     `json:"model" db:"model"`
	Success          bool       `json:"success" db:"success"`
	Repaired         bool       `json:"repaired" db:"repaired"`
	Error            string     `json:"error,omitempty" db:"error"`
	PromptTokens     int        `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens int        `json:"completion_tokens" db:"completion_tokens"`
	TotalTokens      int        `json:"total_tokens" db:"total_tokens"`
	LatencyS         float64    `json:"latency_s" db:"latency_s"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}

// NewRunRecord flattens an analysis result for storage
func NewRunRecord(r *AnalysisResult, batchID *uuid.UUID, section string) *RunRecord {
	id := r.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return &RunRecord{
		ID:               id,
		BatchID:          batchID,
		Instruction:      r.Instruction,
		Section:          section,
		Model:            r.Model,
		Success:          r.Success,
		Repaired:         r.Repaired,
		Error:            r.Error,
		PromptTokens:     r.Tokens.PromptTokens,
		CompletionTokens: r.Tokens.CompletionTokens,
		TotalTokens:      r.Tokens.TotalTokens,
		LatencyS:         r.LatencyS,
		CreatedAt:        created.UTC(),
	}
}

// HistorySummary aggregates the stored runs
type HistorySummary struct {
	Runs        int `json:"runs" db:"runs"`
	Successful  int `json:"successful" db:"successful"`
	TotalTokens int `json:"total_tokens" db:"total_tokens"`
}
