package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultSection is used for queries that appear before any [Section] line
const DefaultSection = "General"

// Query is one line of a queries file
type Query struct {
	Text    string `json:"query"`
	Section string `json:"section"`
}

// QueryResult is an analysis result annotated with its position in a batch
type QueryResult struct {
	AnalysisResult
	Query        string  `json:"query"`
	Section      string  `json:"section"`
	QueryNumber  int     `json:"query_number"`
	TotalQueries int     `json:"total_queries"`
	ElapsedS     float64 `json:"elapsed_s"`
}

// BatchSummary aggregates a batch run
type BatchSummary struct {
	TotalQueries int     `json:"total_queries"`
	Successful   int     `json:"successful"`
	Failed       int     `json:"failed"`
	SuccessRate  float64 `json:"success_rate"`
	TotalTime    float64 `json:"total_time"`
	AverageTime  float64 `json:"average_time"`
}

// BatchReport is everything a batch run produced
type BatchReport struct {
	ID           uuid.UUID      `json:"id"`
	Model        string         `json:"model"`
	StartedAt    time.Time      `json:"started_at"`
	Results      []*QueryResult `json:"results"`
	Summary      BatchSummary   `json:"summary"`
	ExecutionLog []string       `json:"execution_log"`
}

// BatchExport is the JSON document written by a batch export
type BatchExport struct {
	Timestamp    string         `json:"timestamp"`
	Model        string         `json:"model"`
	Summary      BatchSummary   `json:"summary"`
	ExecutionLog []string       `json:"execution_log"`
	Results      []*QueryResult `json:"results"`
}

// QueryStats counts queries overall and per section
type QueryStats struct {
	Total     int            `json:"total"`
	Sections  []string       `json:"sections"`
	BySection map[string]int `json:"by_section"`
}
