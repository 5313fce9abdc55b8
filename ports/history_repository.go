package ports

import (
	"context"

	"sheetlens/models"
)

// HistoryRepository persists analysis runs
type HistoryRepository interface {
	// Record stores one run
	Record(ctx context.Context, run *models.RunRecord) error

	// Recent returns the newest runs first
	Recent(ctx context.Context, limit int) ([]*models.RunRecord, error)

	// Summary aggregates every stored run
	Summary(ctx context.Context) (*models.HistorySummary, error)
}
