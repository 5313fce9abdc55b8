package analysis

import (
	"context"
	"time"

	"sheetlens/domain/frame"
	"sheetlens/models"

	"github.com/google/uuid"
)

// Unavailable fails every analysis with Err. Front ends use it when no chat
// client could be built so loading, preview and conversion keep working.
type Unavailable struct {
	Err error
}

// Analyze returns a failed result carrying Err
func (u Unavailable) Analyze(_ context.Context, instruction string, _ *frame.Table, model string, _ ...Tag) *models.AnalysisResult {
	return &models.AnalysisResult{
		ID:          uuid.New(),
		Instruction: instruction,
		Model:       model,
		Error:       u.Err.Error(),
		CreatedAt:   time.Now().UTC(),
	}
}
