package batch

import (
	"context"
	"fmt"
	"time"

	"sheetlens/domain/frame"
	"sheetlens/internal/analysis"
	"sheetlens/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Analyst runs a single analysis
type Analyst interface {
	Analyze(ctx context.Context, instruction string, table *frame.Table, model string, tags ...analysis.Tag) *models.AnalysisResult
}

// Progress reports that query Number of Total is about to run
type Progress struct {
	Number int
	Total  int
	Query  models.Query
}

// Runner executes queries one at a time
type Runner struct {
	analyst    Analyst
	model      string
	logger     *zap.Logger
	onProgress func(Progress)
	now        func() time.Time
}

// NewRunner creates a runner using model for every query
func NewRunner(analyst Analyst, model string, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{analyst: analyst, model: model, logger: logger, now: time.Now}
}

// OnProgress registers a callback invoked before each query
func (r *Runner) OnProgress(fn func(Progress)) {
	r.onProgress = fn
}

// Model returns the model choice of the runner
func (r *Runner) Model() string {
	return r.model
}

// Run executes every query in order. A failing query never stops the batch;
// a cancelled context fails the queries not yet started.
func (r *Runner) Run(ctx context.Context, table *frame.Table, queries []models.Query) *models.BatchReport {
	report := &models.BatchReport{
		ID:        uuid.New(),
		Model:     r.model,
		StartedAt: r.now().UTC(),
		Results:   make([]*models.QueryResult, 0, len(queries)),
	}
	total := len(queries)
	start := time.Now()

	for i, q := range queries {
		n := i + 1
		r.log(report, fmt.Sprintf("Starting query %d/%d: %s...", n, total, Truncate(q.Text, 50)))
		if r.onProgress != nil {
			r.onProgress(Progress{Number: n, Total: total, Query: q})
		}

		qStart := time.Now()
		var res *models.QueryResult
		if err := ctx.Err(); err != nil {
			res = failedResult(q, err)
		} else {
			res = r.runOne(ctx, report.ID, table, q)
		}
		res.QueryNumber = n
		res.TotalQueries = total
		res.ElapsedS = time.Since(qStart).Seconds()
		report.Results = append(report.Results, res)

		if res.Success {
			report.Summary.Successful++
			r.log(report, fmt.Sprintf("✅ Query %d completed successfully", n))
		} else {
			report.Summary.Failed++
			msg := res.Error
			if msg == "" {
				msg = "Unknown error"
			}
			r.log(report, fmt.Sprintf("❌ Query %d failed: %s", n, msg))
		}
	}

	report.Summary.TotalQueries = total
	report.Summary.TotalTime = time.Since(start).Seconds()
	if total > 0 {
		report.Summary.SuccessRate = float64(report.Summary.Successful) / float64(total) * 100
		report.Summary.AverageTime = report.Summary.TotalTime / float64(total)
	}

	r.logger.Info("batch finished",
		zap.String("batch_id", report.ID.String()),
		zap.Int("total", total),
		zap.Int("successful", report.Summary.Successful),
		zap.Float64("total_time_s", report.Summary.TotalTime))
	return report
}

// runOne turns a panic in the analysis path into a failed result
func (r *Runner) runOne(ctx context.Context, batchID uuid.UUID, table *frame.Table, q models.Query) (res *models.QueryResult) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("query panicked", zap.String("query", q.Text), zap.Any("panic", p))
			res = failedResult(q, fmt.Errorf("exception: %v", p))
		}
	}()

	result := r.analyst.Analyze(ctx, q.Text, table, r.model, analysis.InBatch(batchID, q.Section))
	return &models.QueryResult{AnalysisResult: *result, Query: q.Text, Section: q.Section}
}

func (r *Runner) log(report *models.BatchReport, message string) {
	line := fmt.Sprintf("[%s] %s", r.now().Format("15:04:05"), message)
	report.ExecutionLog = append(report.ExecutionLog, line)
	r.logger.Debug(line)
}

func failedResult(q models.Query, err error) *models.QueryResult {
	return &models.QueryResult{
		AnalysisResult: models.AnalysisResult{
			ID:          uuid.New(),
			Instruction: q.Text,
			Error:       err.Error(),
			CreatedAt:   time.Now().UTC(),
		},
		Query:   q.Text,
		Section: q.Section,
	}
}

// Truncate keeps the first n runes of s
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
