// Package analysis asks a chat model for analysis snippets, runs them in the
// sandbox and repairs a failing snippet once.
package analysis

import (
	"context"
	"math"
	"time"

	"sheetlens/domain/frame"
	"sheetlens/models"
	"sheetlens/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// GenerationTemperature keeps generated code consistent
	GenerationTemperature = 0.1
	// HelloTemperature is used by the connectivity check
	HelloTemperature = 0.2
)

// ModelResolver maps a small/large choice to a provider model id
type ModelResolver interface {
	Resolve(size string) (string, error)
}

// Runner executes a snippet against a table and returns its printed output
type Runner interface {
	Run(ctx context.Context, code string, table *frame.Table) (string, error)
}

// Analyzer drives generate, execute and repair
type Analyzer struct {
	client      ports.ChatClient
	models      ModelResolver
	runner      Runner
	prompts     *PromptManager
	history     ports.HistoryRepository
	temperature float64
	logger      *zap.Logger
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithHistory records every analysis in repo
func WithHistory(repo ports.HistoryRepository) Option {
	return func(a *Analyzer) { a.history = repo }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithPrompts overrides the prompt templates
func WithPrompts(pm *PromptManager) Option {
	return func(a *Analyzer) { a.prompts = pm }
}

// WithTemperature overrides the generation temperature
func WithTemperature(t float64) Option {
	return func(a *Analyzer) { a.temperature = t }
}

// New creates an analyzer
func New(client ports.ChatClient, resolver ModelResolver, runner Runner, opts ...Option) *Analyzer {
	a := &Analyzer{
		client:      client,
		models:      resolver,
		runner:      runner,
		prompts:     NewPromptManager(""),
		temperature: GenerationTemperature,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Generate asks the model for a snippet answering instruction. Failures are
// reported in the result, never as an error.
func (a *Analyzer) Generate(ctx context.Context, instruction string, headers []string, model string) *models.GenerationResult {
	prompt, err := a.prompts.RenderPrompt(PromptGenerate, map[string]string{
		"HEADERS":     formatHeaders(headers),
		"INSTRUCTION": instruction,
		"API":         frameAPI,
	})
	if err != nil {
		return &models.GenerationResult{Error: err.Error()}
	}
	return a.complete(ctx, prompt, model)
}

// Repair asks the model to fix code that failed with execErr
func (a *Analyzer) Repair(ctx context.Context, instruction string, headers []string, code, execErr, model string) *models.GenerationResult {
	prompt, err := a.prompts.RenderPrompt(PromptRepair, map[string]string{
		"HEADERS":     formatHeaders(headers),
		"INSTRUCTION": instruction,
		"CODE":        code,
		"ERROR":       execErr,
		"API":         frameAPI,
	})
	if err != nil {
		return &models.GenerationResult{Error: err.Error()}
	}
	return a.complete(ctx, prompt, model)
}

func (a *Analyzer) complete(ctx context.Context, prompt, model string) *models.GenerationResult {
	id, err := a.models.Resolve(model)
	if err != nil {
		return &models.GenerationResult{Error: err.Error()}
	}

	start := time.Now()
	resp, err := a.client.Complete(ctx, ports.UserPrompt(id, prompt, a.temperature))
	if err != nil {
		a.logger.Warn("code generation failed", zap.String("model", id), zap.Error(err))
		return &models.GenerationResult{Error: err.Error()}
	}

	return &models.GenerationResult{
		Success:  true,
		Code:     StripFences(resp.Content),
		LatencyS: round3(time.Since(start).Seconds()),
		Model:    model,
		Tokens:   resp.Usage,
	}
}

// Execute runs code against a clone of table
func (a *Analyzer) Execute(ctx context.Context, code string, table *frame.Table) *models.ExecutionResult {
	out, err := a.runner.Run(ctx, code, table)
	if err != nil {
		return &models.ExecutionResult{Error: err.Error()}
	}
	return &models.ExecutionResult{Success: true, Output: out}
}

// Tag annotates the history record of an analysis
type Tag func(*models.RunRecord)

// InBatch marks the analysis as part of a batch run
func InBatch(batchID uuid.UUID, section string) Tag {
	return func(r *models.RunRecord) {
		r.BatchID = &batchID
		r.Section = section
	}
}

// Analyze generates code for instruction and runs it. A snippet that fails at
// run time gets exactly one repair round-trip; when the repair call itself
// fails the original failure is returned.
func (a *Analyzer) Analyze(ctx context.Context, instruction string, table *frame.Table, model string, tags ...Tag) *models.AnalysisResult {
	result := &models.AnalysisResult{
		ID:          uuid.New(),
		Instruction: instruction,
		Model:       model,
		CreatedAt:   time.Now().UTC(),
	}
	defer a.record(ctx, result, tags)

	headers := table.Columns()
	gen := a.Generate(ctx, instruction, headers, model)
	if !gen.Success {
		result.Error = gen.Error
		return result
	}
	result.Code = gen.Code
	result.Tokens = gen.Tokens
	result.LatencyS = gen.LatencyS

	exec := a.Execute(ctx, gen.Code, table)
	if !exec.Success {
		a.logger.Debug("snippet failed, requesting repair", zap.String("error", exec.Error))
		fix := a.Repair(ctx, instruction, headers, gen.Code, exec.Error, model)
		if fix.Success {
			result.Repaired = true
			result.InitialError = exec.Error
			result.Code = fix.Code
			result.Tokens = result.Tokens.Add(fix.Tokens)
			result.LatencyS = round3(result.LatencyS + fix.LatencyS)
			exec = a.Execute(ctx, fix.Code, table)
		}
	}

	result.Success = exec.Success
	result.Output = exec.Output
	result.Error = exec.Error
	return result
}

func (a *Analyzer) record(ctx context.Context, result *models.AnalysisResult, tags []Tag) {
	if a.history == nil {
		return
	}
	rec := models.NewRunRecord(result, nil, "")
	for _, tag := range tags {
		tag(rec)
	}
	if err := a.history.Record(ctx, rec); err != nil {
		a.logger.Warn("failed to record analysis", zap.String("id", rec.ID.String()), zap.Error(err))
	}
}

// HelloResult is the outcome of a connectivity check
type HelloResult struct {
	Model    string            `json:"model"`
	LatencyS float64           `json:"latency_s"`
	Tokens   models.TokenUsage `json:"tokens"`
	Reply    string            `json:"-"`
}

// Hello sends prompt as-is to check credentials and connectivity
func (a *Analyzer) Hello(ctx context.Context, prompt, model string) (*HelloResult, error) {
	id, err := a.models.Resolve(model)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := a.client.Complete(ctx, ports.UserPrompt(id, prompt, HelloTemperature))
	if err != nil {
		return nil, err
	}
	return &HelloResult{
		Model:    model,
		LatencyS: round3(time.Since(start).Seconds()),
		Tokens:   resp.Usage,
		Reply:    resp.Content,
	}, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
