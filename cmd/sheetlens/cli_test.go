package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"sheetlens/adapters/history"
	"sheetlens/domain/frame"
	"sheetlens/internal/analysis"
	"sheetlens/internal/errors"
	"sheetlens/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type fakeAnalyst struct {
	mu     sync.Mutex
	models []string
}

func (f *fakeAnalyst) Analyze(_ context.Context, instruction string, _ *frame.Table, model string, _ ...analysis.Tag) *models.AnalysisResult {
	f.mu.Lock()
	f.models = append(f.models, model)
	f.mu.Unlock()

	result := &models.AnalysisResult{
		Instruction: instruction,
		Model:       model,
		Code:        "fmt.Println(22)",
		LatencyS:    0.25,
		Tokens:      models.TokenUsage{TotalTokens: 42},
	}
	if strings.Contains(instruction, "fail") {
		result.Error = "snippet execution failed: boom"
		return result
	}
	result.Success = true
	result.Output = "22\n"
	return result
}

func (f *fakeAnalyst) Hello(_ context.Context, prompt, model string) (*analysis.HelloResult, error) {
	return &analysis.HelloResult{
		Model:    model,
		LatencyS: 0.5,
		Tokens:   models.TokenUsage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7},
		Reply:    "echo: " + prompt,
	}, nil
}

// setEnv pins the configuration to temp locations
func setEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("LLM_PROVIDER", "groq")
	t.Setenv("HISTORY_DSN", "")
	t.Setenv("DATA_RAW_DIR", filepath.Join(dir, "raw"))
	t.Setenv("DATA_PROCESSED_DIR", filepath.Join(dir, "processed"))
	t.Setenv("EXPORT_DIR", filepath.Join(dir, "exports"))
	return dir
}

func newTestApp(an analyst) *app {
	return &app{
		logger: zap.NewNop(),
		newAnalyst: func(context.Context) (analyst, error) {
			return an, nil
		},
	}
}

func execute(t *testing.T, a *app, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(a.close)

	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeWorkbook(t *testing.T, dir string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"region", "units", "price"},
		{"north", 10, 2.5},
		{"south", 4, 3.0},
		{"east", 8, 1.25},
	}
	for r, row := range rows {
		for c, v := range row {
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", ref, v))
		}
	}
	path := filepath.Join(dir, "sales.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestInteractive_MissingFile(t *testing.T) {
	dir := setEnv(t)
	missing := filepath.Join(dir, "none.xlsx")

	out, err := execute(t, newTestApp(&fakeAnalyst{}), "", "interactive", missing)
	require.NoError(t, err)
	assert.Equal(t, "❌ Data file not found: "+missing+"\n", out)
}

func TestInteractive_Session(t *testing.T) {
	dir := setEnv(t)
	path := writeWorkbook(t, dir)
	fake := &fakeAnalyst{}

	out, err := execute(t, newTestApp(fake), "\ntotal units\nfail please\nquit\nnever asked\n",
		"interactive", path, "--model", "small")
	require.NoError(t, err)

	assert.Contains(t, out, "📊 Loading data from "+path+"...")
	assert.Contains(t, out, "✅ Loaded 3 rows × 3 columns")
	assert.Contains(t, out, "📋 Columns: region, units, price")
	assert.Contains(t, out, "⚠️ Please enter an instruction.")
	assert.Contains(t, out, "⏱️ Latency: 0.25s")
	assert.Contains(t, out, "🔢 Tokens: 42")
	assert.Contains(t, out, "📊 Results:\n22\n")
	assert.Contains(t, out, "🔧 Generated Code:\nfmt.Println(22)")
	assert.Contains(t, out, "❌ Analysis failed: snippet execution failed: boom")
	assert.Equal(t, []string{"small", "small"}, fake.models)
}

func TestInteractive_EndOfInput(t *testing.T) {
	dir := setEnv(t)
	path := writeWorkbook(t, dir)
	fake := &fakeAnalyst{}

	_, err := execute(t, newTestApp(fake), "total units\n", "interactive", path)
	require.NoError(t, err)
	assert.Equal(t, []string{models.ModelLarge}, fake.models)
}

func TestInteractive_AnalystUnavailable(t *testing.T) {
	dir := setEnv(t)
	path := writeWorkbook(t, dir)
	a := &app{
		logger: zap.NewNop(),
		newAnalyst: func(context.Context) (analyst, error) {
			return nil, errors.ConfigInvalid("GROQ_API_KEY is required")
		},
	}

	out, err := execute(t, a, "", "interactive", path)
	require.NoError(t, err)
	assert.Contains(t, out, "❌ Error: GROQ_API_KEY is required")
	assert.Contains(t, out, "💡 Make sure your GROQ_API_KEY is set in the .env file")
}

func TestInteractive_InvalidModel(t *testing.T) {
	dir := setEnv(t)
	path := writeWorkbook(t, dir)

	_, err := execute(t, newTestApp(&fakeAnalyst{}), "", "interactive", path, "--model", "medium")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid --model "medium"`)
}

func TestBatch_ReportAndExport(t *testing.T) {
	dir := setEnv(t)
	path := writeWorkbook(t, dir)
	queries := filepath.Join(dir, "queries.txt")
	require.NoError(t, os.WriteFile(queries, []byte("[Sales]\ntotal units\n\nfail on purpose\n"), 0o644))
	exportPath := filepath.Join(dir, "out", "results.json")

	out, err := execute(t, newTestApp(&fakeAnalyst{}), "", "batch", path, queries, "--export-path", exportPath)
	require.NoError(t, err)

	assert.Contains(t, out, "📋 Loading queries from "+queries+"...")
	assert.Contains(t, out, "Total Queries: 2")
	assert.Contains(t, out, "Successful: 1")
	assert.Contains(t, out, "Success Rate: 50.0%")
	assert.Contains(t, out, "Query 1: total units...")
	assert.Contains(t, out, "Section: Sales")
	assert.Contains(t, out, "Error: snippet execution failed: boom")
	assert.Contains(t, out, "📝 Execution Log")
	assert.Contains(t, out, "✅ Results exported to: "+exportPath)
	assert.FileExists(t, exportPath)
}

func TestBatch_ExportDefaultName(t *testing.T) {
	dir := setEnv(t)
	path := writeWorkbook(t, dir)
	queries := filepath.Join(dir, "queries.txt")
	require.NoError(t, os.WriteFile(queries, []byte("total units\n"), 0o644))

	_, err := execute(t, newTestApp(&fakeAnalyst{}), "", "batch", path, queries, "--export")
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "exports", "batch_results_*.json"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestBatch_MissingQueries(t *testing.T) {
	dir := setEnv(t)
	path := writeWorkbook(t, dir)
	missing := filepath.Join(dir, "none.txt")

	out, err := execute(t, newTestApp(&fakeAnalyst{}), "", "batch", path, missing)
	require.NoError(t, err)
	assert.Equal(t, "❌ Queries file not found: "+missing+"\n", out)
}

func TestConvert(t *testing.T) {
	dir := setEnv(t)
	path := writeWorkbook(t, dir)

	out, err := execute(t, newTestApp(&fakeAnalyst{}), "", "convert", path)
	require.NoError(t, err)
	assert.Contains(t, out, "🔍 Read back 3 rows × 3 columns")
	assert.FileExists(t, filepath.Join(dir, "processed", "sales.parquet"))

	_, err = execute(t, newTestApp(&fakeAnalyst{}), "", "convert", path, "--name", "q1")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "processed", "q1.parquet"))
}

func TestConvert_RejectsPathInName(t *testing.T) {
	dir := setEnv(t)
	path := writeWorkbook(t, dir)

	_, err := execute(t, newTestApp(&fakeAnalyst{}), "", "convert", path, "--name", "../escape")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}

func TestHello(t *testing.T) {
	setEnv(t)

	out, err := execute(t, newTestApp(&fakeAnalyst{}), "", "hello", "--prompt", "ping")
	require.NoError(t, err)
	assert.Contains(t, out, `"model": "small"`)
	assert.Contains(t, out, `"latency_s": 0.5`)
	assert.Contains(t, out, `"total_tokens": 7`)
	assert.True(t, strings.HasSuffix(out, "\n--- assistant ---\necho: ping\n"), out)
}

func TestHistory_Disabled(t *testing.T) {
	setEnv(t)

	out, err := execute(t, newTestApp(&fakeAnalyst{}), "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "History is disabled")
}

func TestHistory_ListsRuns(t *testing.T) {
	dir := setEnv(t)
	dsn := filepath.Join(dir, "history.db")
	t.Setenv("HISTORY_DSN", dsn)

	ctx := context.Background()
	repo, err := history.Open(ctx, dsn, nil)
	require.NoError(t, err)
	run := models.NewRunRecord(&models.AnalysisResult{
		Instruction: "average price by region",
		Success:     true,
		Model:       models.ModelLarge,
		Tokens:      models.TokenUsage{TotalTokens: 42},
		LatencyS:    1.5,
		CreatedAt:   time.Now(),
	}, nil, "")
	require.NoError(t, repo.Record(ctx, run))
	require.NoError(t, repo.Close())

	out, err := execute(t, newTestApp(&fakeAnalyst{}), "", "history", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "📚 1 runs, 1 successful, 42 tokens")
	assert.Contains(t, out, "average price by region")
	assert.Contains(t, out, "1.50s")
}
