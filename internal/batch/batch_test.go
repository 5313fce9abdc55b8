package batch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sheetlens/domain/frame"
	"sheetlens/internal/analysis"
	"sheetlens/internal/errors"
	"sheetlens/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const queriesFile = `# sample queries
[Sales]
total units per region
// average price
mean price

[Quality]
count rows with missing price
`

type fakeAnalyst struct {
	fail  map[string]string
	panic string
	calls []string
}

func (f *fakeAnalyst) Analyze(ctx context.Context, instruction string, table *frame.Table, model string, tags ...analysis.Tag) *models.AnalysisResult {
	f.calls = append(f.calls, instruction)
	if instruction == f.panic {
		panic("kaboom")
	}
	if msg, ok := f.fail[instruction]; ok {
		return &models.AnalysisResult{Instruction: instruction, Model: model, Error: msg}
	}
	return &models.AnalysisResult{Instruction: instruction, Model: model, Success: true, Output: "ok\n"}
}

func emptyTable(t *testing.T) *frame.Table {
	t.Helper()
	tbl, err := frame.New(&frame.Column{Name: "a", Kind: frame.KindInt, Values: []any{int64(1)}})
	require.NoError(t, err)
	return tbl
}

func TestParseQueries(t *testing.T) {
	queries, err := ParseQueries(strings.NewReader(queriesFile))
	require.NoError(t, err)

	want := []models.Query{
		{Text: "total units per region", Section: "Sales"},
		{Text: "mean price", Section: "Sales"},
		{Text: "count rows with missing price", Section: "Quality"},
	}
	if diff := cmp.Diff(want, queries); diff != "" {
		t.Errorf("ParseQueries mismatch (-want +got):\n%s", diff)
	}
}

func TestParseQueries_DefaultSection(t *testing.T) {
	queries, err := ParseQueries(strings.NewReader("  how many rows?  \n\n"))
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Equal(t, models.Query{Text: "how many rows?", Section: "General"}, queries[0])
}

func TestLoadQueries_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.txt")
	_, err := LoadQueries(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
	assert.Contains(t, err.Error(), "error loading queries from "+path)
}

func TestStats(t *testing.T) {
	queries, _ := ParseQueries(strings.NewReader(queriesFile))
	stats := Stats(queries)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, []string{"Sales", "Quality"}, stats.Sections)
	assert.Equal(t, map[string]int{"Sales": 2, "Quality": 1}, stats.BySection)
}

func TestRunner_Run(t *testing.T) {
	analyst := &fakeAnalyst{fail: map[string]string{"mean price": "column not found"}}
	runner := NewRunner(analyst, models.ModelLarge, nil)
	runner.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 15, 0, time.UTC) }

	var progress []int
	runner.OnProgress(func(p Progress) { progress = append(progress, p.Number) })

	queries, _ := ParseQueries(strings.NewReader(queriesFile))
	report := runner.Run(context.Background(), emptyTable(t), queries)

	assert.Equal(t, []int{1, 2, 3}, progress)
	assert.Equal(t, 3, report.Summary.TotalQueries)
	assert.Equal(t, 2, report.Summary.Successful)
	assert.Equal(t, 1, report.Summary.Failed)
	assert.InDelta(t, 66.666, report.Summary.SuccessRate, 0.01)

	require.Len(t, report.Results, 3)
	assert.Equal(t, "Sales", report.Results[1].Section)
	assert.Equal(t, 2, report.Results[1].QueryNumber)
	assert.Equal(t, 3, report.Results[1].TotalQueries)

	assert.Equal(t, []string{
		"[09:30:15] Starting query 1/3: total units per region...",
		"[09:30:15] ✅ Query 1 completed successfully",
		"[09:30:15] Starting query 2/3: mean price...",
		"[09:30:15] ❌ Query 2 failed: column not found",
		"[09:30:15] Starting query 3/3: count rows with missing price...",
		"[09:30:15] ✅ Query 3 completed successfully",
	}, report.ExecutionLog)
}

func TestRunner_TruncatesLogAndCapturesPanics(t *testing.T) {
	long := strings.Repeat("x", 80)
	analyst := &fakeAnalyst{panic: long}
	runner := NewRunner(analyst, models.ModelSmall, nil)

	report := runner.Run(context.Background(), emptyTable(t), []models.Query{{Text: long, Section: "General"}, {Text: "next", Section: "General"}})

	assert.Contains(t, report.ExecutionLog[0], "Starting query 1/2: "+strings.Repeat("x", 50)+"...")
	assert.False(t, report.Results[0].Success)
	assert.Equal(t, "exception: kaboom", report.Results[0].Error)
	assert.True(t, report.Results[1].Success)
}

func TestRunner_EmptyAndCancelled(t *testing.T) {
	runner := NewRunner(&fakeAnalyst{}, models.ModelLarge, nil)

	empty := runner.Run(context.Background(), emptyTable(t), nil)
	assert.Equal(t, models.BatchSummary{}, func() models.BatchSummary {
		s := empty.Summary
		s.TotalTime = 0
		return s
	}())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	analyst := &fakeAnalyst{}
	report := NewRunner(analyst, models.ModelLarge, nil).Run(ctx, emptyTable(t), []models.Query{{Text: "q"}})
	assert.Empty(t, analyst.calls)
	assert.Equal(t, 1, report.Summary.Failed)
	assert.Equal(t, "context canceled", report.Results[0].Error)
}

func TestExport(t *testing.T) {
	runner := NewRunner(&fakeAnalyst{}, models.ModelLarge, nil)
	report := runner.Run(context.Background(), emptyTable(t), []models.Query{{Text: "q1", Section: "General"}})

	path := filepath.Join(t.TempDir(), "out", "results.json")
	written, err := Export(report, path)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "large", doc["model"])
	assert.Contains(t, doc, "timestamp")
	assert.Contains(t, doc, "execution_log")
	summary := doc["summary"].(map[string]any)
	assert.EqualValues(t, 1, summary["successful"])
	results := doc["results"].([]any)
	first := results[0].(map[string]any)
	assert.Equal(t, "q1", first["query"])
	assert.Equal(t, "ok\n", first["output"])
}

func TestDefaultExportName(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "batch_results_20240102_030405.json", DefaultExportName(at))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 50))
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "héé", Truncate("héééé", 3))
}
