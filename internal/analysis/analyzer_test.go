package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"sheetlens/adapters/llm"
	"sheetlens/domain/frame"
	"sheetlens/internal/config"
	"sheetlens/internal/sandbox"
	"sheetlens/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) Record(ctx context.Context, run *models.RunRecord) error {
	return m.Called(ctx, run).Error(0)
}

func (m *mockHistory) Recent(ctx context.Context, limit int) ([]*models.RunRecord, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*models.RunRecord), args.Error(1)
}

func (m *mockHistory) Summary(ctx context.Context) (*models.HistorySummary, error) {
	args := m.Called(ctx)
	return args.Get(0).(*models.HistorySummary), args.Error(1)
}

func salesTable(t *testing.T) *frame.Table {
	t.Helper()
	tbl, err := frame.New(
		&frame.Column{Name: "region", Kind: frame.KindString, Values: []any{"north", "south", "north"}},
		&frame.Column{Name: "units", Kind: frame.KindInt, Values: []any{int64(10), int64(4), int64(6)}},
	)
	require.NoError(t, err)
	return tbl
}

func newAnalyzer(client *llm.MockClient, opts ...Option) *Analyzer {
	catalog := llm.NewModelCatalog(config.LLMConfig{Provider: config.ProviderGroq})
	return New(client, catalog, sandbox.NewExecutor(2*time.Second, nil), opts...)
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "fmt.Println(1)", "fmt.Println(1)"},
		{"go fence", "```go\nfmt.Println(1)\n```", "fmt.Println(1)"},
		{"bare fence", "```\nfmt.Println(1)\n```\n", "fmt.Println(1)"},
		{"python fence", "  ```python\nprint(1)\n```  ", "print(1)"},
		{"trailing only", "fmt.Println(1)\n```", "fmt.Println(1)"},
		{"single line fence", "```fmt.Println(df.Len())```", "fmt.Println(df.Len())"},
		{"code on fence line", "```fmt.Println(1)\nfmt.Println(2)\n```", "fmt.Println(1)\nfmt.Println(2)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestGenerate_BuildsPromptAndStripsFences(t *testing.T) {
	client := &llm.MockClient{
		Replies: []string{"```go\nfmt.Println(df.Len())\n```"},
		Usage:   models.TokenUsage{PromptTokens: 90, CompletionTokens: 10, TotalTokens: 100},
	}
	a := newAnalyzer(client)

	gen := a.Generate(context.Background(), "count the rows", []string{"region", "units"}, models.ModelLarge)
	require.True(t, gen.Success)
	assert.Equal(t, "fmt.Println(df.Len())", gen.Code)
	assert.Equal(t, models.ModelLarge, gen.Model)
	assert.Equal(t, 100, gen.Tokens.TotalTokens)

	require.Len(t, client.Requests, 1)
	req := client.Requests[0]
	assert.Equal(t, "llama-3.3-70b-versatile", req.Model)
	assert.Equal(t, GenerationTemperature, req.Temperature)
	assert.Contains(t, req.Messages[0].Content, `["region", "units"]`)
	assert.Contains(t, req.Messages[0].Content, "The user wants to: count the rows")
}

func TestGenerate_Failure(t *testing.T) {
	a := newAnalyzer(&llm.MockClient{Errors: []error{errors.New("rate limited")}})

	gen := a.Generate(context.Background(), "anything", nil, models.ModelSmall)
	assert.False(t, gen.Success)
	assert.Equal(t, "rate limited", gen.Error)
	assert.Empty(t, gen.Code)

	gen = a.Generate(context.Background(), "anything", nil, "medium")
	assert.False(t, gen.Success)
	assert.Contains(t, gen.Error, `unknown model "medium"`)
}

func TestAnalyze_Success(t *testing.T) {
	client := &llm.MockClient{Replies: []string{`fmt.Println(df.Col("units").Sum())`}}
	a := newAnalyzer(client)

	result := a.Analyze(context.Background(), "total units", salesTable(t), models.ModelLarge)
	require.True(t, result.Success, result.Error)
	assert.Equal(t, "20\n", result.Output)
	assert.False(t, result.Repaired)
	assert.Equal(t, 1, client.Calls())
	assert.NotEqual(t, uuid.Nil, result.ID)
}

func TestAnalyze_RepairsOnce(t *testing.T) {
	client := &llm.MockClient{
		Replies: []string{
			`fmt.Println(df.Col("unit").Sum())`,
			`fmt.Println(df.Col("units").Sum())`,
		},
		Usage: models.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
	a := newAnalyzer(client)

	result := a.Analyze(context.Background(), "total units", salesTable(t), models.ModelLarge)
	require.True(t, result.Success, result.Error)
	assert.True(t, result.Repaired)
	assert.Contains(t, result.InitialError, `column "unit" not found`)
	assert.Equal(t, `fmt.Println(df.Col("units").Sum())`, result.Code)
	assert.Equal(t, 30, result.Tokens.TotalTokens)
	require.Equal(t, 2, client.Calls())
	assert.Contains(t, client.Requests[1].Messages[0].Content, `column "unit" not found`)
}

func TestAnalyze_RepairStillFailing(t *testing.T) {
	client := &llm.MockClient{Replies: []string{`fmt.Println(df.Col("a").Sum())`, `fmt.Println(df.Col("b").Sum())`}}
	a := newAnalyzer(client)

	result := a.Analyze(context.Background(), "x", salesTable(t), models.ModelLarge)
	assert.False(t, result.Success)
	assert.True(t, result.Repaired)
	assert.Contains(t, result.Error, `column "b" not found`)
	assert.Equal(t, 2, client.Calls())
}

func TestAnalyze_RepairCallFails(t *testing.T) {
	client := &llm.MockClient{
		Replies: []string{`fmt.Println(df.Col("a").Sum())`},
		Errors:  []error{nil, errors.New("timeout")},
	}
	a := newAnalyzer(client)

	result := a.Analyze(context.Background(), "x", salesTable(t), models.ModelLarge)
	assert.False(t, result.Success)
	assert.False(t, result.Repaired)
	assert.Contains(t, result.Error, `column "a" not found`)
	assert.Equal(t, `fmt.Println(df.Col("a").Sum())`, result.Code)
}

func TestAnalyze_GenerationFailureIsNotRetried(t *testing.T) {
	client := &llm.MockClient{Errors: []error{errors.New("invalid api key")}}
	a := newAnalyzer(client)

	result := a.Analyze(context.Background(), "x", salesTable(t), models.ModelLarge)
	assert.False(t, result.Success)
	assert.Equal(t, "invalid api key", result.Error)
	assert.Equal(t, 1, client.Calls())
}

func TestAnalyze_RecordsHistory(t *testing.T) {
	history := &mockHistory{}
	batchID := uuid.New()
	history.On("Record", mock.Anything, mock.MatchedBy(func(r *models.RunRecord) bool {
		return r.Instruction == "total units" && r.Success && r.Section == "Sales" && *r.BatchID == batchID
	})).Return(nil).Once()

	client := &llm.MockClient{Replies: []string{`fmt.Println(df.Len())`}}
	a := newAnalyzer(client, WithHistory(history))

	result := a.Analyze(context.Background(), "total units", salesTable(t), models.ModelSmall, InBatch(batchID, "Sales"))
	assert.True(t, result.Success)
	history.AssertExpectations(t)
}

func TestHello(t *testing.T) {
	client := &llm.MockClient{Replies: []string{"Hello there!"}, Usage: models.TokenUsage{TotalTokens: 12}}
	a := newAnalyzer(client)

	res, err := a.Hello(context.Background(), "Hello, world!", models.ModelSmall)
	require.NoError(t, err)
	assert.Equal(t, "Hello there!", res.Reply)
	assert.Equal(t, models.ModelSmall, res.Model)
	assert.Equal(t, 12, res.Tokens.TotalTokens)
	assert.Equal(t, "llama-3.1-8b-instant", client.Requests[0].Model)
	assert.Equal(t, HelloTemperature, client.Requests[0].Temperature)
}

func TestPromptManager_OverrideDir(t *testing.T) {
	dir := t.TempDir()
	pm := NewPromptManager(dir)

	builtin, err := pm.RenderPrompt(PromptGenerate, map[string]string{"INSTRUCTION": "sum"})
	require.NoError(t, err)
	assert.Contains(t, builtin, "The user wants to: sum")

	repair, err := pm.RenderPrompt(PromptRepair, map[string]string{
		"HEADERS":     `["a"]`,
		"INSTRUCTION": "print {CODE} literally",
		"CODE":        "fmt.Println(\"{ERROR}\")",
		"ERROR":       "boom",
		"API":         "df.Len()",
	})
	require.NoError(t, err)
	assert.Contains(t, repair, "Request: print {CODE} literally")
	assert.Contains(t, repair, "Code:\nfmt.Println(\"{ERROR}\")")
	assert.Contains(t, repair, "Error:\nboom")

	_, err = pm.LoadPrompt("missing")
	assert.ErrorContains(t, err, "prompt template not found: missing")
}

func TestUnavailable(t *testing.T) {
	u := Unavailable{Err: errors.New("GROQ_API_KEY is required")}
	res := u.Analyze(context.Background(), "sum units", nil, models.ModelLarge)
	assert.False(t, res.Success)
	assert.Equal(t, "GROQ_API_KEY is required", res.Error)
	assert.Equal(t, "sum units", res.Instruction)
}
