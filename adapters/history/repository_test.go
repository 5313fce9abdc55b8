package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"sheetlens/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRecordAndRecent(t *testing.T) {
	repo := openMemory(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	batch := uuid.New()

	first := &models.RunRecord{
		ID: uuid.New(), Instruction: "total units", Model: "large", Success: true,
		TotalTokens: 100, LatencyS: 1.5, CreatedAt: base,
	}
	second := &models.RunRecord{
		ID: uuid.New(), BatchID: &batch, Instruction: "mean price", Section: "Sales", Model: "small",
		Error: "snippet execution failed", Repaired: true, TotalTokens: 50, CreatedAt: base.Add(time.Minute),
	}
	require.NoError(t, repo.Record(ctx, first))
	require.NoError(t, repo.Record(ctx, second))

	runs, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, second.ID, runs[0].ID)
	require.NotNil(t, runs[0].BatchID)
	assert.Equal(t, batch, *runs[0].BatchID)
	assert.True(t, runs[0].Repaired)
	assert.False(t, runs[0].Success)
	assert.Equal(t, "Sales", runs[0].Section)

	assert.Equal(t, first.ID, runs[1].ID)
	assert.Nil(t, runs[1].BatchID)
	assert.True(t, runs[1].Success)
	assert.InDelta(t, 1.5, runs[1].LatencyS, 1e-9)
	assert.True(t, base.Equal(runs[1].CreatedAt))

	limited, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSummary(t *testing.T) {
	repo := openMemory(t)
	ctx := context.Background()

	empty, err := repo.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.HistorySummary{}, *empty)

	for i, ok := range []bool{true, false, true} {
		require.NoError(t, repo.Record(ctx, &models.RunRecord{
			ID: uuid.New(), Instruction: "q", Success: ok, TotalTokens: 10 * (i + 1), CreatedAt: time.Now().UTC(),
		}))
	}

	summary, err := repo.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.HistorySummary{Runs: 3, Successful: 2, TotalTokens: 60}, *summary)
}

func TestOpen_FileAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	ctx := context.Background()

	repo, err := Open(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Record(ctx, &models.RunRecord{ID: uuid.New(), Instruction: "q", CreatedAt: time.Now().UTC()}))
	require.NoError(t, repo.Close())

	// migrations are idempotent
	reopened, err := Open(ctx, path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	runs, err := reopened.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), " ", nil)
	assert.Error(t, err)
}
