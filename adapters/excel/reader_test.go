package excel

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"sheetlens/domain/frame"
	"sheetlens/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", ref, v))
		}
	}
	path := filepath.Join(t.TempDir(), "sales.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoad_TypedColumns(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	path := writeWorkbook(t, [][]any{
		{"region", "units", "price", "active", "day"},
		{"north", 10, 2.5, true, day},
		{"south", 4, 3, false, day.AddDate(0, 0, 1)},
		{"east", 8, 1.25, true, day.AddDate(0, 0, 2)},
	})

	table, err := Load(path)
	require.NoError(t, err)

	rows, cols := table.Shape()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 5, cols)
	assert.Equal(t, []string{"region", "units", "price", "active", "day"}, table.Columns())

	assert.Equal(t, frame.KindString, table.Column("region").Kind)
	assert.Equal(t, frame.KindInt, table.Column("units").Kind)
	assert.Equal(t, []any{int64(10), int64(4), int64(8)}, table.Column("units").Values)

	// 3 is stored as an integer but the column holds 2.5 too
	assert.Equal(t, frame.KindFloat, table.Column("price").Kind)
	assert.Equal(t, []any{2.5, 3.0, 1.25}, table.Column("price").Values)

	assert.Equal(t, frame.KindBool, table.Column("active").Kind)
	assert.Equal(t, []any{true, false, true}, table.Column("active").Values)

	require.Equal(t, frame.KindTime, table.Column("day").Kind)
	first := table.Column("day").Values[0].(time.Time)
	assert.Equal(t, 2024, first.Year())
	assert.Equal(t, time.March, first.Month())
	assert.Equal(t, 1, first.Day())
}

func TestLoad_HeaderNamingAndRagged(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"id", nil, "units", "units"},
		{1, "x", 5, 6},
		{2},
		{nil},
	})

	table, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "Unnamed: 1", "units", "units.1"}, table.Columns())
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []any{"x", nil}, table.Column("Unnamed: 1").Values)
	assert.Equal(t, []any{int64(6), nil}, table.Column("units.1").Values)
}

func TestLoad_HeaderOnly(t *testing.T) {
	path := writeWorkbook(t, [][]any{{"a", "b"}})

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, 2, table.Width())
	assert.Equal(t, frame.KindFloat, table.Column("a").Kind)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.xlsx"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestLoad_NotAWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a zip"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}

func TestLoad_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,score,passed\nann,9.5,true\nbob,7,false\n"), 0o644))

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, frame.KindFloat, table.Column("score").Kind)
	assert.Equal(t, []any{9.5, 7.0}, table.Column("score").Values)
	assert.Equal(t, frame.KindBool, table.Column("passed").Kind)
}

func TestIsDateFormat(t *testing.T) {
	custom := func(s string) *string { return &s }

	assert.True(t, isDateFormat(14, nil))
	assert.True(t, isDateFormat(22, nil))
	assert.False(t, isDateFormat(2, nil))
	assert.True(t, isDateFormat(164, custom("yyyy-mm-dd")))
	assert.True(t, isDateFormat(164, custom("hh:mm:ss")))
	assert.False(t, isDateFormat(164, custom(`0.00" days"`)))
	assert.False(t, isDateFormat(164, custom("[Red]#,##0")))
}
