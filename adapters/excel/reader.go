package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sheetlens/domain/frame"
	"sheetlens/internal/errors"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// DataReader loads a spreadsheet (or CSV) file into a frame.Table
type DataReader struct {
	config Config
	logger *zap.Logger
}

// NewDataReader creates a reader with the given options
func NewDataReader(config Config, logger *zap.Logger) *DataReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataReader{config: config, logger: logger}
}

// Load reads a spreadsheet with default options
func Load(path string) (*frame.Table, error) {
	return NewDataReader(DefaultConfig(), nil).Load(path)
}

// Load reads the file verbatim: the first row is the header, every following
// row is data, and each column gets the narrowest kind that fits its cells.
func (r *DataReader) Load(path string) (*frame.Table, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("data file " + path)
		}
		return nil, errors.Wrapf(err, "failed to stat %s", path)
	}

	start := time.Now()
	var (
		table *frame.Table
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		table, err = r.loadCSV(path)
	default:
		table, err = r.loadWorkbook(path)
	}
	if err != nil {
		return nil, err
	}

	r.logger.Info("spreadsheet loaded",
		zap.String("path", path),
		zap.Int("rows", table.Len()),
		zap.Int("columns", table.Width()),
		zap.Duration("elapsed", time.Since(start)))
	return table, nil
}

func (r *DataReader) loadWorkbook(path string) (*frame.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, errors.Wrapf(err, "failed to open workbook %s", path))
	}
	defer f.Close()

	sheet := r.config.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.InvalidInput("workbook has no worksheets: " + path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, errors.Wrapf(err, "failed to read sheet %s", sheet))
	}
	rows = trimTrailingEmpty(rows)
	if len(rows) == 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("sheet %s is empty", sheet))
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	cells := &workbookCells{file: f, sheet: sheet, date1904: date1904, dateStyles: make(map[int]bool)}
	return r.buildTable(rows, cells.value)
}

func (r *DataReader) loadCSV(path string) (*frame.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open CSV file %s", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, errors.Wrapf(err, "failed to read CSV file %s", path))
	}
	rows = trimTrailingEmpty(rows)
	if len(rows) == 0 {
		return nil, errors.InvalidInput("CSV file is empty: " + path)
	}

	return r.buildTable(rows, func(_, _ int, raw string) any {
		return parseText(raw)
	})
}

// buildTable turns raw rows into typed columns. cell converts the raw text at
// (row, col), 1-based as in the sheet, into a typed value.
func (r *DataReader) buildTable(rows [][]string, cell func(row, col int, raw string) any) (*frame.Table, error) {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	names := headerNames(rows[0], width, r.config.TrimHeaders)
	columns := make([]*frame.Column, width)
	for c := range columns {
		columns[c] = &frame.Column{Name: names[c], Values: make([]any, 0, len(rows)-1)}
	}

	for i, row := range rows[1:] {
		for c := 0; c < width; c++ {
			var v any
			if c < len(row) && row[c] != "" {
				v = cell(i+2, c+1, row[c])
			}
			columns[c].Values = append(columns[c].Values, v)
		}
	}

	for _, col := range columns {
		settleKind(col)
	}

	table, err := frame.New(columns...)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, errors.Wrap(err, "invalid table"))
	}
	return table, nil
}

// headerNames names blank headers "Unnamed: i" and suffixes duplicates
// "name.1", "name.2" in order of appearance.
func headerNames(header []string, width int, trim bool) []string {
	names := make([]string, width)
	used := make(map[string]bool, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = header[i]
			if trim {
				name = strings.TrimSpace(name)
			}
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d", base, n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func trimTrailingEmpty(rows [][]string) [][]string {
	end := len(rows)
	for end > 0 && isEmptyRow(rows[end-1]) {
		end--
	}
	return rows[:end]
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

type workbookCells struct {
	file       *excelize.File
	sheet      string
	date1904   bool
	dateStyles map[int]bool
}

// value interprets a raw cell using the workbook's cell type and number format
func (w *workbookCells) value(row, col int, raw string) any {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return raw
	}
	cellType, err := w.file.GetCellType(w.sheet, ref)
	if err != nil {
		return parseText(raw)
	}

	switch cellType {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true")
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeError:
		return raw
	case excelize.CellTypeDate:
		if t, ok := parseTime(raw); ok {
			return t
		}
		return raw
	}

	number, ok := parseNumber(raw)
	if !ok {
		return raw
	}
	if w.isDateCell(ref) {
		f, _ := strconv.ParseFloat(raw, 64)
		if t, err := excelize.ExcelDateToTime(f, w.date1904); err == nil {
			return t
		}
	}
	return number
}

func (w *workbookCells) isDateCell(ref string) bool {
	styleID, err := w.file.GetCellStyle(w.sheet, ref)
	if err != nil || styleID == 0 {
		return false
	}
	if isDate, ok := w.dateStyles[styleID]; ok {
		return isDate
	}
	isDate := false
	if style, err := w.file.GetStyle(styleID); err == nil && style != nil {
		isDate = isDateFormat(style.NumFmt, style.CustomNumFmt)
	}
	w.dateStyles[styleID] = isDate
	return isDate
}
