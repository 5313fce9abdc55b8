// Package columnar writes loaded tables to Snappy-compressed Parquet files and
// reads them back.
package columnar

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sheetlens/domain/frame"
	"sheetlens/internal/errors"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"
)

// schemaMetadataKey stores the original column order and kinds; Parquet
// groups order their fields by name.
const schemaMetadataKey = "sheetlens.columns"

type columnMeta struct {
	Name string     `json:"name"`
	Kind frame.Kind `json:"kind"`
}

// Writer saves tables under a processed-data directory
type Writer struct {
	dir    string
	logger *zap.Logger
}

// NewWriter creates a writer rooted at dir
func NewWriter(dir string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{dir: dir, logger: logger}
}

// Dir returns the output directory
func (w *Writer) Dir() string {
	return w.dir
}

// Save writes t to <dir>/<name>.parquet. When name is empty it is derived from
// the stem of originalPath; one of the two must be given.
func (w *Writer) Save(t *frame.Table, name, originalPath string) (string, error) {
	if name == "" {
		if originalPath == "" {
			return "", errors.InvalidInput("either name or original path must be given")
		}
		base := filepath.Base(originalPath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create %s", w.dir)
	}
	outPath := filepath.Join(w.dir, name+".parquet")

	start := time.Now()
	file, err := os.Create(outPath)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create %s", outPath)
	}
	if err := Write(file, t); err != nil {
		file.Close()
		os.Remove(outPath)
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", errors.Wrapf(err, "failed to close %s", outPath)
	}

	w.logger.Info("parquet file written",
		zap.String("path", outPath),
		zap.Int("rows", t.Len()),
		zap.Int("columns", t.Width()),
		zap.Duration("elapsed", time.Since(start)))
	return outPath, nil
}

// SaveFor writes t next to the processed data under the stem of originalPath
func (w *Writer) SaveFor(t *frame.Table, originalPath string) (string, error) {
	return w.Save(t, "", originalPath)
}

// Write encodes t as Parquet with Snappy compression and no index column
func Write(out io.Writer, t *frame.Table) error {
	if t.Width() == 0 {
		return errors.InvalidInput("cannot write a table with no columns")
	}

	group := parquet.Group{}
	meta := make([]columnMeta, t.Width())
	for i := 0; i < t.Width(); i++ {
		col := t.ColumnAt(i)
		group[col.Name] = parquet.Optional(parquet.Compressed(leafFor(col.Kind), &parquet.Snappy))
		meta[i] = columnMeta{Name: col.Name, Kind: col.Kind}
	}
	schema := parquet.NewSchema("sheetlens", group)

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return errors.Wrap(err, "failed to encode schema metadata")
	}

	// leaf positions follow the schema's field order, not the table's
	position := make(map[string]int, t.Width())
	for i, field := range schema.Fields() {
		position[field.Name()] = i
	}

	rows := make([]parquet.Row, t.Len())
	for r := range rows {
		row := make(parquet.Row, t.Width())
		for c := 0; c < t.Width(); c++ {
			col := t.ColumnAt(c)
			idx := position[col.Name]
			v := col.Values[r]
			if v == nil {
				row[idx] = parquet.Value{}.Level(0, 0, idx)
				continue
			}
			value, err := valueFor(col.Kind, v)
			if err != nil {
				return errors.WithCode(errors.CodeInvalidInput, errors.Wrapf(err, "column %q row %d", col.Name, r))
			}
			row[idx] = value.Level(0, 1, idx)
		}
		rows[r] = row
	}

	writer := parquet.NewWriter(out, schema, parquet.KeyValueMetadata(schemaMetadataKey, string(metaJSON)))
	if _, err := writer.WriteRows(rows); err != nil {
		return errors.Wrap(err, "failed to write parquet rows")
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, "failed to finish parquet file")
	}
	return nil
}

func leafFor(kind frame.Kind) parquet.Node {
	switch kind {
	case frame.KindInt:
		return parquet.Int(64)
	case frame.KindFloat:
		return parquet.Leaf(parquet.DoubleType)
	case frame.KindBool:
		return parquet.Leaf(parquet.BooleanType)
	case frame.KindTime:
		return parquet.Timestamp(parquet.Millisecond)
	default:
		return parquet.String()
	}
}

func valueFor(kind frame.Kind, v any) (parquet.Value, error) {
	switch kind {
	case frame.KindInt:
		if n, ok := v.(int64); ok {
			return parquet.Int64Value(n), nil
		}
	case frame.KindFloat:
		switch n := v.(type) {
		case float64:
			return parquet.DoubleValue(n), nil
		case int64:
			return parquet.DoubleValue(float64(n)), nil
		}
	case frame.KindBool:
		if b, ok := v.(bool); ok {
			return parquet.BooleanValue(b), nil
		}
	case frame.KindTime:
		if t, ok := v.(time.Time); ok {
			return parquet.Int64Value(t.UnixMilli()), nil
		}
	default:
		return parquet.ByteArrayValue([]byte(frame.FormatValue(v))), nil
	}
	return parquet.Value{}, fmt.Errorf("value %v (%T) does not fit a %s column", v, v, kind)
}
