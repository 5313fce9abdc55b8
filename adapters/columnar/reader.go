package columnar

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"sheetlens/domain/frame"
	"sheetlens/internal/errors"

	"github.com/parquet-go/parquet-go"
)

// FileInfo summarises a written Parquet file
type FileInfo struct {
	Path    string   `json:"path"`
	Rows    int64    `json:"rows"`
	Columns []string `json:"columns"`
	Size    int64    `json:"size_bytes"`
}

// Inspect reads the footer of a Parquet file without decoding its pages
func Inspect(path string) (*FileInfo, error) {
	file, pf, err := open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info := &FileInfo{Path: path, Rows: pf.NumRows(), Size: pf.Size()}
	if meta, ok := readMeta(pf); ok {
		for _, m := range meta {
			info.Columns = append(info.Columns, m.Name)
		}
		return info, nil
	}
	for _, field := range pf.Schema().Fields() {
		info.Columns = append(info.Columns, field.Name())
	}
	return info, nil
}

// ReadTable decodes a file produced by Write back into a table, restoring the
// original column order.
func ReadTable(path string) (*frame.Table, error) {
	file, pf, err := open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	meta, ok := readMeta(pf)
	if !ok {
		return nil, errors.InvalidInput("parquet file was not written by sheetlens: " + path)
	}

	fields := pf.Schema().Fields()
	byLeaf := make([]*frame.Column, len(fields))
	columns := make([]*frame.Column, len(meta))
	for i, m := range meta {
		columns[i] = &frame.Column{Name: m.Name, Kind: m.Kind, Values: make([]any, 0, pf.NumRows())}
		for leaf, field := range fields {
			if field.Name() == m.Name {
				byLeaf[leaf] = columns[i]
			}
		}
	}

	reader := parquet.NewReader(file)
	defer reader.Close()

	buf := make([]parquet.Row, 128)
	for {
		n, err := reader.ReadRows(buf)
		for _, row := range buf[:n] {
			for _, value := range row {
				col := byLeaf[value.Column()]
				if col == nil {
					continue
				}
				col.Values = append(col.Values, decode(col.Kind, value))
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read rows from %s", path)
		}
	}

	table, err := frame.New(columns...)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, errors.Wrap(err, "invalid table"))
	}
	return table, nil
}

func open(path string) (*os.File, *parquet.File, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.NotFound("parquet file " + path)
		}
		return nil, nil, errors.Wrapf(err, "failed to open %s", path)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, errors.Wrapf(err, "failed to stat %s", path)
	}
	pf, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		file.Close()
		return nil, nil, errors.WithCode(errors.CodeInvalidInput, errors.Wrapf(err, "invalid parquet file %s", path))
	}
	return file, pf, nil
}

func readMeta(pf *parquet.File) ([]columnMeta, bool) {
	raw, ok := pf.Lookup(schemaMetadataKey)
	if !ok {
		return nil, false
	}
	var meta []columnMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, false
	}
	return meta, true
}

func decode(kind frame.Kind, v parquet.Value) any {
	if v.IsNull() {
		return nil
	}
	switch kind {
	case frame.KindInt:
		return v.Int64()
	case frame.KindFloat:
		return v.Double()
	case frame.KindBool:
		return v.Boolean()
	case frame.KindTime:
		return time.UnixMilli(v.Int64()).UTC()
	default:
		return string(v.ByteArray())
	}
}
