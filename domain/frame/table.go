// Package frame holds the in-memory table a spreadsheet is loaded into and the
// small pandas-like API generated analysis snippets run against.
package frame

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind is the inferred type of a column
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindTime
)

// String returns the dtype name shown in the data structure report
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int64"
	case KindFloat:
		return "float64"
	case KindBool:
		return "bool"
	case KindTime:
		return "datetime64[ns]"
	default:
		return "object"
	}
}

// Numeric reports whether values of this kind take part in arithmetic
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindFloat
}

// Column is a named, typed vector. A nil entry is a missing cell.
// Non-nil values are string, int64, float64, bool or time.Time according to Kind.
type Column struct {
	Name   string
	Kind   Kind
	Values []any
}

// Table is a column-oriented dataset. All columns have the same length and
// names are unique.
type Table struct {
	columns []*Column
	index   map[string]int
}

// New assembles a table from columns
func New(columns ...*Column) (*Table, error) {
	t := &Table{
		columns: make([]*Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, col := range columns {
		if col == nil {
			return nil, fmt.Errorf("nil column")
		}
		if strings.TrimSpace(col.Name) == "" {
			return nil, fmt.Errorf("column %d has an empty name", len(t.columns))
		}
		if _, dup := t.index[col.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", col.Name)
		}
		if len(t.columns) > 0 && len(col.Values) != len(t.columns[0].Values) {
			return nil, fmt.Errorf("column %q has %d values, expected %d", col.Name, len(col.Values), len(t.columns[0].Values))
		}
		t.index[col.Name] = len(t.columns)
		t.columns = append(t.columns, col)
	}
	return t, nil
}

// Len returns the number of rows
func (t *Table) Len() int {
	if len(t.columns) == 0 {
		return 0
	}
	return len(t.columns[0].Values)
}

// Width returns the number of columns
func (t *Table) Width() int {
	return len(t.columns)
}

// Shape returns (rows, columns)
func (t *Table) Shape() (int, int) {
	return t.Len(), t.Width()
}

// Columns returns the column names in order
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	return names
}

// Kinds returns the column kinds in column order
func (t *Table) Kinds() []Kind {
	kinds := make([]Kind, len(t.columns))
	for i, col := range t.columns {
		kinds[i] = col.Kind
	}
	return kinds
}

// Column returns the named column or nil
func (t *Table) Column(name string) *Column {
	if i, ok := t.index[name]; ok {
		return t.columns[i]
	}
	return nil
}

// ColumnAt returns the i-th column
func (t *Table) ColumnAt(i int) *Column {
	return t.columns[i]
}

// Has reports whether the table has a column with this name
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Col returns the named column as a Series. A missing column panics, which the
// sandbox reports as an execution error.
func (t *Table) Col(name string) *Series {
	col := t.mustColumn(name)
	return &Series{Name: col.Name, Kind: col.Kind, Values: col.Values}
}

func (t *Table) mustColumn(name string) *Column {
	col := t.Column(name)
	if col == nil {
		panic(fmt.Sprintf("column %q not found (available: %s)", name, strings.Join(t.Columns(), ", ")))
	}
	return col
}

// Row returns a view of row i
func (t *Table) Row(i int) Row {
	return Row{table: t, i: i}
}

// Rows returns views of every row
func (t *Table) Rows() []Row {
	rows := make([]Row, t.Len())
	for i := range rows {
		rows[i] = Row{table: t, i: i}
	}
	return rows
}

// Clone deep-copies the table so a snippet cannot touch the loaded data
func (t *Table) Clone() *Table {
	cols := make([]*Column, len(t.columns))
	for i, col := range t.columns {
		values := make([]any, len(col.Values))
		copy(values, col.Values)
		cols[i] = &Column{Name: col.Name, Kind: col.Kind, Values: values}
	}
	return mustNew(cols)
}

func mustNew(cols []*Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// take builds a new table from the given row indices
func (t *Table) take(indices []int) *Table {
	cols := make([]*Column, len(t.columns))
	for i, col := range t.columns {
		values := make([]any, len(indices))
		for j, idx := range indices {
			values[j] = col.Values[idx]
		}
		cols[i] = &Column{Name: col.Name, Kind: col.Kind, Values: values}
	}
	return mustNew(cols)
}

func (t *Table) span(from, to int) *Table {
	indices := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		indices = append(indices, i)
	}
	return t.take(indices)
}

// Head returns the first n rows
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > t.Len() {
		n = t.Len()
	}
	return t.span(0, n)
}

// Tail returns the last n rows
func (t *Table) Tail(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > t.Len() {
		n = t.Len()
	}
	return t.span(t.Len()-n, t.Len())
}

// Select keeps the named columns in the given order
func (t *Table) Select(names ...string) *Table {
	cols := make([]*Column, len(names))
	for i, name := range names {
		cols[i] = t.mustColumn(name)
	}
	return mustNew(cols)
}

// Filter keeps rows for which keep returns true
func (t *Table) Filter(keep func(Row) bool) *Table {
	var indices []int
	for i := 0; i < t.Len(); i++ {
		if keep(Row{table: t, i: i}) {
			indices = append(indices, i)
		}
	}
	return t.take(indices)
}

// SortBy orders rows by a column. The sort is stable and missing values go last
// in both directions.
func (t *Table) SortBy(name string, ascending bool) *Table {
	col := t.mustColumn(name)
	indices := make([]int, t.Len())
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		va, vb := col.Values[indices[a]], col.Values[indices[b]]
		if va == nil || vb == nil {
			return va != nil && vb == nil
		}
		c := Compare(va, vb)
		if ascending {
			return c < 0
		}
		return c > 0
	})
	return t.take(indices)
}

// WithColumn returns a copy of the table with a column computed per row.
// An existing column of the same name is replaced.
func (t *Table) WithColumn(name string, compute func(Row) any) *Table {
	values := make([]any, t.Len())
	for i := range values {
		values[i] = normalize(compute(Row{table: t, i: i}))
	}
	added := &Column{Name: name, Kind: InferKind(values), Values: values}

	cols := make([]*Column, 0, len(t.columns)+1)
	replaced := false
	for _, col := range t.columns {
		if col.Name == name {
			cols = append(cols, added)
			replaced = true
			continue
		}
		cols = append(cols, col)
	}
	if !replaced {
		cols = append(cols, added)
	}
	return mustNew(cols)
}

// Compare orders two non-nil cell values. Ints and floats compare numerically;
// values of different kinds compare by their text form.
func Compare(a, b any) int {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	switch va := a.(type) {
	case string:
		if vb, ok := b.(string); ok {
			return strings.Compare(va, vb)
		}
	case bool:
		if vb, ok := b.(bool); ok {
			switch {
			case va == vb:
				return 0
			case !va:
				return -1
			}
			return 1
		}
	case time.Time:
		if vb, ok := b.(time.Time); ok {
			return va.Compare(vb)
		}
	}
	return strings.Compare(FormatValue(a), FormatValue(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// normalize widens the integer and float types snippets naturally produce
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float32:
		return float64(n)
	}
	return v
}

// InferKind picks the narrowest kind that fits every non-nil value
func InferKind(values []any) Kind {
	seen := map[Kind]bool{}
	for _, v := range values {
		switch v.(type) {
		case nil:
		case int64:
			seen[KindInt] = true
		case float64:
			seen[KindFloat] = true
		case bool:
			seen[KindBool] = true
		case time.Time:
			seen[KindTime] = true
		default:
			seen[KindString] = true
		}
	}
	switch {
	case seen[KindString], len(seen) == 0:
		return KindString
	case len(seen) == 1:
		for k := range seen {
			return k
		}
	case len(seen) == 2 && seen[KindInt] && seen[KindFloat]:
		return KindFloat
	}
	return KindString
}
