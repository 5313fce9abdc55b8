package frame

import (
	"math"
	"time"
)

// Row is a read-only view of one table row
type Row struct {
	table *Table
	i     int
}

// Index returns the row position
func (r Row) Index() int {
	return r.i
}

// Get returns the raw cell value (nil when missing)
func (r Row) Get(name string) any {
	return r.table.mustColumn(name).Values[r.i]
}

// IsNull reports whether the cell is missing
func (r Row) IsNull(name string) bool {
	return r.Get(name) == nil
}

// Float returns a numeric cell as float64; missing or non-numeric cells are NaN
func (r Row) Float(name string) float64 {
	if f, ok := toFloat(r.Get(name)); ok {
		return f
	}
	return math.NaN()
}

// Int returns an integer cell; floats are truncated, anything else is 0
func (r Row) Int(name string) int64 {
	switch v := r.Get(name).(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

// String returns the cell formatted as text; missing cells are ""
func (r Row) String(name string) string {
	v := r.Get(name)
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return FormatValue(v)
}

// Bool returns a boolean cell; anything else is false
func (r Row) Bool(name string) bool {
	b, _ := r.Get(name).(bool)
	return b
}

// Time returns a datetime cell; anything else is the zero time
func (r Row) Time(name string) time.Time {
	t, _ := r.Get(name).(time.Time)
	return t
}
