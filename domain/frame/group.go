package frame

import "math"

// Grouped is a table split by the distinct values of one column
type Grouped struct {
	table  *Table
	key    string
	keys   []any
	groups [][]int
}

// GroupBy splits rows by a key column. Groups keep first-seen order and
// missing keys are dropped, as pandas does by default.
func (t *Table) GroupBy(name string) *Grouped {
	col := t.mustColumn(name)
	g := &Grouped{table: t, key: name}
	pos := make(map[string]int)
	for i, v := range col.Values {
		if v == nil {
			continue
		}
		k := keyOf(v)
		idx, ok := pos[k]
		if !ok {
			idx = len(g.keys)
			pos[k] = idx
			g.keys = append(g.keys, v)
			g.groups = append(g.groups, nil)
		}
		g.groups[idx] = append(g.groups[idx], i)
	}
	return g
}

// Count returns the number of rows per group
func (g *Grouped) Count() *Table {
	counts := make([]any, len(g.groups))
	for i, rows := range g.groups {
		counts[i] = int64(len(rows))
	}
	return g.result("count", KindInt, counts)
}

// Sum adds a numeric column per group
func (g *Grouped) Sum(name string) *Table {
	return g.aggregate(name, (*Series).Sum)
}

// Mean averages a numeric column per group
func (g *Grouped) Mean(name string) *Table {
	return g.aggregate(name, (*Series).Mean)
}

// Min takes the smallest value of a numeric column per group
func (g *Grouped) Min(name string) *Table {
	return g.aggregate(name, (*Series).Min)
}

// Max takes the largest value of a numeric column per group
func (g *Grouped) Max(name string) *Table {
	return g.aggregate(name, (*Series).Max)
}

func (g *Grouped) aggregate(name string, fn func(*Series) float64) *Table {
	col := g.table.mustColumn(name)
	out := make([]any, len(g.groups))
	for i, rows := range g.groups {
		values := make([]any, len(rows))
		for j, r := range rows {
			values[j] = col.Values[r]
		}
		v := fn(&Series{Name: name, Kind: col.Kind, Values: values})
		if math.IsNaN(v) {
			out[i] = nil
			continue
		}
		out[i] = v
	}
	return g.result(name, KindFloat, out)
}

func (g *Grouped) result(name string, kind Kind, values []any) *Table {
	keyCol := g.table.mustColumn(g.key)
	keys := make([]any, len(g.keys))
	copy(keys, g.keys)
	if name == g.key {
		name += "_value"
	}
	return mustNew([]*Column{
		{Name: g.key, Kind: keyCol.Kind, Values: keys},
		{Name: name, Kind: kind, Values: values},
	})
}
