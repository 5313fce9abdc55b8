package frame

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

var describeRows = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// Describe summarises the numeric columns: count, mean, std, min, quartiles, max.
// The first column holds the statistic names.
func (t *Table) Describe() *Table {
	labels := make([]any, len(describeRows))
	for i, name := range describeRows {
		labels[i] = name
	}
	cols := []*Column{{Name: "stat", Kind: KindString, Values: labels}}

	for _, col := range t.columns {
		if !col.Kind.Numeric() {
			continue
		}
		s := &Series{Name: col.Name, Kind: col.Kind, Values: col.Values}
		values := []float64{
			float64(len(s.Floats())),
			s.Mean(),
			s.Std(),
			s.Min(),
			s.Quantile(0.25),
			s.Median(),
			s.Quantile(0.75),
			s.Max(),
		}
		cells := make([]any, len(values))
		for i, v := range values {
			if math.IsNaN(v) {
				continue
			}
			cells[i] = v
		}
		name := col.Name
		if name == "stat" {
			name = "stat_value"
		}
		cols = append(cols, &Column{Name: name, Kind: KindFloat, Values: cells})
	}
	return mustNew(cols)
}

// Corr returns the Pearson correlation of two numeric columns over the rows
// where both are present, or NaN when fewer than two such rows exist.
func (t *Table) Corr(a, b string) float64 {
	ca, cb := t.mustColumn(a), t.mustColumn(b)
	var xs, ys []float64
	for i := range ca.Values {
		x, okx := toFloat(ca.Values[i])
		y, oky := toFloat(cb.Values[i])
		if !okx || !oky || math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}
