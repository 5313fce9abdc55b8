package frame

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
)

// Series is a single column taken out of a table
type Series struct {
	Name   string
	Kind   Kind
	Values []any
}

// Len returns the number of cells including missing ones
func (s *Series) Len() int {
	return len(s.Values)
}

// Count returns the number of non-missing cells
func (s *Series) Count() int {
	n := 0
	for _, v := range s.Values {
		if v != nil {
			n++
		}
	}
	return n
}

// Floats returns the numeric, non-missing values
func (s *Series) Floats() []float64 {
	out := make([]float64, 0, len(s.Values))
	for _, v := range s.Values {
		if f, ok := toFloat(v); ok && !math.IsNaN(f) {
			out = append(out, f)
		}
	}
	return out
}

// Sum adds the numeric values; an empty series sums to 0
func (s *Series) Sum() float64 {
	data := s.Floats()
	if len(data) == 0 {
		return 0
	}
	sum, _ := stats.Sum(data)
	return sum
}

// Mean returns the arithmetic mean or NaN when there are no numeric values
func (s *Series) Mean() float64 {
	return s.reduce(stats.Mean)
}

// Median returns the median or NaN
func (s *Series) Median() float64 {
	return s.reduce(stats.Median)
}

// Min returns the smallest numeric value or NaN
func (s *Series) Min() float64 {
	return s.reduce(stats.Min)
}

// Max returns the largest numeric value or NaN
func (s *Series) Max() float64 {
	return s.reduce(stats.Max)
}

// Std returns the sample standard deviation (n-1 denominator) or NaN
func (s *Series) Std() float64 {
	data := s.Floats()
	if len(data) < 2 {
		return math.NaN()
	}
	sd, err := stats.StandardDeviationSample(data)
	if err != nil {
		return math.NaN()
	}
	return sd
}

// Quantile returns the q-th quantile (0..1) or NaN. Values between ranks are
// linearly interpolated at position (n-1)*q, matching pandas.
func (s *Series) Quantile(q float64) float64 {
	data := s.Floats()
	if len(data) == 0 || q < 0 || q > 1 {
		return math.NaN()
	}
	sort.Float64s(data)

	pos := float64(len(data)-1) * q
	lo := int(math.Floor(pos))
	if lo >= len(data)-1 {
		return data[len(data)-1]
	}
	frac := pos - float64(lo)
	return data[lo] + frac*(data[lo+1]-data[lo])
}

func (s *Series) reduce(fn func(stats.Float64Data) (float64, error)) float64 {
	data := s.Floats()
	if len(data) == 0 {
		return math.NaN()
	}
	v, err := fn(data)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Unique returns distinct non-missing values in first-seen order
func (s *Series) Unique() []any {
	seen := make(map[string]bool)
	var out []any
	for _, v := range s.Values {
		if v == nil {
			continue
		}
		key := keyOf(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

// ValueCounts tabulates distinct values, most frequent first; ties keep first-seen order
func (s *Series) ValueCounts() *Table {
	counts := make(map[string]int)
	unique := s.Unique()
	for _, v := range s.Values {
		if v != nil {
			counts[keyOf(v)]++
		}
	}
	sort.SliceStable(unique, func(a, b int) bool {
		return counts[keyOf(unique[a])] > counts[keyOf(unique[b])]
	})

	values := make([]any, len(unique))
	freq := make([]any, len(unique))
	for i, v := range unique {
		values[i] = v
		freq[i] = int64(counts[keyOf(v)])
	}
	name := s.Name
	if name == "count" {
		name += "_value"
	}
	return mustNew([]*Column{
		{Name: name, Kind: s.Kind, Values: values},
		{Name: "count", Kind: KindInt, Values: freq},
	})
}

// String renders the series one value per line
func (s *Series) String() string {
	var b strings.Builder
	for _, v := range s.Values {
		b.WriteString(FormatValue(v))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "Name: %s, Length: %d, dtype: %s", s.Name, s.Len(), s.Kind)
	return b.String()
}

// keyOf gives a map key that keeps 1 (int) and "1" (string) apart
func keyOf(v any) string {
	return fmt.Sprintf("%T:%v", v, v)
}
