package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
)

// FormatValue renders one cell the way the preview shows it
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NaN"
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return formatFloat(val)
	case bool:
		if val {
			return "True"
		}
		return "False"
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(val)
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

// String renders every row with right-aligned columns and no index
func (t *Table) String() string {
	if t.Width() == 0 {
		return "Empty table\nColumns: []\n"
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, name := range t.Columns() {
		fmt.Fprint(w, name, "\t")
	}
	fmt.Fprintln(w)
	for i := 0; i < t.Len(); i++ {
		for _, col := range t.columns {
			v := col.Values[i]
			if v == nil && col.Kind == KindTime {
				fmt.Fprint(w, "NaT\t")
				continue
			}
			fmt.Fprint(w, FormatValue(v), "\t")
		}
		fmt.Fprintln(w)
	}
	w.Flush()
	return b.String()
}

// Structure is the data structure report: headers, dimensions and dtypes
func (t *Table) Structure() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Headers (%d columns):\n%s\n\n", t.Width(), strings.Join(t.Columns(), ", "))
	fmt.Fprintf(&b, "Dimensions: %d rows × %d columns\n\n", t.Len(), t.Width())
	b.WriteString("Data Types:\n")
	for _, col := range t.columns {
		fmt.Fprintf(&b, "- %s: %s\n", col.Name, col.Kind)
	}
	return b.String()
}
