package excel

import (
	"strconv"
	"strings"
	"time"

	"sheetlens/domain/frame"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseNumber returns int64 for integral text and float64 otherwise
func parseNumber(raw string) (any, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, false
	}
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	return f, true
}

func parseTime(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseText types a cell that carries no workbook metadata (CSV)
func parseText(raw string) any {
	switch strings.TrimSpace(raw) {
	case "true", "True", "TRUE":
		return true
	case "false", "False", "FALSE":
		return false
	}
	if n, ok := parseNumber(raw); ok {
		return n
	}
	if t, ok := parseTime(raw); ok {
		return t
	}
	return raw
}

// isDateFormat recognises the built-in date/time number formats and custom
// formats containing date or time tokens outside quoted or bracketed text.
func isDateFormat(numFmt int, custom *string) bool {
	switch {
	case numFmt >= 14 && numFmt <= 22,
		numFmt >= 27 && numFmt <= 36,
		numFmt >= 45 && numFmt <= 47,
		numFmt >= 50 && numFmt <= 58:
		return true
	}
	if custom == nil {
		return false
	}

	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(*custom) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == '[' && !inQuote:
			inBracket = true
		case r == ']' && !inQuote:
			inBracket = false
		case !inQuote && !inBracket:
			b.WriteRune(r)
		}
	}
	f := b.String()
	if strings.Contains(f, "general") {
		return false
	}
	return strings.ContainsAny(f, "yd") || (strings.Contains(f, "m") && strings.ContainsAny(f, "hs"))
}

// settleKind fixes the column kind from its cell values. Integer columns with
// a float cell become float; any other mix falls back to text.
func settleKind(col *frame.Column) {
	kinds := make(map[frame.Kind]bool)
	for _, v := range col.Values {
		switch v.(type) {
		case nil:
		case int64:
			kinds[frame.KindInt] = true
		case float64:
			kinds[frame.KindFloat] = true
		case bool:
			kinds[frame.KindBool] = true
		case time.Time:
			kinds[frame.KindTime] = true
		default:
			kinds[frame.KindString] = true
		}
	}

	switch {
	case len(kinds) == 0:
		// an all-empty column reads as float, like NaN
		col.Kind = frame.KindFloat
	case len(kinds) == 1:
		for k := range kinds {
			col.Kind = k
		}
	case len(kinds) == 2 && kinds[frame.KindInt] && kinds[frame.KindFloat]:
		col.Kind = frame.KindFloat
		for i, v := range col.Values {
			if n, ok := v.(int64); ok {
				col.Values[i] = float64(n)
			}
		}
	default:
		col.Kind = frame.KindString
		for i, v := range col.Values {
			if v != nil {
				if _, ok := v.(string); !ok {
					col.Values[i] = frame.FormatValue(v)
				}
			}
		}
	}
}
