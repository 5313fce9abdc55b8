package analysis

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

//go:embed prompts/*.txt
var builtinPrompts embed.FS

// Prompt names
const (
	PromptGenerate = "generate"
	PromptRepair   = "repair"
)

// frameAPI is the df reference shown to the model
const frameAPI = `df.Len() int; df.Width() int; df.Columns() []string; df.Head(n) / df.Tail(n) *Table
df.Col(name) *Series: Sum() Mean() Median() Min() Max() Std() Quantile(q) float64; Count() int; Unique() []any; ValueCounts() *Table
df.Select(names...) *Table; df.SortBy(name, ascending bool) *Table
df.Filter(func(r frame.Row) bool) *Table; r.Float(name) r.Int(name) r.String(name) r.Bool(name) r.Time(name) r.IsNull(name)
df.WithColumn(name, func(r frame.Row) any) *Table
df.GroupBy(name).Count() / .Sum(col) / .Mean(col) / .Min(col) / .Max(col) *Table
df.Describe() *Table; df.Corr(a, b) float64; df.Structure() string
A *Table prints as an aligned text table with fmt.Println(t).`

// PromptManager renders prompt templates with {PLACEHOLDER} substitution.
// Templates are read from dir when it holds one, else from the built-in set.
type PromptManager struct {
	dir string
}

// NewPromptManager creates a prompt manager; dir may be empty
func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{dir: dir}
}

// LoadPrompt loads a prompt template by name
func (pm *PromptManager) LoadPrompt(name string) (string, error) {
	if pm.dir != "" {
		content, err := os.ReadFile(filepath.Join(pm.dir, name+".txt"))
		if err == nil {
			return string(content), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to load prompt %s: %w", name, err)
		}
	}

	content, err := builtinPrompts.ReadFile("prompts/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("prompt template not found: %s", name)
	}
	return string(content), nil
}

// RenderPrompt replaces {PLACEHOLDER} with values
func (pm *PromptManager) RenderPrompt(name string, replacements map[string]string) (string, error) {
	template, err := pm.LoadPrompt(name)
	if err != nil {
		return "", err
	}

	placeholders := make([]string, 0, len(replacements))
	for placeholder := range replacements {
		placeholders = append(placeholders, placeholder)
	}
	sort.Strings(placeholders)

	// one pass, so substituted values are never expanded again
	pairs := make([]string, 0, 2*len(placeholders))
	for _, placeholder := range placeholders {
		pairs = append(pairs, "{"+placeholder+"}", replacements[placeholder])
	}
	return strings.NewReplacer(pairs...).Replace(template), nil
}

// formatHeaders renders column names as a bracketed, quoted list
func formatHeaders(headers []string) string {
	quoted := make([]string, len(headers))
	for i, h := range headers {
		quoted[i] = fmt.Sprintf("%q", h)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// StripFences removes a leading ``` or ```lang fence and a trailing fence
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = s[3:]
		if i := strings.IndexByte(s, '\n'); i >= 0 && isFenceTag(s[:i]) {
			s = s[i+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// isFenceTag reports whether line is empty or a language name like go or python3
func isFenceTag(line string) bool {
	for _, r := range strings.TrimSpace(line) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune("_+-", r) {
			return false
		}
	}
	return true
}
