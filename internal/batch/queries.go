// Package batch runs a file of analysis queries sequentially against one
// table and exports the outcome.
package batch

import (
	"bufio"
	"io"
	"os"
	"strings"

	"sheetlens/internal/errors"
	"sheetlens/models"
)

// ParseQueries reads one query per non-blank line. A [Section] line names the
// section of the queries that follow; lines starting with # or // are comments.
func ParseQueries(r io.Reader) ([]models.Query, error) {
	var (
		queries []models.Query
		section = models.DefaultSection
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
			section = line[1 : len(line)-1]
		case strings.HasPrefix(line, "#"), strings.HasPrefix(line, "//"):
		default:
			queries = append(queries, models.Query{Text: line, Section: section})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return queries, nil
}

// LoadQueries parses a queries file
func LoadQueries(path string) ([]models.Query, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WithCode(errors.CodeNotFound, errors.Wrapf(err, "error loading queries from %s", path))
		}
		return nil, errors.Wrapf(err, "error loading queries from %s", path)
	}
	defer file.Close()

	queries, err := ParseQueries(file)
	if err != nil {
		return nil, errors.Wrapf(err, "error loading queries from %s", path)
	}
	return queries, nil
}

// Stats counts queries overall and per section, sections in file order
func Stats(queries []models.Query) models.QueryStats {
	stats := models.QueryStats{
		Total:     len(queries),
		BySection: make(map[string]int),
	}
	for _, q := range queries {
		if _, seen := stats.BySection[q.Section]; !seen {
			stats.Sections = append(stats.Sections, q.Section)
		}
		stats.BySection[q.Section]++
	}
	return stats
}
