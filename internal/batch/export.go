package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sheetlens/internal/errors"
	"sheetlens/models"
)

// DefaultExportName returns batch_results_YYYYMMDD_HHMMSS.json for t
func DefaultExportName(t time.Time) string {
	return fmt.Sprintf("batch_results_%s.json", t.Format("20060102_150405"))
}

// NewExport builds the export document of a report
func NewExport(report *models.BatchReport, at time.Time) *models.BatchExport {
	return &models.BatchExport{
		Timestamp:    at.Format("2006-01-02 15:04:05"),
		Model:        report.Model,
		Summary:      report.Summary,
		ExecutionLog: report.ExecutionLog,
		Results:      report.Results,
	}
}

// Export writes report as indented JSON to path, or to a timestamped file in
// the working directory when path is empty. It returns the written path.
func Export(report *models.BatchReport, path string) (string, error) {
	now := time.Now()
	if path == "" {
		path = DefaultExportName(now)
	}

	raw, err := json.MarshalIndent(NewExport(report, now), "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to encode batch results")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrapf(err, "failed to create %s", dir)
		}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", path)
	}
	return path, nil
}
