package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"sheetlens/internal/batch"
	"sheetlens/models"

	"github.com/spf13/cobra"
)

var rule = strings.Repeat("=", 40)

func newBatchCmd(a *app) *cobra.Command {
	var model string
	var export bool
	var exportPath string

	cmd := &cobra.Command{
		Use:   "batch <data_file> <queries_file>",
		Short: "Run every query in a file against a spreadsheet",
		Long: `Run every query in a queries file against a spreadsheet and print a summary,
per-query details and the execution log.

A [Section] line names the section of the queries below it. Blank lines and lines
starting with # or // are ignored.`,
		Example: `  sheetlens batch data/raw/test_data.xlsx queries/queries.txt
  sheetlens batch data/raw/test_data.xlsx queries/queries.txt --export
  sheetlens batch data/raw/test_data.xlsx queries/queries.txt --export-path out/results.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateModel(model); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			dataFile, queriesFile := args[0], args[1]
			if !fileExists(out, "Data", dataFile) || !fileExists(out, "Queries", queriesFile) {
				return nil
			}

			table, err := loadTable(out, dataFile)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "📋 Loading queries from %s...\n", queriesFile)
			queries, err := batch.LoadQueries(queriesFile)
			if err != nil {
				return err
			}

			an, err := a.newAnalyst(cmd.Context())
			if err != nil {
				fmt.Fprintf(out, "❌ Batch analysis failed: %v\n", err)
				a.apiKeyHint(out)
				return nil
			}

			runner := batch.NewRunner(an, model, a.logger)
			progress := cmd.ErrOrStderr()
			runner.OnProgress(func(p batch.Progress) {
				fmt.Fprintf(progress, "🔄 Query %d/%d\n", p.Number, p.Total)
			})
			report := runner.Run(cmd.Context(), table, queries)
			printReport(out, report)

			if !export && exportPath == "" {
				return nil
			}
			path := exportPath
			if path == "" {
				path = filepath.Join(a.cfg.Paths.ExportDir, batch.DefaultExportName(time.Now()))
			}
			written, err := batch.Export(report, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n✅ Results exported to: %s\n", written)
			return nil
		},
	}
	cmd.Flags().StringVar(&model, "model", models.ModelLarge, "model size to use (small or large)")
	cmd.Flags().BoolVar(&export, "export", false, "write the report as JSON to a timestamped file in the export directory")
	cmd.Flags().StringVar(&exportPath, "export-path", "", "write the report as JSON to this path (implies --export)")
	return cmd
}

func printReport(out io.Writer, report *models.BatchReport) {
	s := report.Summary
	fmt.Fprintln(out)
	fmt.Fprintln(out, "📊 Batch Execution Summary")
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "Total Queries: %d\n", s.TotalQueries)
	fmt.Fprintf(out, "Successful: %d\n", s.Successful)
	fmt.Fprintf(out, "Failed: %d\n", s.Failed)
	fmt.Fprintf(out, "Success Rate: %.1f%%\n", s.SuccessRate)
	fmt.Fprintf(out, "Total Time: %.2fs\n", s.TotalTime)
	fmt.Fprintf(out, "Average Time/Query: %.2fs\n", s.AverageTime)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "📋 Detailed Results")
	fmt.Fprintln(out, rule)
	for _, r := range report.Results {
		status := "✅ Success"
		if !r.Success {
			status = "❌ Failed"
		}
		fmt.Fprintf(out, "\nQuery %d: %s...\n", r.QueryNumber, batch.Truncate(r.Query, 50))
		fmt.Fprintf(out, "Section: %s\n", r.Section)
		fmt.Fprintf(out, "Status: %s\n", status)
		if !r.Success {
			fmt.Fprintf(out, "Error: %s\n", orUnknown(r.Error))
			continue
		}
		fmt.Fprintf(out, "Latency: %vs\n", r.LatencyS)
		fmt.Fprintf(out, "Tokens: %d\n", r.Tokens.TotalTokens)
		if r.HasOutput() {
			fmt.Fprintln(out, "Output:")
			fmt.Fprintln(out, strings.TrimRight(r.Output, "\n"))
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "📝 Execution Log")
	fmt.Fprintln(out, rule)
	for _, line := range report.ExecutionLog {
		fmt.Fprintln(out, line)
	}
}
