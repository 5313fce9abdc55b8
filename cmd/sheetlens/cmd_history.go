package main

import (
	"fmt"
	"strconv"

	"sheetlens/internal/batch"
	"sheetlens/internal/errors"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently recorded analysis runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return errors.InvalidInput("--limit must be positive")
			}
			out := cmd.OutOrStdout()
			if a.cfg.History.DSN == "" {
				fmt.Fprintln(out, "ℹ️ History is disabled (HISTORY_DSN is empty).")
				return nil
			}
			repo := a.openHistory(cmd.Context())
			if repo == nil {
				return errors.DatabaseError("history store could not be opened: " + a.cfg.History.DSN)
			}

			summary, err := repo.Summary(cmd.Context())
			if err != nil {
				return err
			}
			runs, err := repo.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "📚 %d runs, %d successful, %d tokens\n", summary.Runs, summary.Successful, summary.TotalTokens)
			if len(runs) == 0 {
				return nil
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("When", "Model", "Status", "Tokens", "Latency", "Instruction").
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle
					}
					return cellStyle
				})
			for _, run := range runs {
				status := "✅"
				if !run.Success {
					status = "❌"
				}
				if run.Repaired {
					status += " repaired"
				}
				t.Row(
					run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					run.Model,
					status,
					strconv.Itoa(run.TotalTokens),
					fmt.Sprintf("%.2fs", run.LatencyS),
					batch.Truncate(run.Instruction, 60),
				)
			}
			fmt.Fprintln(out, t.Render())
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	return cmd
}
