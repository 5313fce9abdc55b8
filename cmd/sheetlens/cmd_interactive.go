package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"sheetlens/adapters/excel"
	"sheetlens/domain/frame"
	"sheetlens/models"

	"github.com/spf13/cobra"
)

func newInteractiveCmd(a *app) *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "interactive <data_file>",
		Short: "Ask questions about a spreadsheet one at a time",
		Example: `  sheetlens interactive data/raw/test_data.xlsx
  sheetlens interactive data/raw/test_data.xlsx --model small`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateModel(model); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !fileExists(out, "Data", args[0]) {
				return nil
			}
			table, err := loadTable(out, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "📋 Columns: %s\n\n", strings.Join(table.Columns(), ", "))

			an, err := a.newAnalyst(cmd.Context())
			if err != nil {
				fmt.Fprintf(out, "❌ Error: %v\n", err)
				a.apiKeyHint(out)
				return nil
			}
			return repl(cmd.Context(), cmd.InOrStdin(), out, an, table, model)
		},
	}
	cmd.Flags().StringVar(&model, "model", models.ModelLarge, "model size to use (small or large)")
	return cmd
}

// loadTable reads a workbook and prints the shared loading banner
func loadTable(out io.Writer, path string) (*frame.Table, error) {
	fmt.Fprintf(out, "📊 Loading data from %s...\n", path)
	table, err := excel.Load(path)
	if err != nil {
		return nil, err
	}
	rows, cols := table.Shape()
	fmt.Fprintf(out, "✅ Loaded %d rows × %d columns\n", rows, cols)
	return table, nil
}

// repl reads instructions until quit or end of input
func repl(ctx context.Context, in io.Reader, out io.Writer, an analyst, table *frame.Table, model string) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "🤖 Enter analysis instruction (or 'quit' to exit): ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		instruction := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(instruction) {
		case "quit", "exit", "q":
			return nil
		case "":
			fmt.Fprintln(out, "⚠️ Please enter an instruction.")
			continue
		}

		fmt.Fprintln(out, "🚀 Generating analysis...")
		printResult(out, an.Analyze(ctx, instruction, table, model))

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func printResult(out io.Writer, result *models.AnalysisResult) {
	if !result.Success {
		fmt.Fprintf(out, "❌ Analysis failed: %s\n", orUnknown(result.Error))
		return
	}

	fmt.Fprintln(out, "✅ Analysis completed successfully!")
	if result.Repaired {
		fmt.Fprintf(out, "🩹 Repaired after: %s\n", result.InitialError)
	}
	fmt.Fprintf(out, "⏱️ Latency: %vs\n", result.LatencyS)
	fmt.Fprintf(out, "🧠 Model: %s\n", result.Model)
	fmt.Fprintf(out, "🔢 Tokens: %d\n\n", result.Tokens.TotalTokens)

	if result.HasOutput() {
		fmt.Fprintln(out, "📊 Results:")
		fmt.Fprintln(out, strings.TrimRight(result.Output, "\n"))
	} else {
		fmt.Fprintln(out, "ℹ️ Analysis completed but no output was generated.")
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "🔧 Generated Code:")
	fmt.Fprintln(out, result.Code)
	fmt.Fprintln(out)
}

func orUnknown(msg string) string {
	if msg == "" {
		return "Unknown error"
	}
	return msg
}
