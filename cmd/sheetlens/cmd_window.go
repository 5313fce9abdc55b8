package main

import (
	"os"
	"path/filepath"

	"sheetlens/internal/analysis"
	"sheetlens/internal/batch"
	"sheetlens/internal/logging"
	"sheetlens/models"
	"sheetlens/ui/window"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWindowCmd(a *app) *cobra.Command {
	var model string
	var style string
	var logFile string

	cmd := &cobra.Command{
		Use:   "window [data_file]",
		Short: "Open the terminal window front end",
		Long: `Open a full-screen terminal window with preview, structure and analysis tabs.
Press ctrl+o to open a file, ctrl+t to switch models and ctrl+s to save Parquet.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateModel(model); err != nil {
				return err
			}
			// the window owns the terminal, so logs go to a file
			logger, err := logging.ToFile(logFile, a.verbose)
			if err != nil {
				return err
			}
			a.logger = logger

			var an batch.Analyst
			built, err := a.newAnalyst(cmd.Context())
			if err != nil {
				logger.Warn("analysis unavailable", zap.Error(err))
				an = analysis.Unavailable{Err: err}
			} else {
				an = built
			}

			deps := window.Deps{
				Analyst: an,
				Parquet: a.parquetWriter(),
				Model:   model,
				Style:   style,
			}
			if len(args) == 1 {
				deps.Path = args[0]
			}
			return window.Run(deps)
		},
	}
	cmd.Flags().StringVar(&model, "model", models.ModelLarge, "initial model size (small or large)")
	cmd.Flags().StringVar(&style, "style", "auto", "markdown style: auto, dark, light or notty")
	cmd.Flags().StringVar(&logFile, "log-file", filepath.Join(os.TempDir(), "sheetlens-window.log"), "where to write logs while the window is open")
	return cmd
}
