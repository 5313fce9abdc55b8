package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"sheetlens/internal/analysis"
	"sheetlens/internal/batch"
	"sheetlens/ports"
	"sheetlens/ui/web"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = a.cfg.Server.Port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var an batch.Analyst
			built, err := a.newAnalyst(ctx)
			if err != nil {
				// the dashboard still loads, previews and converts without a model
				a.logger.Warn("analysis unavailable", zap.Error(err))
				an = analysis.Unavailable{Err: err}
			} else {
				an = built
			}

			var hist ports.HistoryRepository
			if repo := a.openHistory(ctx); repo != nil {
				hist = repo
			}

			server, err := web.NewServer(web.Config{
				Port:        port,
				GinMode:     a.cfg.Server.GinMode,
				UploadDir:   filepath.Join(a.cfg.Paths.RawDir, "uploads"),
				QueriesFile: a.cfg.Paths.QueriesFile,
				ExportDir:   a.cfg.Paths.ExportDir,
			}, an, a.parquetWriter(), hist, a.logger)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "🌐 Dashboard listening on http://localhost:%s\n", port)
			return server.Serve(ctx, ":"+port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (defaults to PORT or 8501)")
	return cmd
}
