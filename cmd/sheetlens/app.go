package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"sheetlens/adapters/columnar"
	"sheetlens/adapters/history"
	"sheetlens/adapters/llm"
	"sheetlens/internal/analysis"
	"sheetlens/internal/batch"
	"sheetlens/internal/config"
	"sheetlens/internal/logging"
	"sheetlens/internal/sandbox"
	"sheetlens/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// analyst is what the commands need from the analysis pipeline
type analyst interface {
	batch.Analyst
	Hello(ctx context.Context, prompt, model string) (*analysis.HelloResult, error)
}

// app carries the state shared by every subcommand
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger

	// newAnalyst builds the LLM pipeline; tests swap in a fake
	newAnalyst func(ctx context.Context) (analyst, error)

	history       *history.Repository
	historyOpened bool
}

func newRootCmd(a *app) *cobra.Command {
	if a.newAnalyst == nil {
		a.newAnalyst = a.buildAnalyzer
	}

	root := &cobra.Command{
		Use:   "sheetlens",
		Short: "Spreadsheet analysis with generated code",
		Long: `sheetlens loads an Excel workbook, converts it to Parquet and answers
plain-language questions by generating, running and repairing analysis snippets.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			if a.logger == nil {
				logger, err := logging.New(a.verbose)
				if err != nil {
					return err
				}
				a.logger = logger
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "optional YAML config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newInteractiveCmd(a),
		newBatchCmd(a),
		newConvertCmd(a),
		newHelloCmd(a),
		newServeCmd(a),
		newWindowCmd(a),
		newHistoryCmd(a),
	)
	return root
}

// buildAnalyzer wires the chat client, model catalog, sandbox and history
func (a *app) buildAnalyzer(ctx context.Context) (analyst, error) {
	client, err := llm.NewClient(ctx, a.cfg.LLM)
	if err != nil {
		return nil, err
	}

	opts := []analysis.Option{
		analysis.WithLogger(a.logger),
		analysis.WithTemperature(a.cfg.LLM.Temperature),
	}
	if repo := a.openHistory(ctx); repo != nil {
		opts = append(opts, analysis.WithHistory(repo))
	}

	runner := sandbox.NewExecutor(a.cfg.Exec.Timeout, a.logger)
	return analysis.New(client, llm.NewModelCatalog(a.cfg.LLM), runner, opts...), nil
}

// openHistory opens the run ledger once. Failures only disable recording.
func (a *app) openHistory(ctx context.Context) *history.Repository {
	if a.historyOpened {
		return a.history
	}
	a.historyOpened = true
	if a.cfg.History.DSN == "" {
		return nil
	}

	repo, err := history.Open(ctx, a.cfg.History.DSN, a.logger)
	if err != nil {
		a.logger.Warn("history disabled", zap.String("dsn", a.cfg.History.DSN), zap.Error(err))
		return nil
	}
	a.history = repo
	return repo
}

func (a *app) parquetWriter() *columnar.Writer {
	return columnar.NewWriter(a.cfg.Paths.ProcessedDir, a.logger)
}

func (a *app) close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil && a.logger != nil {
			a.logger.Warn("failed to close history store", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// apiKeyHint is printed after failures that are usually credential problems
func (a *app) apiKeyHint(out io.Writer) {
	fmt.Fprintf(out, "💡 Make sure your %s is set in the .env file\n", a.cfg.LLM.APIKeyEnv())
}

// fileExists prints the not-found notice the commands share
func fileExists(out io.Writer, kind, path string) bool {
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(out, "❌ %s file not found: %s\n", kind, path)
		return false
	}
	return true
}

func validateModel(model string) error {
	switch model {
	case models.ModelSmall, models.ModelLarge:
		return nil
	}
	return fmt.Errorf("invalid --model %q (choose %s or %s)", model, models.ModelSmall, models.ModelLarge)
}
