// Package history stores analysis runs in SQLite or PostgreSQL through sqlx.
package history

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"sheetlens/internal/errors"
	"sheetlens/internal/migration"
	"sheetlens/models"
	"sheetlens/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Repository implements ports.HistoryRepository
type Repository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

var _ ports.HistoryRepository = (*Repository)(nil)

// Open connects to dsn and migrates the schema. A postgres:// or
// postgresql:// DSN selects PostgreSQL; anything else is a SQLite path.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.ConfigInvalid("history DSN is empty")
	}

	driver, dialect := "sqlite", migration.SQLite
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver, dialect = "postgres", migration.Postgres
	} else if dir := filepath.Dir(dsn); !isMemory(dsn) && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create %s", dir)
		}
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to connect to history database"))
	}
	if dialect == migration.SQLite {
		// a single connection keeps :memory: databases and writes consistent
		db.SetMaxOpenConns(1)
	}

	if err := migration.NewRunner(dialect).Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "history migration failed"))
	}

	logger.Debug("history store ready", zap.String("driver", driver))
	return &Repository{db: db, logger: logger}, nil
}

// NewRepository wraps an already migrated database
func NewRepository(db *sqlx.DB, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{db: db, logger: logger}
}

// Record stores one run
func (r *Repository) Record(ctx context.Context, run *models.RunRecord) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO analysis_runs (
			id, batch_id, instruction, section, model, success, repaired, error,
			prompt_tokens, completion_tokens, total_tokens, latency_s, created_at
		) VALUES (
			:id, :batch_id, :instruction, :section, :model, :success, :repaired, :error,
			:prompt_tokens, :completion_tokens, :total_tokens, :latency_s, :created_at
		)
	`, run)
	if err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to record analysis run"))
	}
	return nil
}

// Recent returns up to limit runs, newest first
func (r *Repository) Recent(ctx context.Context, limit int) ([]*models.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []*models.RunRecord
	err := r.db.SelectContext(ctx, &runs, r.db.Rebind(`
		SELECT id, batch_id, instruction, section, model, success, repaired, error,
		       prompt_tokens, completion_tokens, total_tokens, latency_s, created_at
		FROM analysis_runs
		ORDER BY created_at DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to list analysis runs"))
	}
	return runs, nil
}

// Summary aggregates every stored run
func (r *Repository) Summary(ctx context.Context) (*models.HistorySummary, error) {
	var summary models.HistorySummary
	err := r.db.GetContext(ctx, &summary, `
		SELECT
			COUNT(*) AS runs,
			COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0) AS successful,
			COALESCE(SUM(total_tokens), 0) AS total_tokens
		FROM analysis_runs
	`)
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to summarise analysis runs"))
	}
	return &summary, nil
}

// Close releases the database
func (r *Repository) Close() error {
	return r.db.Close()
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.HasPrefix(dsn, "file:")
}
