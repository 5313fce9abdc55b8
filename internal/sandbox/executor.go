// Package sandbox runs generated analysis snippets against a table with the
// yaegi Go interpreter.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"sheetlens/domain/frame"
	"sheetlens/internal/errors"

	"github.com/traefik/yaegi/interp"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single snippet run
const DefaultTimeout = 10 * time.Second

// Executor interprets snippets. Each run gets a fresh interpreter whose only
// data is df, a clone of the table.
type Executor struct {
	timeout time.Duration
	logger  *zap.Logger
}

// NewExecutor creates an executor; a non-positive timeout means DefaultTimeout
func NewExecutor(timeout time.Duration, logger *zap.Logger) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{timeout: timeout, logger: logger}
}

// Run executes code and returns everything it printed
func (e *Executor) Run(ctx context.Context, code string, table *frame.Table) (string, error) {
	src, err := assemble(code)
	if err != nil {
		return "", errors.ExecutionError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	df := table.Clone()
	i := interp.New(interp.Options{Stdout: stdout, Stderr: stderr})
	if err := i.Use(exports(func() *frame.Table { return df })); err != nil {
		return "", errors.Wrap(err, "failed to load interpreter symbols")
	}

	start := time.Now()
	if _, err := i.EvalWithContext(ctx, src); err != nil {
		return stdout.String(), e.fail(ctx, err, stderr)
	}
	if _, err := i.EvalWithContext(ctx, "main."+entryPoint+"()"); err != nil {
		return stdout.String(), e.fail(ctx, err, stderr)
	}

	e.logger.Debug("snippet executed",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("output_bytes", stdout.Len()))
	return stdout.String(), nil
}

func (e *Executor) fail(ctx context.Context, err error, stderr *syncBuffer) error {
	if ctx.Err() == context.DeadlineExceeded {
		err = fmt.Errorf("execution timed out after %s", e.timeout)
	}
	e.logger.Debug("snippet failed", zap.Error(err), zap.String("stderr", stderr.String()))
	return errors.ExecutionError(err)
}

// syncBuffer guards output written by an interpreter goroutine that may
// outlive a timed-out run.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}
