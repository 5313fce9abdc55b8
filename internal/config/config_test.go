package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"sheetlens/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"LLM_PROVIDER", "GROQ_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "LLM_BASE_URL",
		"LLM_MODEL_SMALL", "LLM_MODEL_LARGE", "LLM_TEMPERATURE", "LLM_TIMEOUT",
		"DATA_RAW_DIR", "DATA_PROCESSED_DIR", "QUERIES_FILE", "EXPORT_DIR",
		"EXEC_TIMEOUT", "PORT", "GIN_MODE",
	} {
		t.Setenv(key, "")
	}
	// HISTORY_DSN distinguishes unset from empty
	if v, ok := os.LookupEnv("HISTORY_DSN"); ok {
		require.NoError(t, os.Unsetenv("HISTORY_DSN"))
		t.Cleanup(func() { os.Setenv("HISTORY_DSN", v) })
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ProviderGroq, cfg.LLM.Provider)
	assert.Equal(t, 0.1, cfg.LLM.Temperature)
	assert.Equal(t, "data/processed", cfg.Paths.ProcessedDir)
	assert.Equal(t, "queries/queries.txt", cfg.Paths.QueriesFile)
	assert.Equal(t, 10*time.Second, cfg.Exec.Timeout)
	assert.Equal(t, "data/history.db", cfg.History.DSN)
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("LLM_TEMPERATURE", "0.3")
	t.Setenv("EXEC_TIMEOUT", "2s")
	t.Setenv("PORT", "9000")
	t.Setenv("HISTORY_DSN", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gsk-test", cfg.LLM.APIKey)
	assert.Equal(t, 0.3, cfg.LLM.Temperature)
	assert.Equal(t, 2*time.Second, cfg.Exec.Timeout)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Empty(t, cfg.History.DSN)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sheetlens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: gemini
  large_model: gemini-2.5-pro
  timeout: 30s
paths:
  processed_dir: out
`), 0o644))
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("DATA_PROCESSED_DIR", "override")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.LargeModel)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "override", cfg.Paths.ProcessedDir)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "mystery")

	_, err := Load("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeConfigInvalid))
}

func TestRequireAPIKey(t *testing.T) {
	cfg := Default()
	err := cfg.LLM.RequireAPIKey()
	require.Error(t, err)
	assert.Equal(t, "GROQ_API_KEY is required", err.Error())

	cfg.LLM.Provider = ProviderGemini
	assert.Equal(t, "GEMINI_API_KEY", cfg.LLM.APIKeyEnv())

	cfg.LLM.APIKey = "set"
	assert.NoError(t, cfg.LLM.RequireAPIKey())
}
