package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"sheetlens/internal/errors"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Paths   PathConfig    `yaml:"paths"`
	Exec    ExecConfig    `yaml:"exec"`
	Server  ServerConfig  `yaml:"server"`
	History HistoryConfig `yaml:"history"`
}

// LLMConfig holds chat-completion provider settings
type LLMConfig struct {
	Provider    string        `yaml:"provider"` // groq, openai or gemini
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	SmallModel  string        `yaml:"small_model"`
	LargeModel  string        `yaml:"large_model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// PathConfig holds file system locations
type PathConfig struct {
	RawDir       string `yaml:"raw_dir"`
	ProcessedDir string `yaml:"processed_dir"`
	QueriesFile  string `yaml:"queries_file"`
	ExportDir    string `yaml:"export_dir"`
}

// ExecConfig bounds snippet execution
type ExecConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig holds web dashboard settings
type ServerConfig struct {
	Port    string `yaml:"port"`
	GinMode string `yaml:"gin_mode"`
}

// HistoryConfig points at the run ledger; an empty DSN disables it
type HistoryConfig struct {
	DSN string `yaml:"dsn"`
}

// Provider names
const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    ProviderGroq,
			Temperature: 0.1,
			Timeout:     60 * time.Second,
		},
		Paths: PathConfig{
			RawDir:       "data/raw",
			ProcessedDir: "data/processed",
			QueriesFile:  "queries/queries.txt",
			ExportDir:    ".",
		},
		Exec: ExecConfig{
			Timeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Port:    "8501",
			GinMode: "release",
		},
		History: HistoryConfig{
			DSN: "data/history.db",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the environment.
// The environment wins over the file.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
		if err := yaml.Unmarshal(raw, config); err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrapf(err, "failed to parse config file %s", path))
		}
	}

	applyEnv(config)

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func applyEnv(config *Config) {
	config.LLM.Provider = strings.ToLower(getEnvOrDefault("LLM_PROVIDER", config.LLM.Provider))
	config.LLM.APIKey = getEnvOrDefault(apiKeyEnv(config.LLM.Provider), config.LLM.APIKey)
	config.LLM.BaseURL = getEnvOrDefault("LLM_BASE_URL", config.LLM.BaseURL)
	config.LLM.SmallModel = getEnvOrDefault("LLM_MODEL_SMALL", config.LLM.SmallModel)
	config.LLM.LargeModel = getEnvOrDefault("LLM_MODEL_LARGE", config.LLM.LargeModel)
	config.LLM.Temperature = getEnvFloatOrDefault("LLM_TEMPERATURE", config.LLM.Temperature)
	config.LLM.Timeout = getEnvDurationOrDefault("LLM_TIMEOUT", config.LLM.Timeout)

	config.Paths.RawDir = getEnvOrDefault("DATA_RAW_DIR", config.Paths.RawDir)
	config.Paths.ProcessedDir = getEnvOrDefault("DATA_PROCESSED_DIR", config.Paths.ProcessedDir)
	config.Paths.QueriesFile = getEnvOrDefault("QUERIES_FILE", config.Paths.QueriesFile)
	config.Paths.ExportDir = getEnvOrDefault("EXPORT_DIR", config.Paths.ExportDir)

	config.Exec.Timeout = getEnvDurationOrDefault("EXEC_TIMEOUT", config.Exec.Timeout)

	config.Server.Port = getEnvOrDefault("PORT", config.Server.Port)
	config.Server.GinMode = getEnvOrDefault("GIN_MODE", config.Server.GinMode)

	if dsn, ok := os.LookupEnv("HISTORY_DSN"); ok {
		config.History.DSN = dsn
	}
}

// APIKeyEnv names the environment variable holding the key for the configured provider
func (c *LLMConfig) APIKeyEnv() string {
	return apiKeyEnv(c.Provider)
}

// RequireAPIKey is checked lazily, only by the commands that talk to a model
func (c *LLMConfig) RequireAPIKey() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.ConfigInvalid(c.APIKeyEnv() + " is required")
	}
	return nil
}

func apiKeyEnv(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return "GROQ_API_KEY"
	}
}

func validateConfig(config *Config) error {
	switch config.LLM.Provider {
	case ProviderGroq, ProviderOpenAI, ProviderGemini:
	default:
		return errors.ConfigInvalid("unknown LLM provider: " + config.LLM.Provider)
	}
	if config.LLM.Temperature < 0 || config.LLM.Temperature > 2 {
		return errors.ConfigInvalid("temperature must be between 0 and 2")
	}
	if config.Exec.Timeout <= 0 {
		return errors.ConfigInvalid("execution timeout must be positive")
	}
	if config.Paths.ProcessedDir == "" {
		return errors.ConfigInvalid("processed data directory is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
