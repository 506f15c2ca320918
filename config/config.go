// Package config loads runtime configuration from an optional YAML file,
// a .env file, and environment variables, in ascending precedence.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/voxelbird/scenesmith/logging"
)

// Supported model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config is the full runtime configuration.
type Config struct {
	// Provider selects the backing model provider: openai or anthropic.
	Provider string `yaml:"provider"`
	// ModelName overrides the provider's default model when set.
	ModelName string `yaml:"model"`

	OpenAIAPIKey    string `yaml:"-"` // Only read from the environment
	AnthropicAPIKey string `yaml:"-"` // Only read from the environment

	// OutputDir is where generated media files and result documents land.
	OutputDir string `yaml:"output_dir"`

	// MaxIterations caps each invocation loop's model-call rounds.
	MaxIterations int `yaml:"max_iterations"`
	// MaxParallelTools bounds concurrent tool dispatch within one round.
	MaxParallelTools int `yaml:"max_parallel_tools"`

	// Pipeline defaults.
	SceneCount  int    `yaml:"scene_count"`
	Language    string `yaml:"language"`
	MinKeywords int    `yaml:"min_keywords"`
	MaxKeywords int    `yaml:"max_keywords"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// LogFormat is json or text.
	LogFormat string `yaml:"log_format"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Provider:         ProviderOpenAI,
		OutputDir:        "output",
		MaxIterations:    8,
		MaxParallelTools: 4,
		SceneCount:       3,
		Language:         "English",
		MinKeywords:      5,
		MaxKeywords:      8,
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then a .env file in the working directory (if
// present), then environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Missing .env is fine; explicit env vars still apply.
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Provider, "SCENESMITH_PROVIDER")
	setString(&c.ModelName, "SCENESMITH_MODEL")
	setString(&c.OutputDir, "SCENESMITH_OUTPUT_DIR")
	setString(&c.Language, "SCENESMITH_LANGUAGE")
	setString(&c.LogLevel, "SCENESMITH_LOG_LEVEL")
	setString(&c.LogFormat, "SCENESMITH_LOG_FORMAT")
	setInt(&c.MaxIterations, "SCENESMITH_MAX_ITERATIONS")
	setInt(&c.MaxParallelTools, "SCENESMITH_MAX_PARALLEL_TOOLS")
	setInt(&c.SceneCount, "SCENESMITH_SCENE_COUNT")

	c.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	c.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
}

// Validate checks provider selection and the numeric bounds. The API key
// for the selected provider must be present.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for provider %q", c.Provider)
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for provider %q", c.Provider)
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	if c.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.MaxParallelTools <= 0 {
		return fmt.Errorf("max_parallel_tools must be positive, got %d", c.MaxParallelTools)
	}
	if c.SceneCount <= 0 {
		return fmt.Errorf("scene_count must be positive, got %d", c.SceneCount)
	}
	if c.MinKeywords <= 0 || c.MaxKeywords < c.MinKeywords {
		return fmt.Errorf("keyword bounds must satisfy 0 < min <= max, got %d..%d", c.MinKeywords, c.MaxKeywords)
	}
	return nil
}

// LoggingConfig maps the textual log settings onto the logging package.
func (c Config) LoggingConfig() *logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Format = c.LogFormat
	switch c.LogLevel {
	case "debug":
		cfg.Level = logging.LogLevelDebug
	case "warn":
		cfg.Level = logging.LogLevelWarn
	case "error":
		cfg.Level = logging.LogLevelError
	default:
		cfg.Level = logging.LogLevelInfo
	}
	return cfg
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
