// In file: internal/config/config.go

// Package config loads service settings from a dotenv file, the environment
// and an optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/514-labs/planes/internal/agent"
	"github.com/514-labs/planes/internal/aircraft"
	"github.com/514-labs/planes/internal/cache"
	"github.com/514-labs/planes/internal/llm"
	"github.com/514-labs/planes/internal/tools"
)

const (
	DefaultConfigPath   = "config.yaml"
	DefaultEnvFile      = ".env"
	defaultToolEndpoint = "http://localhost:4000/mcp"
)

// LoadOptions come from the command line of each binary.
type LoadOptions struct {
	ConfigPath string
	EnvFile    string
	Port       string
}

// FileConfig is the shape of config.yaml.
type FileConfig struct {
	Agent struct {
		MaxIterations       int      `yaml:"max_iterations"`
		StreamMaxIterations int      `yaml:"stream_max_iterations"`
		MaxTokens           int      `yaml:"max_tokens"`
		Temperature         *float64 `yaml:"temperature"`
		SystemPrompt        string   `yaml:"system_prompt"`
		Table               string   `yaml:"table"`
	} `yaml:"agent"`
	Tools struct {
		Mode      string `yaml:"mode"`
		QueryTool string `yaml:"query_tool"`
		RowLimit  int    `yaml:"row_limit"`
	} `yaml:"tools"`
	Cache struct {
		Enabled *bool         `yaml:"enabled"`
		TTL     time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
}

// AppConfig holds all configuration for the service, loaded from the environment and config files.
type AppConfig struct {
	Port         string
	ToolEndpoint string
	ToolHeaders  map[string]string
	Provider     llm.ProviderConfig
	ModelCosts   map[string]llm.TokenCosts
	RedisAddr    string

	MaxIterations       int
	StreamMaxIterations int
	MaxTokens           int
	Temperature         *float64
	SystemPrompt        string

	ToolMode  agent.ToolMode
	QueryTool string
	RowLimit  int

	CacheEnabled bool
	CacheTTL     time.Duration
}

// AgentConfig derives the orchestrator settings.
func (c *AppConfig) AgentConfig() agent.Config {
	return agent.Config{
		SystemPrompt:  c.SystemPrompt,
		Model:         c.Provider.Model,
		MaxIterations: c.MaxIterations,
		MaxTokens:     c.MaxTokens,
		Temperature:   c.Temperature,
		ToolMode:      c.ToolMode,
		QueryTool:     c.QueryTool,
		RowLimit:      c.RowLimit,
	}
}

// Load loads all configuration from a .env file, environment variables, and config.yaml.
func Load(opts LoadOptions) (*AppConfig, error) {
	// In containers (GIN_MODE=release) configuration comes straight from the environment.
	if os.Getenv("GIN_MODE") != "release" && opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			log.Printf("WARNING: No %s file found for local development.", opts.EnvFile)
		}
	}

	var file FileConfig
	if opts.ConfigPath != "" {
		raw, err := os.ReadFile(opts.ConfigPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Printf("WARNING: %s not found, using built-in defaults.", opts.ConfigPath)
		case err != nil:
			return nil, fmt.Errorf("failed to read %s: %w", opts.ConfigPath, err)
		default:
			if err := yaml.Unmarshal(raw, &file); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", opts.ConfigPath, err)
			}
		}
	}

	cfg := &AppConfig{
		Port:         firstNonEmpty(opts.Port, os.Getenv("PORT"), "8080"),
		ToolEndpoint: os.Getenv("TOOL_ENDPOINT_URL"),
		ToolHeaders:  map[string]string{},
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		ModelCosts:   map[string]llm.TokenCosts{},

		MaxIterations:       orDefault(file.Agent.MaxIterations, agent.DefaultMaxIterations),
		StreamMaxIterations: orDefault(file.Agent.StreamMaxIterations, agent.DefaultStreamMaxIterations),
		MaxTokens:           file.Agent.MaxTokens,
		Temperature:         file.Agent.Temperature,
		SystemPrompt:        file.Agent.SystemPrompt,

		ToolMode:  agent.ToolMode(strings.ToLower(firstNonEmpty(file.Tools.Mode, string(agent.ToolModeDynamic)))),
		QueryTool: firstNonEmpty(file.Tools.QueryTool, tools.DefaultQueryTool),
		RowLimit:  orDefault(file.Tools.RowLimit, tools.DefaultRowLimit),

		CacheEnabled: file.Cache.Enabled == nil || *file.Cache.Enabled,
		CacheTTL:     file.Cache.TTL,
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}

	if cfg.ToolEndpoint == "" {
		log.Printf("WARNING: TOOL_ENDPOINT_URL is not set, defaulting to %s.", defaultToolEndpoint)
		cfg.ToolEndpoint = defaultToolEndpoint
	}
	if token := os.Getenv("TOOL_ENDPOINT_TOKEN"); token != "" {
		cfg.ToolHeaders["Authorization"] = "Bearer " + token
	}

	switch cfg.ToolMode {
	case agent.ToolModeDynamic, agent.ToolModeStatic:
	default:
		return nil, fmt.Errorf("tools.mode must be %q or %q, got %q", agent.ToolModeDynamic, agent.ToolModeStatic, cfg.ToolMode)
	}
	if cfg.MaxIterations < 0 || cfg.StreamMaxIterations < 0 {
		return nil, errors.New("iteration budgets must be positive")
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = aircraft.SchemaPrompt(file.Agent.Table)
	}

	provider := strings.ToLower(firstNonEmpty(os.Getenv("MODEL_PROVIDER"), llm.ProviderAnthropic))
	cfg.Provider = llm.ProviderConfig{
		Provider: provider,
		Model:    firstNonEmpty(os.Getenv("MODEL_ID"), llm.DefaultModel(provider)),
		BaseURL:  os.Getenv("MODEL_BASE_URL"),
	}
	switch provider {
	case llm.ProviderAnthropic:
		cfg.Provider.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case llm.ProviderOpenAI:
		cfg.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
	case llm.ProviderGemini:
		cfg.Provider.APIKey = os.Getenv("GEMINI_API_KEY")
	case llm.ProviderMistral:
		cfg.Provider.APIKey = os.Getenv("MISTRAL_API_KEY")
	default:
		return nil, fmt.Errorf("%w: %q", llm.ErrUnknownProvider, provider)
	}

	// Costs are configured per million tokens.
	costInput, errI := strconv.ParseFloat(os.Getenv("MODEL_COST_INPUT"), 64)
	costOutput, errO := strconv.ParseFloat(os.Getenv("MODEL_COST_OUTPUT"), 64)
	if errI == nil && errO == nil {
		cfg.ModelCosts[cfg.Provider.Model] = llm.TokenCosts{
			Input:  costInput / 1_000_000,
			Output: costOutput / 1_000_000,
		}
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func orDefault(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}
