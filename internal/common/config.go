package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Server      ServerConfig   `toml:"server"`
	Logging     LoggingConfig  `toml:"logging"`
	Auth        AuthConfig     `toml:"auth"`
	Market      MarketConfig   `toml:"market"`
	Research    ResearchConfig `toml:"research"`
	Claude      ClaudeConfig   `toml:"claude"`
	Gemini      GeminiConfig   `toml:"gemini"`
	Groq        GroqConfig     `toml:"groq"`
	LLM         LLMConfig      `toml:"llm"`
	Reports     ReportsConfig  `toml:"reports"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// AuthConfig holds the shared static credential required on report endpoints.
type AuthConfig struct {
	APIKey string `toml:"api_key"` // Value expected in the X-API-Key header
}

// MarketConfig contains market data provider configuration
type MarketConfig struct {
	APIKey    string        `toml:"api_key"`    // Market data API key
	BaseURL   string        `toml:"base_url"`   // Override for testing
	Timeout   time.Duration `toml:"timeout"`    // Per-request timeout
	RateLimit int           `toml:"rate_limit"` // Requests per second
}

// ResearchConfig contains web research provider configuration
type ResearchConfig struct {
	BaseURL    string        `toml:"base_url"`    // Override for testing
	Timeout    time.Duration `toml:"timeout"`     // Per-request timeout
	MaxResults int           `toml:"max_results"` // Max findings per search
	UserAgent  string        `toml:"user_agent"`  // User agent for search requests
	RateLimit  int           `toml:"rate_limit"`  // Requests per second
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Temperature float32 `toml:"temperature"`
}

// GroqConfig contains configuration for the OpenAI-compatible Groq endpoint
// used for llama-* models.
type GroqConfig struct {
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"` // Default: https://api.groq.com/openai/v1
	Temperature float32 `toml:"temperature"`
}

// LLMConfig contains cross-provider synthesis configuration
type LLMConfig struct {
	SupportedModels []string      `toml:"supported_models"` // Allow-list for the analyze endpoint
	Timeout         time.Duration `toml:"timeout"`          // Synthesis call timeout
}

// ReportsConfig contains report store configuration
type ReportsConfig struct {
	Capacity      int           `toml:"capacity"`       // Max stored reports, 0 = unbounded
	TTL           time.Duration `toml:"ttl"`            // Max report age, 0 = no expiry
	SweepSchedule string        `toml:"sweep_schedule"` // Cron spec for the TTL janitor (default: "@every 5m")
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		Market: MarketConfig{
			Timeout:   15 * time.Second,
			RateLimit: 10,
		},
		Research: ResearchConfig{
			Timeout:    20 * time.Second,
			MaxResults: 5,
			UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RateLimit:  1,
		},
		Claude: ClaudeConfig{
			MaxTokens:   8192,
			Temperature: 0.7,
		},
		Gemini: GeminiConfig{
			Temperature: 0.7,
		},
		Groq: GroqConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			SupportedModels: []string{
				"llama-3.3-70b-versatile",
				"llama-3.1-8b-instant",
				"claude-haiku-3-5-20241022",
				"gemini-2.0-flash",
			},
			Timeout: 2 * time.Minute,
		},
		Reports: ReportsConfig{
			Capacity:      500,
			TTL:           0, // No expiry by default
			SweepSchedule: "@every 5m",
		},
	}
}

// LoadFromFiles loads configuration from files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("AESTIMO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("AESTIMO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("AESTIMO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging configuration
	if level := os.Getenv("AESTIMO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("AESTIMO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Auth configuration
	if apiKey := os.Getenv("AESTIMO_API_KEY"); apiKey != "" {
		config.Auth.APIKey = apiKey
	}

	// Market data configuration
	if apiKey := os.Getenv("AESTIMO_MARKET_API_KEY"); apiKey != "" {
		config.Market.APIKey = apiKey
	}
	if baseURL := os.Getenv("AESTIMO_MARKET_BASE_URL"); baseURL != "" {
		config.Market.BaseURL = baseURL
	}
	if timeout := os.Getenv("AESTIMO_MARKET_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Market.Timeout = d
		}
	}

	// Research configuration
	if baseURL := os.Getenv("AESTIMO_RESEARCH_BASE_URL"); baseURL != "" {
		config.Research.BaseURL = baseURL
	}
	if timeout := os.Getenv("AESTIMO_RESEARCH_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Research.Timeout = d
		}
	}
	if maxResults := os.Getenv("AESTIMO_RESEARCH_MAX_RESULTS"); maxResults != "" {
		if mr, err := strconv.Atoi(maxResults); err == nil && mr > 0 {
			config.Research.MaxResults = mr
		}
	}

	// Provider API keys (standard env vars first, AESTIMO_ prefix takes priority)
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("AESTIMO_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("AESTIMO_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("GROQ_API_KEY"); apiKey != "" {
		config.Groq.APIKey = apiKey
	}
	if apiKey := os.Getenv("AESTIMO_GROQ_API_KEY"); apiKey != "" {
		config.Groq.APIKey = apiKey
	}
	if baseURL := os.Getenv("AESTIMO_GROQ_BASE_URL"); baseURL != "" {
		config.Groq.BaseURL = baseURL
	}

	// LLM configuration
	if models := os.Getenv("AESTIMO_LLM_SUPPORTED_MODELS"); models != "" {
		supported := []string{}
		for _, m := range strings.Split(models, ",") {
			if trimmed := strings.TrimSpace(m); trimmed != "" {
				supported = append(supported, trimmed)
			}
		}
		if len(supported) > 0 {
			config.LLM.SupportedModels = supported
		}
	}
	if timeout := os.Getenv("AESTIMO_LLM_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.LLM.Timeout = d
		}
	}

	// Report store configuration
	if capacity := os.Getenv("AESTIMO_REPORTS_CAPACITY"); capacity != "" {
		if c, err := strconv.Atoi(capacity); err == nil && c >= 0 {
			config.Reports.Capacity = c
		}
	}
	if ttl := os.Getenv("AESTIMO_REPORTS_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			config.Reports.TTL = d
		}
	}
	if schedule := os.Getenv("AESTIMO_REPORTS_SWEEP_SCHEDULE"); schedule != "" {
		config.Reports.SweepSchedule = schedule
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsSupportedModel reports whether the model is in the configured allow-list.
func (c *Config) IsSupportedModel(model string) bool {
	for _, m := range c.LLM.SupportedModels {
		if strings.EqualFold(m, model) {
			return true
		}
	}
	return false
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
