package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned when no LLM credential is found in the environment
var ErrMissingAPIKey = errors.New("API_KEY environment variable is not set")

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Upload    UploadConfig    `yaml:"upload"`
	Extract   ExtractConfig   `yaml:"extract"`
	Session   SessionConfig   `yaml:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port      int    `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
}

type LLMConfig struct {
	Provider       string   `yaml:"provider"` // gemini, openai
	Model          string   `yaml:"model"`
	BaseURL        string   `yaml:"base_url"`
	Temperature    *float32 `yaml:"temperature"` // nil until set; 0 is a valid value
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	APIKey         string   `yaml:"-"` // environment only
}

type UploadConfig struct {
	MaxSizeMB int `yaml:"max_size_mb"`
}

// MaxBytes returns the upload limit in bytes
func (u UploadConfig) MaxBytes() int64 {
	return int64(u.MaxSizeMB) * 1024 * 1024
}

type ExtractConfig struct {
	PDFWorkers int `yaml:"pdf_workers"`
}

type SessionConfig struct {
	Secret      string `yaml:"secret"`
	TTLMinutes  int    `yaml:"ttl_minutes"`
	MaxSessions int    `yaml:"max_sessions"`
}

type RateLimitConfig struct {
	Requests         int `yaml:"requests"`          // per client IP, all routes
	AnalysisRequests int `yaml:"analysis_requests"` // per session, analysis triggers only
	WindowSeconds    int `yaml:"window_seconds"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultTemperature applies when llm.temperature is absent
const DefaultTemperature float32 = 0.2

// Load reads the YAML file at path, applies defaults and environment
// overrides, and requires the LLM credential to be present.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	cfg.applyEnv()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderGemini
	}
	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
	if c.LLM.Model == "" {
		switch c.LLM.Provider {
		case ProviderOpenAI:
			c.LLM.Model = "gpt-4o-mini"
		default:
			c.LLM.Model = "gemini-2.5-pro"
		}
	}
	if c.LLM.BaseURL == "" {
		switch c.LLM.Provider {
		case ProviderOpenAI:
			c.LLM.BaseURL = "https://api.openai.com/v1"
		default:
			c.LLM.BaseURL = "https://generativelanguage.googleapis.com"
		}
	}
	if c.LLM.Temperature == nil {
		t := DefaultTemperature
		c.LLM.Temperature = &t
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = 120
	}
	if c.Upload.MaxSizeMB == 0 {
		c.Upload.MaxSizeMB = 10
	}
	if c.Extract.PDFWorkers == 0 {
		c.Extract.PDFWorkers = 2
	}
	if c.Session.TTLMinutes == 0 {
		c.Session.TTLMinutes = 60
	}
	if c.Session.MaxSessions == 0 {
		c.Session.MaxSessions = 1000
	}
	if c.RateLimit.Requests == 0 {
		c.RateLimit.Requests = 100
	}
	if c.RateLimit.AnalysisRequests == 0 {
		c.RateLimit.AnalysisRequests = 10
	}
	if c.RateLimit.WindowSeconds == 0 {
		c.RateLimit.WindowSeconds = 60
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		c.Session.Secret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	c.LLM.APIKey = lookupAPIKey(strings.ToLower(c.LLM.Provider))
}

// lookupAPIKey prefers the provider specific variable and falls back to API_KEY
func lookupAPIKey(provider string) string {
	var specific string
	switch provider {
	case ProviderOpenAI:
		specific = "OPENAI_API_KEY"
	default:
		specific = "GEMINI_API_KEY"
	}
	if v := os.Getenv(specific); v != "" {
		return v
	}
	return os.Getenv("API_KEY")
}

// Validate reports configuration that the service cannot start with
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.LLM.APIKey == "" {
		return ErrMissingAPIKey
	}
	if t := c.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", *t)
	}
	if c.Upload.MaxSizeMB < 0 {
		return fmt.Errorf("upload.max_size_mb must be positive, got %d", c.Upload.MaxSizeMB)
	}
	if c.Extract.PDFWorkers < 0 {
		return fmt.Errorf("extract.pdf_workers must be positive, got %d", c.Extract.PDFWorkers)
	}
	return nil
}
