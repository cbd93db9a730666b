package model

import (
	"os"
	"runtime"
	"time"
)

// Config holds the complete process configuration
type Config struct {
	HTTP        HTTPConfig        `yaml:"http" json:"http"`
	LLM         LLMConfig         `yaml:"llm" json:"llm"`
	Cache       CacheConfig       `yaml:"cache" json:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" json:"concurrency"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" json:"rate_limit"`
	Output      OutputConfig      `yaml:"output" json:"output"`
}

// HTTPConfig configures the page fetcher
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" json:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" json:"http_proxy,omitempty"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" json:"https_proxy,omitempty"`
	NoProxy       string        `yaml:"no_proxy,omitempty" json:"no_proxy,omitempty"`
}

// LLMConfig configures the extraction providers. The engine is "configured"
// when either a custom endpoint or an OpenAI API key is present; the absence
// of both is fatal at first use, not at load time.
type LLMConfig struct {
	CustomEndpoint string        `yaml:"custom_endpoint,omitempty" json:"custom_endpoint,omitempty"`
	CustomAPIKey   string        `yaml:"custom_api_key,omitempty" json:"-"`
	CustomModel    string        `yaml:"custom_model,omitempty" json:"custom_model,omitempty"`
	OpenAIAPIKey   string        `yaml:"openai_api_key,omitempty" json:"-"`
	OpenAIModel    string        `yaml:"openai_model,omitempty" json:"openai_model,omitempty"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	MaxTokens      int           `yaml:"max_tokens" json:"max_tokens"`
	Temperature    float32       `yaml:"temperature" json:"temperature"`
}

// Configured reports whether at least one provider can be constructed
func (c LLMConfig) Configured() bool {
	return c.CustomEndpoint != "" || c.OpenAIAPIKey != ""
}

// CacheConfig configures the extraction result cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	Dir     string        `yaml:"dir" json:"dir"`
	TTL     time.Duration `yaml:"ttl" json:"ttl"`
}

// ConcurrencyConfig bounds the batch worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" json:"workers"`
}

// RateLimitConfig bounds per-domain fetch rates
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `yaml:"burst" json:"burst"`
}

// OutputConfig controls CLI output behavior
type OutputConfig struct {
	Verbose bool `yaml:"verbose" json:"verbose"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "fundextract/0.1 (+https://github.com/plan2fund/fundextract)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
		},
		LLM: LLMConfig{
			Timeout:     90 * time.Second,
			MaxTokens:   4000,
			Temperature: 0.3,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     defaultCacheDir(),
			TTL:     24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 1.0,
			Burst:             3,
		},
	}
}

// LoadEnv fills provider credentials from conventional environment variables
// unless already set by flags or config file.
func (c *Config) LoadEnv() {
	if c.LLM.CustomEndpoint == "" {
		c.LLM.CustomEndpoint = os.Getenv("CUSTOM_LLM_ENDPOINT")
	}
	if c.LLM.CustomAPIKey == "" {
		c.LLM.CustomAPIKey = os.Getenv("CUSTOM_LLM_API_KEY")
	}
	if c.LLM.CustomModel == "" {
		c.LLM.CustomModel = os.Getenv("CUSTOM_LLM_MODEL")
	}
	if c.LLM.OpenAIAPIKey == "" {
		c.LLM.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.LLM.OpenAIModel == "" {
		c.LLM.OpenAIModel = os.Getenv("OPENAI_MODEL")
	}
	if raw := os.Getenv("CUSTOM_LLM_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			c.LLM.Timeout = d
		}
	}
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fundextract-cache"
	}
	return home + "/.fundextract/cache"
}
