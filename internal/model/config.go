package model

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config is the complete application configuration. Commands start from
// DefaultConfig and overlay config-file values, environment and flags.
type Config struct {
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	Checks       ChecksConfig      `yaml:"checks" mapstructure:"checks"`
	Retrieve     RetrieveConfig    `yaml:"retrieve" mapstructure:"retrieve"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Store        StoreConfig       `yaml:"store" mapstructure:"store"`
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Server       ServerConfig      `yaml:"server" mapstructure:"server"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
}

// HTTPConfig covers every outbound client: probes, search, page fetches
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS  bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy    string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// ChecksConfig tunes the deterministic check battery
type ChecksConfig struct {
	ProbeTimeout    time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`       // Per-URL probe deadline
	ProbeWorkers    int           `yaml:"probe_workers" mapstructure:"probe_workers"`       // Concurrent probes per claim
	MinURLRatio     float64       `yaml:"min_url_ratio" mapstructure:"min_url_ratio"`       // Reachable fraction required to pass
	CredibilityFile string        `yaml:"credibility_file" mapstructure:"credibility_file"` // Optional YAML domain-score override
}

// RetrieveConfig points at the evidence search endpoint
type RetrieveConfig struct {
	BaseURL    string        `yaml:"base_url" mapstructure:"base_url"` // SearxNG-compatible instance
	MaxResults int           `yaml:"max_results" mapstructure:"max_results"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// CacheConfig controls the layered retrieval cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// StoreConfig locates the commitment database
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // Badger directory; empty disables persistence
}

// LLMConfig configures the optional answer generator
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, "" (disabled)
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"` // Never rendered to config files
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// ConcurrencyConfig bounds the verification fan-out
type ConcurrencyConfig struct {
	VerifyWorkers int `yaml:"verify_workers" mapstructure:"verify_workers"`
}

// RateLimitConfig bounds outbound traffic per domain
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &Config{
		HTTP: HTTPConfig{
			Timeout:      2 * time.Minute,
			UserAgent:    "Alethia/0.1 (+https://github.com/ppiankov/alethia)",
			MaxBodyBytes: 2_000_000,
		},
		Checks: ChecksConfig{
			ProbeTimeout: 5 * time.Second,
			ProbeWorkers: 3,
			MinURLRatio:  0.5,
		},
		Retrieve: RetrieveConfig{
			MaxResults: 10,
			Timeout:    10 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       filepath.Join(home, ".alethia", "cache"),
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Store: StoreConfig{
			Path: filepath.Join(home, ".alethia", "db"),
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 1000,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Concurrency: ConcurrencyConfig{
			VerifyWorkers: runtime.NumCPU(),
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             5,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}
