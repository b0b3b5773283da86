// Package config loads companion settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all companion configuration.
type Config struct {
	DBPath string `yaml:"db_path"`

	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Media     MediaConfig     `yaml:"media"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the HTTP relay.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	HistoryLimit    int    `yaml:"history_limit"`
	MaxMemories     int    `yaml:"max_memories"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// LLMConfig configures the chat completion provider.
type LLMConfig struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	VisionModel string `yaml:"vision_model"`
	MaxTokens   int    `yaml:"max_tokens"`
	Timeout     string `yaml:"timeout"`
}

// RateLimitConfig configures per-device request limits.
type RateLimitConfig struct {
	Backend  string `yaml:"backend"` // memory, redis
	Requests int    `yaml:"requests"`
	Window   string `yaml:"window"`
	RedisURL string `yaml:"redis_url"`
}

// MediaConfig configures the CDN used for photo and video sharing.
type MediaConfig struct {
	CloudName    string `yaml:"cloud_name"`
	APIKey       string `yaml:"api_key"`
	APISecret    string `yaml:"api_secret"`
	Folder       string `yaml:"folder"`
	UploadPreset string `yaml:"upload_preset"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Rate limit backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DBPath: filepath.Join(homeDir(), ".companion", "companion.db"),

		Server: ServerConfig{
			Addr:            ":3000",
			HistoryLimit:    20,
			MaxMemories:     15,
			ShutdownTimeout: "10s",
		},

		LLM: LLMConfig{
			BaseURL:     "https://openrouter.ai/api/v1",
			Model:       "x-ai/grok-4.1-fast:free",
			VisionModel: "meta-llama/llama-4-scout:free",
			MaxTokens:   150,
			Timeout:     "60s",
		},

		RateLimit: RateLimitConfig{
			Backend:  BackendMemory,
			Requests: 30,
			Window:   "60s",
		},

		Media: MediaConfig{
			Folder:       "jia-uploads",
			UploadPreset: "jia_unsigned",
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns $COMPANION_CONFIG or ~/.companion/config.yaml.
func DefaultPath() string {
	if p := os.Getenv("COMPANION_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(homeDir(), ".companion", "config.yaml")
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. Environment variables override file values in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects settings the relay cannot run with.
func (c *Config) Validate() error {
	switch c.RateLimit.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.RateLimit.RedisURL == "" {
			return fmt.Errorf("rate_limit.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown rate_limit.backend %q", c.RateLimit.Backend)
	}
	if c.Server.HistoryLimit < 0 {
		return fmt.Errorf("server.history_limit must not be negative")
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if p := os.Getenv("COMPANION_DB"); p != "" {
		c.DBPath = p
	}
	if addr := os.Getenv("COMPANION_ADDR"); addr != "" {
		c.Server.Addr = addr
	}

	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if url := os.Getenv("COMPANION_LLM_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}
	if m := os.Getenv("COMPANION_LLM_MODEL"); m != "" {
		c.LLM.Model = m
	}

	if url := os.Getenv("COMPANION_REDIS_URL"); url != "" {
		c.RateLimit.RedisURL = url
		c.RateLimit.Backend = BackendRedis
	}

	if v := os.Getenv("CLOUDINARY_CLOUD_NAME"); v != "" {
		c.Media.CloudName = v
	}
	if v := os.Getenv("CLOUDINARY_API_KEY"); v != "" {
		c.Media.APIKey = v
	}
	if v := os.Getenv("CLOUDINARY_API_SECRET"); v != "" {
		c.Media.APISecret = v
	}
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 60*time.Second)
}

// GetRateWindow returns the rate limit window as a duration.
func (c *Config) GetRateWindow() time.Duration {
	return parseDuration(c.RateLimit.Window, time.Minute)
}

// GetShutdownTimeout returns how long the relay waits for in-flight requests.
func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func homeDir() string {
	home, _ := os.UserHomeDir()
	return home
}
