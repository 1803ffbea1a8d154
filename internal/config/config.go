package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the reko API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Encoder  EncoderConfig  `yaml:"encoder"`
	Search   SearchConfig   `yaml:"search"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AuthConfig holds API authentication settings. With no keys configured
// authentication is disabled.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the embedding cache store connection. Optional:
// with no addrs the service re-encodes the catalog on every start.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a cache store is configured.
func (d DatabaseConfig) Enabled() bool { return len(d.Addrs) > 0 }

// CatalogConfig holds catalog ingestion settings.
type CatalogConfig struct {
	Path string `yaml:"path"` // CSV file
}

// EncoderConfig selects and configures the embedding providers. The text
// provider also embeds category prompts; image queries need the CLIP
// service regardless of the text provider.
type EncoderConfig struct {
	Provider string       `yaml:"provider"` // openai | clip
	OpenAI   OpenAIConfig `yaml:"openai"`
	CLIP     CLIPConfig   `yaml:"clip"`
}

// OpenAIConfig holds OpenAI-compatible embedding provider settings.
type OpenAIConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// CLIPConfig holds CLIP embedding service settings.
type CLIPConfig struct {
	BaseURL    string `yaml:"base_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// SearchConfig holds ranking and index-build tuning.
type SearchConfig struct {
	Diversity      float64 `yaml:"diversity"`       // MMR trade-off in [0,1]
	Alpha          float64 `yaml:"alpha"`           // image weight for fused queries
	MinUnique      int     `yaml:"min_unique"`      // floor of distinct products per answer
	EncodeBatch    int     `yaml:"encode_batch"`    // corpus texts per encoder call
	EncodeWorkers  int     `yaml:"encode_workers"`  // concurrent encoder calls at build
	CacheNamespace string  `yaml:"cache_namespace"` // embedding cache isolation key
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Encoder.Provider == "" {
		c.Encoder.Provider = "openai"
	}
	if c.Encoder.CLIP.TimeoutSec <= 0 {
		c.Encoder.CLIP.TimeoutSec = 30
	}
	if c.Search.Diversity <= 0 {
		c.Search.Diversity = 0.3
	}
	if c.Search.Alpha <= 0 {
		c.Search.Alpha = 0.6
	}
	if c.Search.MinUnique <= 0 {
		c.Search.MinUnique = 2
	}
	if c.Search.EncodeBatch <= 0 {
		c.Search.EncodeBatch = 64
	}
	if c.Search.EncodeWorkers <= 0 {
		c.Search.EncodeWorkers = 4
	}
	if c.Search.CacheNamespace == "" {
		switch c.Encoder.Provider {
		case "clip":
			c.Search.CacheNamespace = "clip"
		default:
			c.Search.CacheNamespace = c.Encoder.OpenAI.Model
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required")
	}
	switch c.Encoder.Provider {
	case "openai":
		if c.Encoder.OpenAI.Model == "" {
			return fmt.Errorf("encoder.openai.model is required")
		}
	case "clip":
		if c.Encoder.CLIP.BaseURL == "" {
			return fmt.Errorf("encoder.clip.base_url is required")
		}
	default:
		return fmt.Errorf("encoder.provider must be \"openai\" or \"clip\", got %q", c.Encoder.Provider)
	}
	if c.Search.Diversity > 1 {
		return fmt.Errorf("search.diversity must be in [0, 1], got %v", c.Search.Diversity)
	}
	if c.Search.Alpha > 1 {
		return fmt.Errorf("search.alpha must be in [0, 1], got %v", c.Search.Alpha)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
