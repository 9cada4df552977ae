package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env            string
	ServiceName    string
	ServiceVersion string

	GoogleAPIKey string
	OpenAIKey    string
	GroqKey      string

	OtelExporterOTLPEndpoint string
	OtelExporterOTLPHeaders  string
	SentryDSN                string

	Port      string
	StaticDir string

	Model  ModelConfig
	Server ServerConfig
}

type ModelConfig struct {
	Provider       string `yaml:"provider"`
	Name           string `yaml:"name"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type ServerConfig struct {
	RateLimit           float64 `yaml:"rate_limit"`
	RateLimitBurst      int     `yaml:"rate_limit_burst"`
	ReadTimeoutSeconds  int     `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int     `yaml:"write_timeout_seconds"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                      os.Getenv("ENVIRONMENT"),
		ServiceName:              os.Getenv("SERVICE_NAME"),
		ServiceVersion:           os.Getenv("SERVICE_VERSION"),
		GoogleAPIKey:             os.Getenv("GOOGLE_API_KEY"),
		OpenAIKey:                os.Getenv("OPENAI_API_KEY"),
		GroqKey:                  os.Getenv("GROQ_API_KEY"),
		OtelExporterOTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelExporterOTLPHeaders:  os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"),
		SentryDSN:                os.Getenv("SENTRY_DSN"),
		Port:                     os.Getenv("PORT"),
		StaticDir:                os.Getenv("STATIC_DIR"),
	}
	if cfg.Env == "" {
		cfg.Env = os.Getenv("ENV")
	}

	// Load from YAML file if available
	if err := cfg.LoadFromYAML("config.yaml"); err != nil {
		return nil, fmt.Errorf("failed to load YAML config: %w", err)
	}

	// Set defaults
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "perfume-pal"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "1.0.0"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = "frontend"
	}

	cfg.SetModelDefaults()
	cfg.SetServerDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) LoadFromYAML(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is not an error
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlConfig struct {
		Model  ModelConfig  `yaml:"model"`
		Server ServerConfig `yaml:"server"`
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlConfig.Model.Provider != "" {
		c.Model.Provider = yamlConfig.Model.Provider
	}
	if yamlConfig.Model.Name != "" {
		c.Model.Name = yamlConfig.Model.Name
	}
	if yamlConfig.Model.BaseURL != "" {
		c.Model.BaseURL = yamlConfig.Model.BaseURL
	}
	if yamlConfig.Model.TimeoutSeconds > 0 {
		c.Model.TimeoutSeconds = yamlConfig.Model.TimeoutSeconds
	}

	if yamlConfig.Server.RateLimit > 0 {
		c.Server.RateLimit = yamlConfig.Server.RateLimit
	}
	if yamlConfig.Server.RateLimitBurst > 0 {
		c.Server.RateLimitBurst = yamlConfig.Server.RateLimitBurst
	}
	if yamlConfig.Server.ReadTimeoutSeconds > 0 {
		c.Server.ReadTimeoutSeconds = yamlConfig.Server.ReadTimeoutSeconds
	}
	if yamlConfig.Server.WriteTimeoutSeconds > 0 {
		c.Server.WriteTimeoutSeconds = yamlConfig.Server.WriteTimeoutSeconds
	}

	return nil
}

func (c *Config) SetModelDefaults() {
	if c.Model.Provider == "" {
		c.Model.Provider = "gemini"
	}
	c.Model.Provider = strings.ToLower(c.Model.Provider)
	if c.Model.TimeoutSeconds <= 0 {
		c.Model.TimeoutSeconds = 60
	}
}

// SetServerDefaults fills unset server settings. Rate limiting stays off
// unless rate_limit is set to a positive value.
func (c *Config) SetServerDefaults() {
	if c.Server.RateLimit < 0 {
		c.Server.RateLimit = 0
	}
	if c.Server.RateLimit > 0 && c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 10
	}
	if c.Server.ReadTimeoutSeconds <= 0 {
		c.Server.ReadTimeoutSeconds = 15
	}
	// Two sequential model calls have to fit inside one response.
	if c.Server.WriteTimeoutSeconds <= 0 {
		c.Server.WriteTimeoutSeconds = 2*c.Model.TimeoutSeconds + 15
	}
}

// ModelTimeout is the upper bound for a single model invocation.
func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.Model.TimeoutSeconds) * time.Second
}

// ModelAPIKey returns the credential for the configured model provider.
func (c *Config) ModelAPIKey() string {
	switch c.Model.Provider {
	case "openai":
		return c.OpenAIKey
	case "groq":
		return c.GroqKey
	default:
		return c.GoogleAPIKey
	}
}

// MissingCredentials lists the environment variables the configured provider
// needs but that are unset. A missing key is not fatal: the first model call fails instead.
func (c *Config) MissingCredentials() []string {
	if c.ModelAPIKey() != "" {
		return nil
	}
	switch c.Model.Provider {
	case "openai":
		return []string{"OPENAI_API_KEY"}
	case "groq":
		return []string{"GROQ_API_KEY"}
	default:
		return []string{"GOOGLE_API_KEY"}
	}
}

// OTLPHeaders parses OTEL_EXPORTER_OTLP_HEADERS ("k1=v1,k2=v2").
func (c *Config) OTLPHeaders() map[string]string {
	if c.OtelExporterOTLPHeaders == "" {
		return nil
	}
	headers := make(map[string]string)
	for _, pair := range strings.Split(c.OtelExporterOTLPHeaders, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		headers[k] = strings.TrimSpace(v)
	}
	return headers
}

func (c *Config) validate() error {
	switch c.Model.Provider {
	case "gemini", "openai", "groq":
	default:
		return fmt.Errorf("unsupported model provider %q", c.Model.Provider)
	}
	return nil
}
