package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix         = "TRIAGE_"
	envConfigFile     = "TRIAGE_CONFIG"
	defaultConfigFile = "config.yaml"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Auth     AuthConfig     `koanf:"auth"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	LLM      LLMConfig      `koanf:"llm"`
	Triage   TriageConfig   `koanf:"triage"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Port           string        `koanf:"port"`
	FrontendOrigin string        `koanf:"frontend_origin"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
	RateLimit      int           `koanf:"rate_limit"`
	RateWindow     time.Duration `koanf:"rate_window"`
}

type AuthConfig struct {
	JWTSecret        string        `koanf:"jwt_secret"`
	TokenTTL         time.Duration `koanf:"token_ttl"`
	ClientID         string        `koanf:"client_id"`
	ClientSecretHash string        `koanf:"client_secret_hash"`
}

type DatabaseConfig struct {
	URL       string `koanf:"url"`
	MasterKey string `koanf:"master_key"`
}

type RedisConfig struct {
	URL string `koanf:"url"`
}

// LLMConfig describes the provider used when no provider registry database
// is configured.
type LLMConfig struct {
	Provider             string        `koanf:"provider"`
	APIKey               string        `koanf:"api_key"`
	Model                string        `koanf:"model"`
	BaseURL              string        `koanf:"base_url"`
	Temperature          float64       `koanf:"temperature"`
	MaxTokens            int           `koanf:"max_tokens"`
	MaxRequestsPerMinute int           `koanf:"max_requests_per_minute"`
	Timeout              time.Duration `koanf:"timeout"`
	HealthInterval       time.Duration `koanf:"health_interval"`
}

type TriageConfig struct {
	Timezone string `koanf:"timezone"`
	// Deadline bounds one triage request, single or batch. Defaults to two
	// thirds of server.write_timeout.
	Deadline time.Duration `koanf:"deadline"`
}

type LogConfig struct {
	Level       string `koanf:"level"`
	Development bool   `koanf:"development"`
}

// Load reads path (or TRIAGE_CONFIG, or ./config.yaml when present) and then
// overlays TRIAGE_* environment variables. A double underscore separates
// sections: TRIAGE_LLM__API_KEY sets llm.api_key.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(envConfigFile)
	}
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, envPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func (c *Config) setDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.FrontendOrigin == "" {
		c.Server.FrontendOrigin = "http://localhost:5173"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 60
	}
	if c.Server.RateWindow == 0 {
		c.Server.RateWindow = time.Minute
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 500
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.3
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 15 * time.Second
	}
	if c.Triage.Deadline == 0 {
		c.Triage.Deadline = c.Server.WriteTimeout * 2 / 3
	}
	if c.LLM.HealthInterval == 0 {
		c.LLM.HealthInterval = 5 * time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.LLM.Provider != "" && c.LLM.APIKey == "" {
		errs = append(errs, errors.New("llm.api_key is required when llm.provider is set"))
	}
	if c.Database.URL != "" && len(c.Database.MasterKey) < 32 {
		errs = append(errs, errors.New("database.master_key must be at least 32 bytes"))
	}
	if c.LLM.Timeout < 0 {
		errs = append(errs, errors.New("llm.timeout must not be negative"))
	}
	if c.Triage.Deadline < 0 {
		errs = append(errs, errors.New("triage.deadline must not be negative"))
	}
	if c.Server.WriteTimeout > 0 && c.Triage.Deadline >= c.Server.WriteTimeout {
		errs = append(errs, errors.New("triage.deadline must be shorter than server.write_timeout"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("triage.timezone: %w", err))
	}
	return errors.Join(errs...)
}

// Location is the zone business hours are evaluated in; nil means local time.
func (c *Config) Location() (*time.Location, error) {
	if c.Triage.Timezone == "" {
		return nil, nil
	}
	return time.LoadLocation(c.Triage.Timezone)
}
