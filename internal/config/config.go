// Package config loads qrlens settings from a TOML file, the environment and
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/selimozcann/qrlens/internal/logger"
	"github.com/selimozcann/qrlens/internal/reputation"
	"github.com/selimozcann/qrlens/internal/runner"
	"github.com/selimozcann/qrlens/internal/trace"
)

const (
	defaultConfigPath = "qrlens.toml"
	configEnvVar      = "QRLENS_CONFIG"
	envPrefix         = "QRLENS"

	// APIKeyEnvVar is read when reputation.api_key is not configured.
	APIKeyEnvVar = "YANDEX_SB_API_KEY"
)

// Config contains every runtime option of qrlens.
type Config struct {
	Logging    logger.Config     `mapstructure:"logging"`
	Data       DataConfig        `mapstructure:"data"`
	Model      ModelConfig       `mapstructure:"model"`
	Resolver   ResolverConfig    `mapstructure:"resolver"`
	Reputation reputation.Config `mapstructure:"reputation"`
	Runner     runner.Config     `mapstructure:"runner"`
	Server     ServerConfig      `mapstructure:"server"`
}

// DataConfig points at the whitelist files.
type DataConfig struct {
	SBPWhitelist string `mapstructure:"sbp_whitelist"`
	Brands       string `mapstructure:"brands"`
}

// ModelConfig holds the statistical model location.
type ModelConfig struct {
	Path string `mapstructure:"path"`
}

// ResolverConfig holds redirect resolution settings.
type ResolverConfig struct {
	MaxHops   int           `mapstructure:"max_hops"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	Retries   int           `mapstructure:"retries"`
	Insecure  bool          `mapstructure:"insecure"`
	Proxy     string        `mapstructure:"proxy"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Listen       string        `mapstructure:"listen"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ValidateLogLevel ensures the user-provided log level matches the supported set.
func ValidateLogLevel(level string) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(level)] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", level)
	}
	return nil
}

// Load reads the configuration. An empty path falls back to $QRLENS_CONFIG
// and then to ./qrlens.toml; only the implicit default may be absent.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	explicit := true
	if path == "" {
		path = strings.TrimSpace(os.Getenv(configEnvVar))
	}
	if path == "" {
		path = defaultConfigPath
		explicit = false
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if _, err := os.Stat(path); err == nil || explicit {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Reputation.APIKey == "" {
		cfg.Reputation.APIKey = strings.TrimSpace(os.Getenv(APIKeyEnvVar))
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.output_paths", []string{"stderr"})
	v.SetDefault("data.sbp_whitelist", "data/sbp_whitelist.txt")
	v.SetDefault("data.brands", "data/whitelist_brands.txt")
	v.SetDefault("model.path", "models/model.yaml")
	v.SetDefault("resolver.max_hops", trace.DefaultMaxHops)
	v.SetDefault("resolver.timeout", trace.DefaultTimeout)
	v.SetDefault("resolver.user_agent", "")
	v.SetDefault("resolver.retries", 0)
	v.SetDefault("resolver.insecure", false)
	v.SetDefault("resolver.proxy", "")
	v.SetDefault("reputation.endpoint", reputation.DefaultEndpoint)
	v.SetDefault("reputation.api_key", "")
	v.SetDefault("reputation.timeout", reputation.DefaultTimeout)
	v.SetDefault("reputation.client_id", reputation.DefaultClientID)
	v.SetDefault("reputation.client_version", reputation.DefaultClientVersion)
	v.SetDefault("runner.workers", runner.DefaultWorkers)
	v.SetDefault("runner.rate_limit", 0)
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
}

// Validate checks option ranges.
func Validate(cfg *Config) error {
	if err := ValidateLogLevel(cfg.Logging.Level); err != nil {
		return err
	}
	if cfg.Resolver.MaxHops < 1 {
		return errors.New("resolver.max_hops must be at least 1")
	}
	if cfg.Resolver.Timeout <= 0 {
		return errors.New("resolver.timeout must be positive")
	}
	if cfg.Resolver.Retries < 0 {
		return errors.New("resolver.retries must not be negative")
	}
	if cfg.Reputation.Timeout <= 0 {
		return errors.New("reputation.timeout must be positive")
	}
	if cfg.Runner.Workers < 1 {
		return errors.New("runner.workers must be at least 1")
	}
	if cfg.Runner.RateLimit < 0 {
		return errors.New("runner.rate_limit must not be negative")
	}
	if cfg.Server.Listen == "" {
		return errors.New("server.listen is required")
	}
	if _, _, err := net.SplitHostPort(cfg.Server.Listen); err != nil {
		return fmt.Errorf("invalid server.listen %s: %w", cfg.Server.Listen, err)
	}
	return nil
}
