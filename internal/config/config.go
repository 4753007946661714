// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Runtime environments accepted by APP_ENV.
const (
	EnvTest        = "test"
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all configuration for the application.
type Config struct {
	Env            string `mapstructure:"APP_ENV"`
	Port           int    `mapstructure:"PORT"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	AppName        string `mapstructure:"APP_NAME"`
	AppVersion     string `mapstructure:"APP_VERSION"`
	AppDescription string `mapstructure:"APP_DESCRIPTION"`

	DatabaseHost     string `mapstructure:"DATABASE_HOST"`
	DatabasePort     int    `mapstructure:"DATABASE_PORT"`
	DatabaseUsername string `mapstructure:"DATABASE_USERNAME"`
	DatabasePassword string `mapstructure:"DATABASE_PASSWORD"`
	DatabaseName     string `mapstructure:"DATABASE_NAME"`

	RedisHost     string `mapstructure:"REDIS_HOST"`
	RedisPort     int    `mapstructure:"REDIS_PORT"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	GithubToken   string `mapstructure:"GITHUB_TOKEN"`
	TriggerSecret string `mapstructure:"TRIGGER_SECRET"`

	RepositoriesFile string        `mapstructure:"REPOSITORIES_FILE"`
	StatsInterval    time.Duration `mapstructure:"STATS_INTERVAL"`
	CacheTTL         time.Duration `mapstructure:"CACHE_TTL"`

	// Repositories is the default sync list, loaded from RepositoriesFile.
	Repositories []string `mapstructure:"-"`
}

// LoadConfig reads configuration from .env file and/or environment variables,
// then loads the default repository list. Validation failures are aggregated
// into a single error naming every missing or invalid field.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_NAME", "good-first-issues")
	v.SetDefault("APP_VERSION", "0.0.0")
	v.SetDefault("APP_DESCRIPTION", "Aggregates good-first-issue metadata from GitHub")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REPOSITORIES_FILE", "repositories.toml")
	v.SetDefault("STATS_INTERVAL", "15m")
	v.SetDefault("CACHE_TTL", "60s")

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if file not found

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	repos, err := loadRepositories(cfg.RepositoriesFile)
	if err != nil {
		return nil, err
	}
	cfg.Repositories = repos

	return &cfg, nil
}

// validate checks every field and reports all problems at once, so a broken
// deployment surfaces the complete list instead of one field per restart.
func (c *Config) validate() error {
	var problems []string

	switch c.Env {
	case EnvTest, EnvDevelopment, EnvProduction:
	default:
		problems = append(problems, fmt.Sprintf("APP_ENV must be one of test/development/production, got %q", c.Env))
	}
	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT must be a valid port number, got %d", c.Port))
	}
	if c.DatabaseHost == "" {
		problems = append(problems, "DATABASE_HOST is required")
	}
	if c.DatabaseUsername == "" {
		problems = append(problems, "DATABASE_USERNAME is required")
	}
	if c.DatabasePassword == "" {
		problems = append(problems, "DATABASE_PASSWORD is required")
	}
	if c.DatabaseName == "" {
		problems = append(problems, "DATABASE_NAME is required")
	}
	if c.RedisHost == "" {
		problems = append(problems, "REDIS_HOST is required")
	}
	if c.GithubToken == "" {
		problems = append(problems, "GITHUB_TOKEN is required")
	}
	if c.TriggerSecret == "" {
		problems = append(problems, "TRIGGER_SECRET is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// loadRepositories reads the default repository list from a TOML file with a
// single top-level `repositories` array of 'host/owner/repo' URLs.
func loadRepositories(path string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	repos := v.GetStringSlice("repositories")
	if len(repos) == 0 {
		return nil, fmt.Errorf("%s must contain at least one repository", path)
	}
	return repos, nil
}

// DatabaseURL builds the postgres connection string used by pgx and the
// migration runner.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DatabaseUsername, c.DatabasePassword, c.DatabaseHost, c.DatabasePort, c.DatabaseName)
}

// RedisAddr is the host:port address shared by the queue and the cache.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}
