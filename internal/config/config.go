// Package config loads service and CLI settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/vntrieu/werewolf/internal/games"
	"github.com/vntrieu/werewolf/internal/oracle"
)

// Config holds every environment setting. Zero values are replaced by the
// envDefault tags on parse.
type Config struct {
	HTTPAddr    string `env:"WEREWOLF_HTTP_ADDR" envDefault:":8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"WEREWOLF_SQLITE_PATH"`
	TokenSecret string `env:"WEREWOLF_TOKEN_SECRET"`
	LogLevel    string `env:"WEREWOLF_LOG_LEVEL" envDefault:"info"`

	OracleBaseURL     string        `env:"WEREWOLF_ORACLE_BASE_URL" envDefault:"https://api.deepseek.com/v1"`
	OracleAPIKey      string        `env:"WEREWOLF_ORACLE_API_KEY"`
	OracleModel       string        `env:"WEREWOLF_ORACLE_MODEL" envDefault:"deepseek-chat"`
	OracleTemperature float64       `env:"WEREWOLF_ORACLE_TEMPERATURE" envDefault:"0.7"`
	OracleTimeout     time.Duration `env:"WEREWOLF_ORACLE_TIMEOUT" envDefault:"60s"`
	OracleMaxRetries  int           `env:"WEREWOLF_ORACLE_MAX_RETRIES" envDefault:"5"`

	MaxRounds           int     `env:"WEREWOLF_MAX_ROUNDS" envDefault:"20"`
	SheriffEnabled      bool    `env:"WEREWOLF_SHERIFF_ENABLED" envDefault:"true"`
	SheriffVoteWeight   float64 `env:"WEREWOLF_SHERIFF_VOTE_WEIGHT" envDefault:"1.5"`
	GuardMaySelfProtect bool    `env:"WEREWOLF_GUARD_SELF_PROTECT" envDefault:"false"`
	ParallelDecisions   bool    `env:"WEREWOLF_PARALLEL_DECISIONS" envDefault:"false"`

	// RateLimit is the number of games one client may start per minute; 0 disables the limit.
	RateLimit   int      `env:"WEREWOLF_RATE_LIMIT" envDefault:"20"`
	CORSOrigins []string `env:"WEREWOLF_CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	OTelEnabled  bool   `env:"WEREWOLF_OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint string `env:"WEREWOLF_OTEL_ENDPOINT"`
}

// Load reads .env files when present, then parses the environment.
func Load(files ...string) (Config, error) {
	_ = godotenv.Load(files...)
	return Parse()
}

// Parse parses the process environment without reading .env files.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.OracleBaseURL = strings.TrimSpace(cfg.OracleBaseURL)
	if cfg.MaxRounds <= 0 {
		return Config{}, fmt.Errorf("WEREWOLF_MAX_ROUNDS must be positive")
	}
	if cfg.SheriffVoteWeight <= 0 {
		return Config{}, fmt.Errorf("WEREWOLF_SHERIFF_VOTE_WEIGHT must be positive")
	}
	if cfg.OracleTimeout <= 0 {
		return Config{}, fmt.Errorf("WEREWOLF_ORACLE_TIMEOUT must be positive")
	}
	return cfg, nil
}

// Rules returns the default game rules from the environment.
func (c Config) Rules() games.RulesConfig {
	return games.RulesConfig{
		MaxRounds:           c.MaxRounds,
		SheriffEnabled:      c.SheriffEnabled,
		SheriffVoteWeight:   c.SheriffVoteWeight,
		GuardMaySelfProtect: c.GuardMaySelfProtect,
		ParallelDecisions:   c.ParallelDecisions,
	}
}

// OracleConfigured reports whether an oracle API key is set. Without one
// every agent plays its fallback policy.
func (c Config) OracleConfigured() bool {
	return strings.TrimSpace(c.OracleAPIKey) != ""
}

// Oracle returns the chat client settings.
func (c Config) Oracle() oracle.ClientConfig {
	return oracle.ClientConfig{
		BaseURL:     c.OracleBaseURL,
		APIKey:      c.OracleAPIKey,
		Model:       c.OracleModel,
		Temperature: c.OracleTemperature,
		Timeout:     c.OracleTimeout,
		MaxRetries:  c.OracleMaxRetries,
	}
}
