package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Env is the process configuration read from the environment.
type Env struct {
	GatewayPort string `env:"GATEWAY_PORT" envDefault:"8081"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	NATSURL string `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	// RedisURL enables session persistence and the results sink when set.
	RedisURL     string        `env:"REDIS_URL"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SaveInterval time.Duration `env:"SAVE_INTERVAL" envDefault:"30s"`

	// OpenAIAPIKey enables model judging and speech when set.
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	RulesPath    string `env:"JEOPARDY_RULES"`
	EpisodesPath string `env:"EPISODES_PATH" envDefault:"jeopardy.json"`

	ArchiveDriver     string `env:"ARCHIVE_DRIVER" envDefault:"postgres"`
	ArchiveSQLitePath string `env:"ARCHIVE_SQLITE_PATH" envDefault:"archive.db"`
	ArchiveWorkers    int    `env:"ARCHIVE_WORKERS" envDefault:"2"`

	// OTelEndpoint is the OTLP/HTTP traces URL. Empty disables tracing.
	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnv reads .env when present, then the environment.
func LoadEnv() (Env, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}
	var e Env
	if err := ParseEnv(&e); err != nil {
		return Env{}, err
	}
	return e, nil
}

// SetupLogging installs the console writer and the global level. Unknown
// levels fall back to info.
func SetupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
