// Package config reads process configuration from the environment. A .env
// file in the working directory is loaded first.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

// Server configures cmd/server.
type Server struct {
	Port                 int           `env:"CARDLINK_PORT"             envDefault:"8080"`
	MatchmakerInterval   time.Duration `env:"MATCHMAKER_INTERVAL"       envDefault:"7s"`
	MatchmakerMaxPerTick int           `env:"MATCHMAKER_MAX_PER_TICK"   envDefault:"5"`
	WriterIdle           time.Duration `env:"CHANNEL_WRITER_IDLE"       envDefault:"5ms"`
	MinAccountNameLength int           `env:"MIN_ACCOUNT_NAME_LENGTH"   envDefault:"3"`
	TokenExpireTime      string        `env:"TOKEN_EXPIRE_TIME"         envDefault:"0"`
	TokenPrivateKeyPath  string        `env:"TOKEN_PRIVATE_KEY_PATH"`
	TokenPublicKeyPath   string        `env:"TOKEN_PUBLIC_KEY_PATH"`
	SkipMulligan         bool          `env:"MATCH_SKIP_MULLIGAN"       envDefault:"false"`
	DatabaseURL          string        `env:"DATABASE_URL"`
	RedisAddr            string        `env:"REDIS_ADDR"`
	RedisDB              int           `env:"REDIS_DB"                  envDefault:"0"`
	MatchEventsQueue     string        `env:"MATCH_EVENTS_QUEUE"        envDefault:"cardlink_match_events"`
	LogLevel             string        `env:"LOG_LEVEL"                 envDefault:"info"`
}

// Client configures cmd/client.
type Client struct {
	Server   string `env:"CARDLINK_SERVER"   envDefault:"http://localhost:8080"`
	Account  string `env:"CARDLINK_ACCOUNT"  envDefault:"bot"`
	Password string `env:"CARDLINK_PASSWORD"`
	Deck     string `env:"CARDLINK_DECK"`
	Games    int    `env:"CARDLINK_GAMES"    envDefault:"1"`
	Bots     int    `env:"CARDLINK_BOTS"     envDefault:"1"`
	LogDir   string `env:"CARDLINK_LOG_DIR"`
	LogLevel string `env:"LOG_LEVEL"         envDefault:"info"`
}

// Historian configures cmd/historian.
type Historian struct {
	DatabaseURL      string        `env:"DATABASE_URL,required,notEmpty"`
	RedisAddr        string        `env:"REDIS_ADDR"            envDefault:"localhost:6379"`
	RedisDB          int           `env:"REDIS_DB"              envDefault:"0"`
	MatchEventsQueue string        `env:"MATCH_EVENTS_QUEUE"    envDefault:"cardlink_match_events"`
	BatchSize        int           `env:"HISTORIAN_BATCH_SIZE"  envDefault:"20"`
	FlushDelay       time.Duration `env:"HISTORIAN_FLUSH_DELAY" envDefault:"500ms"`
	LogLevel         string        `env:"LOG_LEVEL"             envDefault:"info"`
}

// Load parses the environment into target.
func Load[T any]() (T, error) {
	var cfg T
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// NewLogger builds the process logger at level.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}
