// Package database stores accounts and finished matches in Postgres.
package database

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Schema creates the tables used by this package. It is safe to run on
// every start.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	name        TEXT PRIMARY KEY,
	password    TEXT NOT NULL,
	rating      DOUBLE PRECISION NOT NULL,
	deviation   DOUBLE PRECISION NOT NULL,
	volatility  DOUBLE PRECISION NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS matches (
	event_id    UUID PRIMARY KEY,
	game_id     INTEGER NOT NULL,
	player1     TEXT NOT NULL,
	player2     TEXT NOT NULL,
	play_state1 TEXT NOT NULL,
	play_state2 TEXT NOT NULL,
	reason      TEXT NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);
`

// Store wraps the connection pool.
type Store struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

// Connect opens a pool for url, pings it and applies Schema.
func Connect(ctx context.Context, url string, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Infof("connected to database %s", config.ConnConfig.Database)
	return &Store{pool: pool, log: logger}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}
