// Package postgres implements the shared relational store described in
// spec §6: the watchlist that C7 reads through a periodically-refreshed
// in-memory snapshot, plus the access-control and CEX-label tables that
// belong to the out-of-scope chat-bot command surface but whose schema is
// still part of this store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/blocksentry/watchtower/internal/pkg/errkind"
	"github.com/blocksentry/watchtower/internal/pkg/resilience/retry"
)

// Config identifies the connection target, mirroring the sql: block of
// the loaded configuration.
type Config struct {
	Host     string
	User     string
	Password string
	Database string
}

func (c Config) dsn() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=disable", c.Host, c.User, c.Password, c.Database)
}

// Store wraps the shared database connection used by WalletStorage and
// SnapshotStore.
type Store struct {
	db *sql.DB
	rt retry.Retry
}

// Open connects to the configured database, retrying transient dial
// failures, and ensures the schema exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := sql.Open("postgres", cfg.dsn())
	if err != nil {
		return nil, &errkind.ConfigError{Field: "sql", Err: err}
	}

	s := &Store{db: db, rt: retry.New()}
	if err := s.rt.Execute(ctx, func() error { return db.PingContext(ctx) }); err != nil {
		return nil, &errkind.ConfigError{Field: "sql", Err: fmt.Errorf("connecting to %s@%s/%s: %w", cfg.User, cfg.Host, cfg.Database, err)}
	}

	if err := s.migrate(ctx); err != nil {
		return nil, &errkind.ConfigError{Field: "sql", Err: err}
	}
	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS access (
	chat_id  TEXT NOT NULL,
	bot_id   TEXT NOT NULL,
	username TEXT NOT NULL DEFAULT '',
	alltx    BOOLEAN NOT NULL DEFAULT true,
	swap     BOOLEAN NOT NULL DEFAULT true,
	deploy   BOOLEAN NOT NULL DEFAULT true,
	PRIMARY KEY (chat_id, bot_id)
);

CREATE TABLE IF NOT EXISTS watchlist (
	address  TEXT NOT NULL,
	chat_id  TEXT NOT NULL,
	bot_id   TEXT NOT NULL,
	username TEXT NOT NULL DEFAULT '',
	name     TEXT NOT NULL DEFAULT '',
	tx_in    BOOLEAN NOT NULL DEFAULT false,
	tx_out   BOOLEAN NOT NULL DEFAULT true,
	time     TIMESTAMPTZ NOT NULL DEFAULT now(),
	blocked  BOOLEAN NOT NULL DEFAULT false,
	PRIMARY KEY (address, chat_id, bot_id)
);

CREATE TABLE IF NOT EXISTS cex (
	address TEXT PRIMARY KEY,
	name    TEXT NOT NULL
);
`

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
