// Package redis implements a distributed fast-path idempotency
// accelerator fronting the per-process in-memory dedup windows. It is
// never the authoritative dedup mechanism: if unreachable,
// callers must fall back to treating every key as unclaimed and rely on
// the mandated in-memory sliding windows in blockingest/txrouter to
// still catch duplicates within a single process.
package redis

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type client struct {
	conn *redis.Client
}

func (c *client) Close() error {
	return c.conn.Close()
}

// NewClient dials addr and verifies connectivity with a Ping.
func NewClient(ctx context.Context, addr, username, password string, db int) (*client, error) {
	conn := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       db,
	})

	if err := conn.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &client{
		conn: conn,
	}, nil
}
