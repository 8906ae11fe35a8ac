// internal/database/db.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pidr-game/pidr-engine/internal/config"
)

// DB is the shared connection pool. Nil when the server runs without
// persistence; every caller checks before touching it.
var DB *pgxpool.Pool

// ConnectDB opens the pool from the POSTGRES_*/PG_* environment and verifies
// it with a ping. The caller decides whether a failure is fatal; the server
// entrypoint warns and runs without persistence.
func ConnectDB() error {
	host := config.GetEnv("PG_HOST", "localhost")
	port := config.GetEnv("PG_PORT", "5432")
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		config.GetEnv("POSTGRES_USER", "postgres"),
		config.GetEnv("POSTGRES_PASSWORD", ""),
		host,
		port,
		config.GetEnv("PG_DATABASE", "pidr"),
	)

	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return fmt.Errorf("parsing pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("creating pgx pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging postgres at %s:%s: %w", host, port, err)
	}

	DB = pool
	return nil
}
