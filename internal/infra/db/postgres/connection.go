// File: internal/infra/db/postgres/connection.go
package postgres

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MustConnectPostgres returns a live *pgxpool.Pool or fatals.
func MustConnectPostgres(dsn string) *pgxpool.Pool {
	if dsn == "" {
		log.Fatal("database.url is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("pgxpool.New failed: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("postgres ping failed: %v", err)
	}
	return pool
}
