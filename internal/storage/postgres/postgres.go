// Package postgres stores the law config and player ledgers in PostgreSQL
// using pgx v5. The schema lives in migrations/ and is applied by cmd/migrate.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/enforcer/internal/config"
)

// ErrSchemaMissing is returned by RequireSchema when a law table is absent.
var ErrSchemaMissing = errors.New("law schema not migrated")

// lawTables are the tables LawRepository reads and writes.
var lawTables = []string{"law_config", "player_law_states", "crime_records"}

// Pool is the connection pool behind a LawRepository.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects to the law database described by cfg.
//
// Precondition: cfg must pass config validation.
// Postcondition: Returns a Pool that answered a ping, or a non-nil error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("law store dsn: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("opening law store pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("law store %s:%d unreachable: %w", cfg.Host, cfg.Port, err)
	}
	return &Pool{pool: pool}, nil
}

// RequireSchema fails with ErrSchemaMissing unless every law table exists.
func (p *Pool) RequireSchema(ctx context.Context) error {
	var missing []string
	for _, table := range lawTables {
		var found bool
		err := p.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&found)
		if err != nil {
			return fmt.Errorf("checking law table %s: %w", table, err)
		}
		if !found {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrSchemaMissing, strings.Join(missing, ", "))
	}
	return nil
}

// Health pings the law database within timeout.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Close releases the pool. The LawRepository built on it is unusable afterwards.
func (p *Pool) Close() {
	p.pool.Close()
}

// Repository returns a LawRepository sharing this pool.
func (p *Pool) Repository() *LawRepository {
	return NewLawRepository(p.pool)
}

// DB returns the underlying pgxpool.Pool.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
