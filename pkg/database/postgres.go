package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// PostgresPoolConfig tunes the pgx pool behind the PostgreSQL contacts store. It is read
// from the optional "postgres_pool" module; connection details come from Resolve.
type PostgresPoolConfig struct {
	MaxConns          int32         `yaml:"max_conns,omitempty"`           // Maximum number of connections in the pool
	MinConns          int32         `yaml:"min_conns,omitempty"`           // Minimum number of connections in the pool
	MaxConnLifetime   time.Duration `yaml:"max_conn_lifetime,omitempty"`   // Maximum lifetime of a connection
	MaxConnIdleTime   time.Duration `yaml:"max_conn_idle_time,omitempty"`  // Maximum idle time of a connection
	HealthCheckPeriod time.Duration `yaml:"health_check_period,omitempty"` // Period between health checks
	ConnectTimeout    time.Duration `yaml:"connect_timeout,omitempty"`
}

func (p PostgresPoolConfig) Validate() error {
	if p.MaxConns < 0 {
		return errors.New("max_conns must be non-negative")
	}
	if p.MinConns < 0 {
		return errors.New("min_conns must be non-negative")
	}
	if p.MaxConns > 0 && p.MinConns > p.MaxConns {
		return errors.Errorf("min_conns (%d) cannot be greater than max_conns (%d)", p.MinConns, p.MaxConns)
	}
	if p.MaxConnLifetime < 0 {
		return errors.New("max_conn_lifetime must be non-negative")
	}
	if p.MaxConnIdleTime < 0 {
		return errors.New("max_conn_idle_time must be non-negative")
	}
	if p.HealthCheckPeriod < 0 {
		return errors.New("health_check_period must be non-negative")
	}
	if p.ConnectTimeout < 0 {
		return errors.New("connect_timeout must be non-negative")
	}
	return nil
}

func (p PostgresPoolConfig) apply(cfg *pgxpool.Config) {
	if p.MaxConns > 0 {
		cfg.MaxConns = p.MaxConns
	}
	if p.MinConns > 0 {
		cfg.MinConns = p.MinConns
	}
	if p.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = p.MaxConnLifetime
	}
	if p.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = p.MaxConnIdleTime
	}
	if p.HealthCheckPeriod > 0 {
		cfg.HealthCheckPeriod = p.HealthCheckPeriod
	}
	if p.ConnectTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = p.ConnectTimeout
	}
}

// OpenPool creates a pool from cfg and verifies it with a ping. The pool is closed
// again when the ping fails.
func OpenPool(ctx context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create PostgreSQL connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "failed to ping PostgreSQL database")
	}
	return pool, nil
}
