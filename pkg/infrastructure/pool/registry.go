// Package pool manages PostgreSQL connection pools keyed by connection
// parameters. Callers supply credentials on every request; the registry
// reuses one pgx pool per distinct target instead of dialing per call.
package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	pkgerrors "github.com/quarryhq/quarry/pkg/errors"
	"github.com/quarryhq/quarry/pkg/models"
)

// Config represents per-pool configuration applied to every target.
type Config struct {
	MaxConns          int32         `json:"max_conns"`
	MinConns          int32         `json:"min_conns"`
	MaxConnLifetime   time.Duration `json:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `json:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `json:"health_check_period"`
	ConnectTimeout    time.Duration `json:"connect_timeout"`
}

func (c *Config) setDefaults() {
	if c.MaxConns <= 0 {
		c.MaxConns = 10
	}
	if c.MinConns < 0 {
		c.MinConns = 0
	}
	if c.MaxConnLifetime <= 0 {
		c.MaxConnLifetime = 30 * time.Minute
	}
	if c.MaxConnIdleTime <= 0 {
		c.MaxConnIdleTime = 10 * time.Minute
	}
	if c.HealthCheckPeriod <= 0 {
		c.HealthCheckPeriod = time.Minute
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
}

// Registry caches pgx pools keyed by connection parameters. It is safe for
// concurrent use and must be closed at shutdown to release every pool.
type Registry struct {
	mu     sync.Mutex
	pools  map[string]*pgxpool.Pool
	config Config
	logger zerolog.Logger
	closed atomic.Bool
}

// NewRegistry creates an empty registry. Pools are created lazily on first
// use of a target.
func NewRegistry(cfg Config, logger zerolog.Logger) *Registry {
	cfg.setDefaults()
	return &Registry{
		pools:  make(map[string]*pgxpool.Pool),
		config: cfg,
		logger: logger,
	}
}

// Get returns the pool for the given target, creating it on first use.
// Creation happens under the registry lock so concurrent callers for the
// same target share one pool.
func (r *Registry) Get(ctx context.Context, params models.ConnectionParams) (*pgxpool.Pool, error) {
	if r.closed.Load() {
		return nil, pkgerrors.New(pkgerrors.CodeUnavailable, "connection registry is closed")
	}

	key := poolKey(params)

	r.mu.Lock()
	defer r.mu.Unlock()

	if pool, ok := r.pools[key]; ok {
		return pool, nil
	}

	cfg, err := pgxpool.ParseConfig(connString(params))
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInvalidRequest, "invalid connection parameters")
	}
	cfg.MaxConns = r.config.MaxConns
	cfg.MinConns = r.config.MinConns
	cfg.MaxConnLifetime = r.config.MaxConnLifetime
	cfg.MaxConnIdleTime = r.config.MaxConnIdleTime
	cfg.HealthCheckPeriod = r.config.HealthCheckPeriod
	cfg.ConnConfig.ConnectTimeout = r.config.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeConnectionFailed, "failed to create connection pool")
	}

	r.logger.Info().
		Str("target", maskTarget(params)).
		Int32("max_conns", r.config.MaxConns).
		Msg("Created PostgreSQL connection pool")

	r.pools[key] = pool
	return pool, nil
}

// Ping verifies connectivity to the target, creating its pool if needed.
func (r *Registry) Ping(ctx context.Context, params models.ConnectionParams) error {
	pool, err := r.Get(ctx, params)
	if err != nil {
		return err
	}
	if err := pool.Ping(ctx); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeConnectionFailed, "database ping failed")
	}
	return nil
}

// Close closes every cached pool. The registry is unusable afterwards.
func (r *Registry) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for key, pool := range r.pools {
		pool.Close()
		delete(r.pools, key)
	}
	r.logger.Info().Msg("Connection registry closed")
}

// Size returns the number of cached pools, for gauges and tests.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pools)
}

// poolKey derives the cache key. The password participates so rotated
// credentials get a fresh pool instead of stale authentication.
func poolKey(p models.ConnectionParams) string {
	return fmt.Sprintf("%s:%d/%s/%s/%s", p.Host, p.Port, p.Database, p.User, p.Password)
}

// connString builds a keyword/value conninfo string for pgx.
func connString(p models.ConnectionParams) string {
	s := fmt.Sprintf("host=%s port=%d dbname=%s user=%s", p.Host, p.Port, p.Database, p.User)
	if p.Password != "" {
		s += fmt.Sprintf(" password=%s", p.Password)
	}
	return s
}

// maskTarget renders the target for logs without the password.
func maskTarget(p models.ConnectionParams) string {
	return fmt.Sprintf("%s@%s:%d/%s", p.User, p.Host, p.Port, p.Database)
}
