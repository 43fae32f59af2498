// Package postgres provides a Postgres-backed checkpoint backend.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/wayback-journey/internal/checkpoint"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "checkpoints"

// statements holds the SQL for one checkpoint table.
type statements struct {
	schema, read, write, exists, list, purge string
}

func newStatements(table string) statements {
	return statements{
		schema: `CREATE TABLE IF NOT EXISTS ` + table + ` (
	name       TEXT PRIMARY KEY,
	body       BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		read: `SELECT body FROM ` + table + ` WHERE name = $1`,
		write: `INSERT INTO ` + table + ` (name, body, updated_at) VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
		exists: `SELECT EXISTS (SELECT 1 FROM ` + table + ` WHERE name = $1)`,
		list:   `SELECT name FROM ` + table + ` WHERE name LIKE $1 ORDER BY name`,
		purge:  `DELETE FROM ` + table + ` WHERE name LIKE $1`,
	}
}

// Config controls the Postgres connection pool used for checkpoint rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// Backend stores each checkpoint object as one row keyed by its name. Writes
// are single upserts, so readers never see a partial document.
type Backend struct {
	db    querier
	table string
	sql   statements
}

// New opens a connection pool for cfg.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.DSN == "" {
		return nil, errors.New("storage.postgres_dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	applyPoolLimits(poolCfg, cfg)
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return newBackend(pool, table), nil
}

// NewWithPool wraps an existing pool, such as a pgxmock pool in tests.
func NewWithPool(pool querier, table string) (*Backend, error) {
	if pool == nil {
		return nil, errors.New("postgres pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return newBackend(pool, name), nil
}

func newBackend(db querier, table string) *Backend {
	return &Backend{db: db, table: table, sql: newStatements(table)}
}

func applyPoolLimits(poolCfg *pgxpool.Config, cfg Config) {
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
}

func tableName(table string) (string, error) {
	if table == "" {
		return defaultTable, nil
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid checkpoint table name %q", table)
	}
	return table, nil
}

// EnsureSchema creates the checkpoint table if needed.
func (b *Backend) EnsureSchema(ctx context.Context) error {
	if _, err := b.db.Exec(ctx, b.sql.schema); err != nil {
		return fmt.Errorf("create checkpoint table %s: %w", b.table, err)
	}
	return nil
}

// Close releases the pool.
func (b *Backend) Close() {
	if b != nil && b.db != nil {
		b.db.Close()
	}
}

// Read returns the stored body or checkpoint.ErrNotFound.
func (b *Backend) Read(ctx context.Context, name string) ([]byte, error) {
	var body []byte
	switch err := b.db.QueryRow(ctx, b.sql.read, name).Scan(&body); {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, checkpoint.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("select checkpoint %s: %w", name, err)
	}
	return body, nil
}

// Write upserts the object.
func (b *Backend) Write(ctx context.Context, name string, data []byte) error {
	if _, err := b.db.Exec(ctx, b.sql.write, name, data); err != nil {
		return fmt.Errorf("upsert checkpoint %s: %w", name, err)
	}
	return nil
}

// Exists reports whether a row exists for name.
func (b *Backend) Exists(ctx context.Context, name string) (bool, error) {
	var found bool
	if err := b.db.QueryRow(ctx, b.sql.exists, name).Scan(&found); err != nil {
		return false, fmt.Errorf("check checkpoint %s: %w", name, err)
	}
	return found, nil
}

// List returns the names under prefix in ascending order.
func (b *Backend) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := b.db.Query(ctx, b.sql.list, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("read checkpoint names: %w", err)
	}
	return names, nil
}

// DeletePrefix removes every row under prefix.
func (b *Backend) DeletePrefix(ctx context.Context, prefix string) error {
	if _, err := b.db.Exec(ctx, b.sql.purge, likePrefix(prefix)); err != nil {
		return fmt.Errorf("delete checkpoints under %s: %w", prefix, err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePrefix turns prefix into a LIKE pattern matching it literally.
func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}
