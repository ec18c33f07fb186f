// Package postgres implements the metadata repository against PostgreSQL
// using pgx connection pools.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	pkgerrors "github.com/quarryhq/quarry/pkg/errors"
	"github.com/quarryhq/quarry/pkg/infrastructure/pool"
	"github.com/quarryhq/quarry/pkg/models"
	"github.com/quarryhq/quarry/pkg/repositories"
)

// identifierPattern restricts sampled table names to plain identifiers.
// Table names arrive from the request body and are interpolated as a quoted
// identifier, never as a parameter, so anything else is refused outright.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// queryer is the slice of pgxpool.Pool the repository needs.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const listTablesQuery = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = 'public'
ORDER BY table_name`

const listColumnsQuery = `
SELECT column_name
FROM information_schema.columns
WHERE table_schema = 'public' AND table_name = $1
ORDER BY ordinal_position`

// MetadataRepository implements repositories.MetadataRepository on top of
// the shared connection registry. Every operation runs under queryTimeout;
// zero disables the deadline.
type MetadataRepository struct {
	registry     *pool.Registry
	queryTimeout time.Duration
	logger       zerolog.Logger
}

// NewMetadataRepository creates a repository backed by registry.
func NewMetadataRepository(registry *pool.Registry, queryTimeout time.Duration, logger zerolog.Logger) *MetadataRepository {
	return &MetadataRepository{
		registry:     registry,
		queryTimeout: queryTimeout,
		logger:       logger.With().Str("component", "metadata_repository").Logger(),
	}
}

func (r *MetadataRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.queryTimeout)
}

// Ping verifies the target is reachable with the given credentials.
func (r *MetadataRepository) Ping(ctx context.Context, params models.ConnectionParams) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.registry.Ping(ctx, params)
}

// ListTables returns the ordered table names in the public schema.
func (r *MetadataRepository) ListTables(ctx context.Context, params models.ConnectionParams) ([]string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	db, err := r.registry.Get(ctx, params)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(ctx, listTablesQuery)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeQueryFailed, "failed to list tables")
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.CodeQueryFailed, "failed to scan table name")
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeQueryFailed, "failed to read table list")
	}

	r.logger.Debug().Int("count", len(tables)).Msg("Listed tables")
	return tables, nil
}

// SnapshotTable samples up to limit rows from the named table. Column order
// follows ordinal position; date and timestamp values are rendered as
// ISO-8601 strings so snapshots serialize cleanly to JSON.
func (r *MetadataRepository) SnapshotTable(ctx context.Context, params models.ConnectionParams, table string, limit int) (*repositories.TableSnapshot, error) {
	if !identifierPattern.MatchString(table) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidRequest, "invalid table name")
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	db, err := r.registry.Get(ctx, params)
	if err != nil {
		return nil, err
	}

	columns, err := r.listColumns(ctx, db, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, pkgerrors.ErrTableNotFound.WithDetail("table", table)
	}

	query := fmt.Sprintf(`SELECT * FROM "%s" LIMIT %d`, table, limit)
	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, pkgerrors.CodeQueryFailed, "failed to sample table %s", table)
	}
	defer rows.Close()

	snapshot := &repositories.TableSnapshot{
		Columns: columns,
		Rows:    []map[string]interface{}{},
	}

	fields := rows.FieldDescriptions()
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.CodeQueryFailed, "failed to read row")
		}

		row := make(map[string]interface{}, len(fields))
		for i, field := range fields {
			row[field.Name] = normalizeValue(values[i])
		}
		snapshot.Rows = append(snapshot.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeQueryFailed, "failed to read sample rows")
	}

	r.logger.Debug().
		Str("table", table).
		Int("rows", len(snapshot.Rows)).
		Int("columns", len(columns)).
		Msg("Sampled table")
	return snapshot, nil
}

func (r *MetadataRepository) listColumns(ctx context.Context, db queryer, table string) ([]string, error) {
	rows, err := db.Query(ctx, listColumnsQuery, table)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeQueryFailed, "failed to list columns")
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.CodeQueryFailed, "failed to scan column name")
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeQueryFailed, "failed to read column list")
	}
	return columns, nil
}

// normalizeValue maps driver values to JSON-friendly forms. Temporal values
// become ISO-8601 strings; raw byte slices become strings.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case time.Time:
		return val.Format(time.RFC3339)
	case []byte:
		return string(val)
	default:
		return v
	}
}
