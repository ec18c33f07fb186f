// Package repositories defines data access interfaces.
package repositories

import (
	"context"

	"github.com/quarryhq/quarry/pkg/models"
)

// TableSnapshot is the raw result of sampling a table: column names in
// ordinal order and rows keyed by column name.
type TableSnapshot struct {
	Columns []string
	Rows    []map[string]interface{}
}

// MetadataRepository exposes the PostgreSQL metadata and sampling operations
// the service proxies. Every call carries the caller's connection parameters.
type MetadataRepository interface {
	// Ping verifies the target is reachable with the given credentials.
	Ping(ctx context.Context, params models.ConnectionParams) error

	// ListTables returns the ordered table names in the public schema.
	ListTables(ctx context.Context, params models.ConnectionParams) ([]string, error)

	// SnapshotTable samples up to limit rows from the named table. Unknown
	// tables yield ErrTableNotFound.
	SnapshotTable(ctx context.Context, params models.ConnectionParams, table string, limit int) (*TableSnapshot, error)
}
