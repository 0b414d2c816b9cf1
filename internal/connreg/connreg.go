// Package connreg implements the ConnectionRegistry and SchemaProvider
// capabilities spec.md §6 treats abstractly: resolving a semantic
// table's data_source name to a dialect, a live schema lookup, and a
// query executor, backed by real database/sql drivers.
package connreg

import (
	"context"

	"github.com/semaflow/semaflow/internal/planner/dialect"
)

// ColumnSchema is one physical column a SchemaProvider reports.
type ColumnSchema struct {
	Name     string
	DataType string
}

// TableSchema is the live column set of a physical table, as spec.md §6
// defines for SchemaProvider.FetchTableSchema.
type TableSchema struct {
	Columns []ColumnSchema
}

// SchemaProvider answers live schema questions about a data source's
// tables. The planner does not call it: validation and cardinality
// inference work from the registry's declarations alone. Implementations
// are expected to cache results
// keyed by table, per spec.md §6's "expected to be cached by the caller"
// note.
type SchemaProvider interface {
	FetchTableSchema(ctx context.Context, table string) (*TableSchema, error)
}

// QueryResult is the tabular result of executing a compiled SQL string.
type QueryResult struct {
	Columns []string
	Rows    [][]any
}

// Querier executes already-compiled SQL against a resolved data source.
// It is not part of spec.md §6's abstract capability list — the core
// never executes SQL — but the HTTP `run` endpoint (SPEC_FULL.md §11)
// needs it, and it rides along on the same connection Resolve warms.
type Querier interface {
	Query(ctx context.Context, sqlText string, limit int) (*QueryResult, error)
}

// Connection bundles the three capabilities a resolved data source
// provides. Dialect is passed straight through to internal/semaflow.Compile;
// Schema and Query are backend-specific.
type Connection struct {
	Dialect dialect.Dialect
	Schema  SchemaProvider
	Query   Querier
}

// warmer is implemented by SchemaProvider backends that can sanity-check
// their metadata catalog is reachable without knowing a table name yet.
// registry.go's Resolve runs it alongside the connectivity ping.
type warmer interface {
	warm(ctx context.Context) error
}

// ConnectionRegistry is spec.md §6's capability: given a data source
// name, produce the dialect, schema provider, and query executor a
// caller needs. A single Resolve call replaces the spec's two separate
// `resolve(data_source) → Dialect` / `resolve(data_source) → SchemaProvider`
// signatures with one bundled capability, since every concrete backend in
// this package always provides both together.
type ConnectionRegistry interface {
	Resolve(ctx context.Context, dataSource string) (*Connection, error)
}
