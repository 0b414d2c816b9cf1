package connreg

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" sql driver
)

// informationSchemaProvider answers SchemaProvider queries for DuckDB (and
// any other backend exposing the standard information_schema.columns view)
// by querying it directly, caching each table's result per spec.md §6's
// "expected to be cached by the caller" note.
type informationSchemaProvider struct {
	db *sql.DB

	mu    sync.Mutex
	cache map[string]*TableSchema
}

func (p *informationSchemaProvider) warm(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, "SELECT 1 FROM information_schema.columns LIMIT 0")
	return err
}

func (p *informationSchemaProvider) FetchTableSchema(ctx context.Context, table string) (*TableSchema, error) {
	p.mu.Lock()
	if p.cache == nil {
		p.cache = map[string]*TableSchema{}
	}
	if cached, ok := p.cache[table]; ok {
		p.mu.Unlock()
		return cached, nil
	}
	p.mu.Unlock()

	rows, err := p.db.QueryContext(ctx,
		`SELECT column_name, data_type FROM information_schema.columns WHERE table_name = ? ORDER BY ordinal_position`,
		table,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch schema for %q: %w", table, err)
	}
	defer rows.Close()

	var schema TableSchema
	for rows.Next() {
		var col ColumnSchema
		if err := rows.Scan(&col.Name, &col.DataType); err != nil {
			return nil, fmt.Errorf("fetch schema for %q: %w", table, err)
		}
		schema.Columns = append(schema.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch schema for %q: %w", table, err)
	}
	if len(schema.Columns) == 0 {
		return nil, fmt.Errorf("fetch schema for %q: table not found", table)
	}

	p.mu.Lock()
	p.cache[table] = &schema
	p.mu.Unlock()

	return &schema, nil
}
