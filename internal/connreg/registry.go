package connreg

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/semaflow/semaflow/internal/planner/dialect"
)

// Driver identifies which backend a DataSourceConfig connects through.
type Driver string

const (
	DriverDuckDB Driver = "duckdb"
	DriverSQLite Driver = "sqlite"
)

// DataSourceConfig is one entry in the registry's static data-source table,
// mapping a semantic table's data_source name to a physical connection.
type DataSourceConfig struct {
	Driver Driver `json:"driver"`
	DSN    string `json:"dsn"`
}

// Registry is the default ConnectionRegistry: a static map of data-source
// names to driver configs, resolved lazily and cached per name. Resolve
// warms a connection's schema provider and verifies connectivity
// concurrently, the way the teacher's AttachAll warms a batch of catalog
// attachments under an errgroup rather than one at a time.
type Registry struct {
	sources map[string]DataSourceConfig

	mu    sync.Mutex
	conns map[string]*Connection
}

// NewRegistry builds a Registry over a static data-source table, typically
// loaded from configuration at startup.
func NewRegistry(sources map[string]DataSourceConfig) *Registry {
	return &Registry{
		sources: sources,
		conns:   map[string]*Connection{},
	}
}

// Resolve returns the Connection for dataSource, opening and caching it on
// first use.
func (r *Registry) Resolve(ctx context.Context, dataSource string) (*Connection, error) {
	r.mu.Lock()
	if conn, ok := r.conns[dataSource]; ok {
		r.mu.Unlock()
		return conn, nil
	}
	r.mu.Unlock()

	cfg, ok := r.sources[dataSource]
	if !ok {
		return nil, fmt.Errorf("connreg: unknown data source %q", dataSource)
	}

	conn, err := r.open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connreg: resolve %q: %w", dataSource, err)
	}

	r.mu.Lock()
	if existing, ok := r.conns[dataSource]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	r.conns[dataSource] = conn
	r.mu.Unlock()

	return conn, nil
}

// open dials cfg's backend and warms its schema provider and connectivity
// check concurrently before handing back a ready Connection.
func (r *Registry) open(ctx context.Context, cfg DataSourceConfig) (*Connection, error) {
	var (
		db *sql.DB
		d  dialect.Dialect
		sp SchemaProvider
		q  Querier
	)

	switch cfg.Driver {
	case DriverDuckDB:
		opened, err := sql.Open("duckdb", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open duckdb: %w", err)
		}
		db = opened
		d = dialect.DuckDB{}
		sp = &informationSchemaProvider{db: db}
	case DriverSQLite:
		opened, err := sql.Open("sqlite3", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite3: %w", err)
		}
		db = opened
		d = dialect.DuckDB{} // close enough to SQLite's quoting and placeholder syntax
		sp = &sqliteSchemaProvider{db: db}
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
	q = &sqlQuerier{db: db}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return db.PingContext(gctx)
	})
	if w, ok := sp.(warmer); ok {
		g.Go(func() error {
			return w.warm(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Connection{Dialect: d, Schema: sp, Query: q}, nil
}
