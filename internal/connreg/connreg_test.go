package connreg

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLiteFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.sqlite")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE orders (
			id INTEGER PRIMARY KEY,
			customer_id INTEGER,
			amount REAL,
			status TEXT
		);
		INSERT INTO orders (id, customer_id, amount, status) VALUES
			(1, 100, 50.0, 'open'),
			(2, 100, 150.0, 'closed'),
			(3, 101, 75.0, 'open');
	`)
	require.NoError(t, err)

	return path
}

func TestRegistry_ResolveUnknownDataSource(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Resolve(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown data source")
}

func TestRegistry_ResolveSQLiteWarmsConnection(t *testing.T) {
	path := setupSQLiteFixture(t)
	r := NewRegistry(map[string]DataSourceConfig{
		"warehouse": {Driver: DriverSQLite, DSN: BuildSQLiteDSN(path)},
	})

	conn, err := r.Resolve(context.Background(), "warehouse")
	require.NoError(t, err)
	assert.Equal(t, "duckdb", conn.Dialect.Name())

	schema, err := conn.Schema.FetchTableSchema(context.Background(), "orders")
	require.NoError(t, err)
	names := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"id", "customer_id", "amount", "status"}, names)
}

func TestRegistry_ResolveCachesConnection(t *testing.T) {
	path := setupSQLiteFixture(t)
	r := NewRegistry(map[string]DataSourceConfig{
		"warehouse": {Driver: DriverSQLite, DSN: BuildSQLiteDSN(path)},
	})

	first, err := r.Resolve(context.Background(), "warehouse")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "warehouse")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestRegistry_ResolveUnsupportedDriver(t *testing.T) {
	r := NewRegistry(map[string]DataSourceConfig{
		"warehouse": {Driver: "oracle", DSN: "n/a"},
	})
	_, err := r.Resolve(context.Background(), "warehouse")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}

func TestSQLiteSchemaProvider_CachesResult(t *testing.T) {
	path := setupSQLiteFixture(t)
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	p := &sqliteSchemaProvider{db: db}
	first, err := p.FetchTableSchema(context.Background(), "orders")
	require.NoError(t, err)
	second, err := p.FetchTableSchema(context.Background(), "orders")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestSQLiteSchemaProvider_UnknownTable(t *testing.T) {
	path := setupSQLiteFixture(t)
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	p := &sqliteSchemaProvider{db: db}
	_, err = p.FetchTableSchema(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table not found")
}

func TestQuerier_QueryRespectsLimit(t *testing.T) {
	path := setupSQLiteFixture(t)
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	q := &sqlQuerier{db: db}
	result, err := q.Query(context.Background(), "SELECT id, amount FROM orders ORDER BY id", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "amount"}, result.Columns)
	assert.Len(t, result.Rows, 2)
}

func TestQuerier_QueryNoLimit(t *testing.T) {
	path := setupSQLiteFixture(t)
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	q := &sqlQuerier{db: db}
	result, err := q.Query(context.Background(), "SELECT id FROM orders ORDER BY id", 0)
	require.NoError(t, err)
	assert.Len(t, result.Rows, 3)
}
