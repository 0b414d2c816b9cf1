package connreg

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" sql driver
)

// SQLite DSN parameters, mirroring the hardening the control-plane database
// uses: WAL journaling, a busy timeout instead of SQLITE_BUSY errors under
// contention, and foreign keys on.
const (
	sqliteBusyTimeoutMS = "5000"
	sqliteSynchronous   = "NORMAL"
	sqliteJournalMode   = "WAL"
)

// BuildSQLiteDSN constructs a hardened SQLite DSN for path, for use as a
// DataSourceConfig.DSN with Driver DriverSQLite.
func BuildSQLiteDSN(path string) string {
	params := url.Values{}
	params.Set("_journal_mode", sqliteJournalMode)
	params.Set("_busy_timeout", sqliteBusyTimeoutMS)
	params.Set("_synchronous", sqliteSynchronous)
	params.Set("_foreign_keys", "on")
	return path + "?" + params.Encode()
}

// sqliteSchemaProvider answers SchemaProvider queries for SQLite, which has
// no information_schema, via PRAGMA table_info.
type sqliteSchemaProvider struct {
	db *sql.DB

	mu    sync.Mutex
	cache map[string]*TableSchema
}

func (p *sqliteSchemaProvider) warm(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, "SELECT 1 FROM sqlite_master LIMIT 0")
	return err
}

func (p *sqliteSchemaProvider) FetchTableSchema(ctx context.Context, table string) (*TableSchema, error) {
	p.mu.Lock()
	if p.cache == nil {
		p.cache = map[string]*TableSchema{}
	}
	if cached, ok := p.cache[table]; ok {
		p.mu.Unlock()
		return cached, nil
	}
	p.mu.Unlock()

	// table_info takes the table name inline; it does not accept a bound
	// parameter, so the caller-supplied name must already be a trusted
	// physical table name taken from a semantic table, never raw user input.
	rows, err := p.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteSQLiteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("fetch schema for %q: %w", table, err)
	}
	defer rows.Close()

	var schema TableSchema
	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("fetch schema for %q: %w", table, err)
		}
		schema.Columns = append(schema.Columns, ColumnSchema{Name: name, DataType: colType})
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

func quoteSQLiteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
