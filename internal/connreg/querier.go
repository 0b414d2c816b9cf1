package connreg

import (
	"context"
	"database/sql"
	"fmt"
)

// sqlQuerier runs already-compiled SQL through database/sql's generic
// scanning, since the result's column set varies per query and isn't known
// ahead of time.
type sqlQuerier struct {
	db *sql.DB
}

// Query executes sqlText and returns at most limit rows. limit <= 0 means
// unlimited. The HTTP handler already puts the configured default row limit
// on a request that sets none, so the compiled SQL normally carries its own
// LIMIT; this is a backstop against a caller bypassing that.
func (q *sqlQuerier) Query(ctx context.Context, sqlText string, limit int) (*QueryResult, error) {
	rows, err := q.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	result := &QueryResult{Columns: cols}
	for rows.Next() {
		if limit > 0 && len(result.Rows) >= limit {
			break
		}
		scanned := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range scanned {
			dest[i] = &scanned[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
		result.Rows = append(result.Rows, scanned)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	return result, nil
}
