package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/semaflow/semaflow/internal/domain"
)

// QueryHistoryRepo persists query_history rows written by the HTTP run
// endpoint. It talks directly to database/sql — SemaFlow's catalog is a
// single table, not worth a generator.
type QueryHistoryRepo struct {
	db *sql.DB
}

func NewQueryHistoryRepo(db *sql.DB) *QueryHistoryRepo {
	return &QueryHistoryRepo{db: db}
}

// Insert records one request. CreatedAt is stamped by the caller so tests
// can control it.
func (r *QueryHistoryRepo) Insert(ctx context.Context, e *domain.QueryHistoryEntry) error {
	if e.ID == "" {
		e.ID = domain.NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO query_history
			(id, flow, request_id, sql, request_raw, status, error_msg, row_count, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.Flow, e.RequestID, e.SQL, e.RequestRaw, e.Status,
		e.ErrorMsg, e.RowCount, e.DurationMs, e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return mapDBError(err)
	}
	return nil
}

// List returns entries matching filter, newest first, plus the total count
// ignoring pagination.
func (r *QueryHistoryRepo) List(ctx context.Context, filter domain.QueryHistoryFilter) ([]domain.QueryHistoryEntry, int64, error) {
	where := ""
	args := []any{}
	if filter.Flow != nil {
		where += " AND flow = ?"
		args = append(args, *filter.Flow)
	}
	if filter.Status != nil {
		where += " AND status = ?"
		args = append(args, *filter.Status)
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM query_history WHERE 1=1" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, mapDBError(err)
	}

	listArgs := append(append([]any{}, args...), filter.Page.Limit(), filter.Page.Offset())
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, flow, request_id, sql, request_raw, status, error_msg, row_count, duration_ms, created_at
		FROM query_history
		WHERE 1=1`+where+`
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, listArgs...)
	if err != nil {
		return nil, 0, mapDBError(err)
	}
	defer rows.Close()

	var entries []domain.QueryHistoryEntry
	for rows.Next() {
		var e domain.QueryHistoryEntry
		var createdAt string
		if err := rows.Scan(
			&e.ID, &e.Flow, &e.RequestID, &e.SQL, &e.RequestRaw, &e.Status,
			&e.ErrorMsg, &e.RowCount, &e.DurationMs, &createdAt,
		); err != nil {
			return nil, 0, mapDBError(err)
		}
		e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapDBError(err)
	}
	return entries, total, nil
}
