package domain

import "time"

// QueryHistoryEntry records one request against the HTTP run endpoint,
// whether it compiled and ran or failed at either stage, for audit and
// debugging.
type QueryHistoryEntry struct {
	ID         string
	Flow       string
	RequestID  string
	SQL        string
	RequestRaw string // the original QueryRequest, JSON-encoded
	Status     string // "success" or "error"
	ErrorMsg   *string
	RowCount   *int64
	DurationMs int64
	CreatedAt  time.Time
}

// QueryHistoryFilter narrows QueryHistoryRepo.List results.
type QueryHistoryFilter struct {
	Flow   *string
	Status *string
	Page   PageRequest
}
