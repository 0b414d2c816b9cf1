// Package api exposes SemaFlow's planner over HTTP: compiling a request to
// SQL, optionally running it against the flow's data source, and
// introspecting a flow's queryable schema.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/semaflow/semaflow/internal/connreg"
	"github.com/semaflow/semaflow/internal/domain"
	"github.com/semaflow/semaflow/internal/middleware"
	"github.com/semaflow/semaflow/internal/planner"
	"github.com/semaflow/semaflow/internal/registry"
	"github.com/semaflow/semaflow/internal/semaflow"
)

// queryHistoryWriter is the subset of *repository.QueryHistoryRepo the
// handler needs, kept narrow so tests can fake it without a database.
type queryHistoryWriter interface {
	Insert(ctx context.Context, e *domain.QueryHistoryEntry) error
}

// Handler serves the three SemaFlow HTTP routes. It holds no business
// logic of its own — every request resolves the live registry, calls
// internal/semaflow.Compile, and optionally runs the result through
// connreg, the same thin-dispatch shape as the teacher's APIHandler.
type Handler struct {
	holder          *registry.Holder
	connections     connreg.ConnectionRegistry
	history         queryHistoryWriter
	defaultRowLimit int
	logger          *slog.Logger
}

// NewHandler builds a Handler. history may be nil to disable audit
// writes (e.g. in tests that only exercise plan, not run).
func NewHandler(holder *registry.Holder, connections connreg.ConnectionRegistry, history queryHistoryWriter, defaultRowLimit int, logger *slog.Logger) *Handler {
	return &Handler{
		holder:          holder,
		connections:     connections,
		history:         history,
		defaultRowLimit: defaultRowLimit,
		logger:          logger,
	}
}

func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request) (*planner.QueryRequest, queryRequestBody, bool) {
	var body queryRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: http.StatusBadRequest, Message: "invalid JSON body: " + err.Error()})
		return nil, body, false
	}
	requestID := middleware.RequestIDFromContext(r.Context())
	req := body.toQueryRequest(requestID)
	if req.Limit == nil && h.defaultRowLimit > 0 {
		req.Limit = &h.defaultRowLimit
	}
	return req, body, true
}

// resolveConnection resolves flowName's base table to its data source and
// hands back the live Connection for it. A flow's base table and every
// joined table share one data source — ValidateRegistry's MixedDataSources
// check rejects the registry otherwise — so the base table alone decides it.
func (h *Handler) resolveConnection(ctx context.Context, reg *planner.Registry, flowName string) (*connreg.Connection, error) {
	flow, ok := reg.Flow(flowName)
	if !ok {
		return nil, &planner.Error{ErrKind: planner.UnknownFlow, Flow: flowName, Message: "unknown flow \"" + flowName + "\""}
	}
	table, ok := reg.Table(flow.BaseTable.SemanticTable)
	if !ok {
		return nil, &planner.Error{ErrKind: planner.UnknownFlow, Flow: flowName, Message: "unknown base table \"" + flow.BaseTable.SemanticTable + "\""}
	}
	return h.connections.Resolve(ctx, table.DataSource)
}

// PlanQuery handles POST /v1/query/plan: compile a request to SQL without
// executing it.
func (h *Handler) PlanQuery(w http.ResponseWriter, r *http.Request) {
	req, _, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	reg := h.holder.Get()

	conn, err := h.resolveConnection(r.Context(), reg, req.Flow)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := semaflow.Compile(reg, req, conn.Dialect)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, planResponse{
		SQL:             result.SQL,
		NeedsMultiGrain: result.NeedsMultiGrain,
		Reason:          result.Reason,
		ColumnAliases:   result.ColumnAliases,
	})
}

// RunQuery handles POST /v1/query/run: compile and execute a request,
// recording the outcome in query history.
func (h *Handler) RunQuery(w http.ResponseWriter, r *http.Request) {
	req, body, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	reg := h.holder.Get()
	start := time.Now()

	resp, compileErr, runErr := h.runQuery(r, reg, req)
	h.recordHistory(r, req, body, resp, start, compileErr, runErr)

	if compileErr != nil {
		writeError(w, compileErr)
		return
	}
	if runErr != nil {
		writeError(w, runErr)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// runQuery does the actual compile+execute, returning the response body
// on success and whichever of compileErr/runErr is non-nil on failure —
// split out of RunQuery so recordHistory always runs exactly once
// regardless of which stage failed.
func (h *Handler) runQuery(r *http.Request, reg *planner.Registry, req *planner.QueryRequest) (resp *runResponse, compileErr, runErr error) {
	conn, err := h.resolveConnection(r.Context(), reg, req.Flow)
	if err != nil {
		return nil, nil, err
	}

	result, err := semaflow.Compile(reg, req, conn.Dialect)
	if err != nil {
		return nil, err, nil
	}

	limit := 0
	if req.Limit != nil {
		limit = *req.Limit
	}
	qr, err := conn.Query.Query(r.Context(), result.SQL, limit)
	if err != nil {
		return nil, nil, err
	}

	return &runResponse{
		planResponse: planResponse{
			SQL:             result.SQL,
			NeedsMultiGrain: result.NeedsMultiGrain,
			Reason:          result.Reason,
			ColumnAliases:   result.ColumnAliases,
		},
		Columns:  qr.Columns,
		Rows:     qr.Rows,
		RowCount: len(qr.Rows),
	}, nil, nil
}

func (h *Handler) recordHistory(r *http.Request, req *planner.QueryRequest, body queryRequestBody, resp *runResponse, start time.Time, compileErr, runErr error) {
	if h.history == nil {
		return
	}
	entry := &domain.QueryHistoryEntry{
		Flow:       req.Flow,
		RequestID:  req.RequestID,
		Status:     "success",
		DurationMs: time.Since(start).Milliseconds(),
	}
	if raw, err := json.Marshal(body); err == nil {
		entry.RequestRaw = string(raw)
	}
	switch {
	case compileErr != nil:
		entry.Status = "error"
		msg := compileErr.Error()
		entry.ErrorMsg = &msg
	case runErr != nil:
		entry.Status = "error"
		msg := runErr.Error()
		entry.ErrorMsg = &msg
	default:
		entry.SQL = resp.SQL
		count := int64(resp.RowCount)
		entry.RowCount = &count
	}
	if err := h.history.Insert(r.Context(), entry); err != nil {
		h.logger.Warn("query history insert failed", "flow", req.Flow, "error", err)
	}
}

// FlowSchema handles GET /v1/flows/{name}/schema.
func (h *Handler) FlowSchema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	reg := h.holder.Get()
	schema, err := reg.FlowSchema(name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flowSchemaToAPI(schema))
}
