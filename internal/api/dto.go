package api

import "github.com/semaflow/semaflow/internal/planner"

// queryRequestBody is the wire shape of POST /v1/query/plan and
// /v1/query/run bodies. planner.QueryRequest carries no JSON tags — it's
// core's internal request shape, not a wire contract — so this package
// owns the public field names and converts explicitly, the way the
// teacher's handlers build a domain.CreateXRequest from req.Body rather
// than JSON-tagging domain types directly.
type queryRequestBody struct {
	Flow       string       `json:"flow"`
	Dimensions []string     `json:"dimensions"`
	Measures   []string     `json:"measures"`
	Filters    []filterBody `json:"filters"`
	Order      []orderBody  `json:"order"`
	Limit      *int         `json:"limit"`
	Offset     *int         `json:"offset"`
	PageSize   *int         `json:"page_size"`
	Cursor     string       `json:"cursor"`
}

type filterBody struct {
	Field string           `json:"field"`
	Op    planner.FilterOp `json:"op"`
	Value planner.Value    `json:"value"`
}

type orderBody struct {
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

func (b queryRequestBody) toQueryRequest(requestID string) *planner.QueryRequest {
	req := &planner.QueryRequest{
		Flow:       b.Flow,
		Dimensions: b.Dimensions,
		Measures:   b.Measures,
		Limit:      b.Limit,
		Offset:     b.Offset,
		PageSize:   b.PageSize,
		Cursor:     b.Cursor,
		RequestID:  requestID,
	}
	for _, f := range b.Filters {
		req.Filters = append(req.Filters, planner.Filter{Field: f.Field, Op: f.Op, Value: f.Value})
	}
	for _, o := range b.Order {
		req.Order = append(req.Order, planner.RequestOrderItem{Column: o.Column, Direction: o.Direction})
	}
	return req
}

// planResponse is the body of a successful /v1/query/plan call.
type planResponse struct {
	SQL             string            `json:"sql"`
	NeedsMultiGrain bool              `json:"needs_multi_grain"`
	Reason          string            `json:"reason,omitempty"`
	ColumnAliases   map[string]string `json:"column_aliases"`
}

// runResponse is the body of a successful /v1/query/run call.
type runResponse struct {
	planResponse
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
}

// flowSchemaResponse is the body of a successful /v1/flows/{name}/schema call.
type flowSchemaResponse struct {
	Flow   string            `json:"flow"`
	Fields []fieldSchemaBody `json:"fields"`
}

type fieldSchemaBody struct {
	Name        string `json:"name"`
	DataType    string `json:"data_type"`
	Description string `json:"description,omitempty"`
	IsTimeDim   bool   `json:"is_time_dimension,omitempty"`
	IsMeasure   bool   `json:"is_measure"`
	Aggregation string `json:"aggregation,omitempty"`
}

func flowSchemaToAPI(s *planner.FlowSchema) flowSchemaResponse {
	out := flowSchemaResponse{Flow: s.Flow}
	for _, f := range s.Fields {
		out.Fields = append(out.Fields, fieldSchemaBody{
			Name:        f.PublicName,
			DataType:    f.DataType,
			Description: f.Description,
			IsTimeDim:   f.IsTimeDim,
			IsMeasure:   f.IsMeasure,
			Aggregation: string(f.Aggregation),
		})
	}
	return out
}
