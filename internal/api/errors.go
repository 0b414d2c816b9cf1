package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/semaflow/semaflow/internal/planner"
)

// errorBody is the wire shape of every non-2xx response.
type errorBody struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// httpStatusFromError maps a planner.Error's Kind to an HTTP status,
// mirroring the teacher's httpStatusFromDomainError but switching on
// planner.ErrorKind instead of a family of domain error types — SemaFlow
// has one error type (spec.md §7) rather than one per failure family.
func httpStatusFromError(err error) int {
	var perr *planner.Error
	if errors.As(err, &perr) {
		switch perr.Kind() {
		case planner.UnknownFlow:
			return http.StatusNotFound
		case planner.ParseError, planner.InvalidOperator, planner.InvalidFilterTarget:
			return http.StatusBadRequest
		default:
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := httpStatusFromError(err)
	kind := ""
	var perr *planner.Error
	if errors.As(err, &perr) {
		kind = string(perr.Kind())
	}
	writeJSON(w, status, errorBody{Code: status, Kind: kind, Message: err.Error()})
}
