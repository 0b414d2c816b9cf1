package planner

import (
	"fmt"
	"strings"
)

// ErrorKind is the enum of §7's error-kind table. It is comparable so
// callers can switch on Kind() without string matching.
type ErrorKind string

const (
	UnknownFlow          ErrorKind = "unknown_flow"
	UnknownField         ErrorKind = "unknown_field"
	AmbiguousField       ErrorKind = "ambiguous_field"
	InvalidFilterTarget  ErrorKind = "invalid_filter_target"
	InvalidOperator      ErrorKind = "invalid_operator"
	UnknownJoinAlias     ErrorKind = "unknown_join_alias"
	JoinKeyUnknownColumn ErrorKind = "join_key_unknown_column"
	MixedDataSources     ErrorKind = "mixed_data_sources"
	DerivedOfDerived     ErrorKind = "derived_of_derived"
	CardinalityRequired  ErrorKind = "cardinality_required"
	ParseError           ErrorKind = "parse_error"
	SchemaMismatch       ErrorKind = "schema_mismatch"
)

// Error is the single error type every planning stage returns. It
// follows internal/domain/errors.go's typed-struct-plus-constructor
// idiom, generalized to carry a Kind and optional locating context.
type Error struct {
	ErrKind ErrorKind
	Message string
	Flow    string
	Table   string
	Field   string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	var ctx []string
	if e.Flow != "" {
		ctx = append(ctx, "flow="+e.Flow)
	}
	if e.Table != "" {
		ctx = append(ctx, "table="+e.Table)
	}
	if e.Field != "" {
		ctx = append(ctx, "field="+e.Field)
	}
	if len(ctx) > 0 {
		b.WriteString(" (" + strings.Join(ctx, ", ") + ")")
	}
	return b.String()
}

// Kind returns the error's ErrorKind, for use with a switch statement.
func (e *Error) Kind() ErrorKind { return e.ErrKind }

// newErr builds an *Error with a formatted message and no located context.
func newErr(kind ErrorKind, format string, args ...any) *Error {
	return &Error{ErrKind: kind, Message: fmt.Sprintf(format, args...)}
}

// withFlow/withTable/withField return a copy of e with the given context
// field populated, to keep call sites terse: newErr(...).withFlow(name).
func (e *Error) withFlow(flow string) *Error   { c := *e; c.Flow = flow; return &c }
func (e *Error) withTable(table string) *Error { c := *e; c.Table = table; return &c }
func (e *Error) withField(field string) *Error { c := *e; c.Field = field; return &c }

// ValidationErrors collects every ValidationError produced by a strict
// registry load (spec.md §7: "validation errors are collected and
// returned together ... in strict mode").
type ValidationErrors struct {
	Errors []*Error
}

func (v *ValidationErrors) Error() string {
	msgs := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d validation error(s): %s", len(v.Errors), strings.Join(msgs, "; "))
}

// Add appends an error to the collection.
func (v *ValidationErrors) Add(err *Error) { v.Errors = append(v.Errors, err) }

// Empty reports whether no errors were collected.
func (v *ValidationErrors) Empty() bool { return len(v.Errors) == 0 }

// AsError returns v as an error if it holds any entries, else nil — the
// idiomatic way to return a ValidationErrors value only when non-empty.
func (v *ValidationErrors) AsError() error {
	if v.Empty() {
		return nil
	}
	return v
}
