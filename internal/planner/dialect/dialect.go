// Package dialect renders the planner's dialect-neutral SqlExpr/SelectQuery
// tree into syntax for a specific warehouse. Each Dialect is a pure
// capability object: it maps logical constructs (idents, literals,
// functions, aggregations) to SQL fragments and never walks a tree or
// holds state — tree-walking lives in the renderer (spec.md §4.9).
package dialect

import "github.com/semaflow/semaflow/internal/planner"

// Dialect renders the primitive pieces of a query for one warehouse.
// Argument-taking functions such as date_trunc, date_part, extract,
// date_add, date_diff, cast, try_cast, and concat_ws carry their
// non-expression parameter (unit, field name, data type, separator) as
// the FIRST element of renderedArgs, a string literal produced by the
// renderer from the Call's first Expr argument; remaining elements are
// the rendered sub-expressions, in order.
type Dialect interface {
	// Name identifies the dialect for logging and error messages.
	Name() string

	// QuoteIdent quotes an identifier per the dialect's quoting rules.
	QuoteIdent(ident string) string

	// Placeholder renders the parameter placeholder for position idx
	// (0-based) of a prepared statement.
	Placeholder(idx int) string

	// SupportsFilteredAggregates reports whether AGG(expr) FILTER
	// (WHERE cond) is available; render.go desugars to
	// AGG(CASE WHEN cond THEN expr END) when false (spec.md §4.8).
	SupportsFilteredAggregates() bool

	// SupportsILike reports whether the dialect has a native
	// case-insensitive LIKE operator; render.go desugars to
	// LOWER(expr) LIKE LOWER(pattern) when false (spec.md §4.8).
	SupportsILike() bool

	// RenderLiteral renders a scalar Value as a SQL literal.
	RenderLiteral(value planner.Value) string

	// RenderFunction renders a scalar function call given its already
	// rendered arguments.
	RenderFunction(fn planner.Function, renderedArgs []string) string

	// RenderAggregation renders an aggregate function over an
	// already-rendered expression string.
	RenderAggregation(agg planner.Aggregation, renderedExpr string) string
}
