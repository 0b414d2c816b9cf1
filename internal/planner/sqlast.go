package planner

// SqlExpr is the tagged union of the rendered-SQL expression tree: the
// planner's internal Expr translated into a form the renderer walks
// directly, with concrete table/alias qualification and a dedicated
// FilteredAggregate variant. The pre-distillation implementation folded
// filtered aggregates into a bare Aggregate node and special-cased the
// filter at render time; exposing it as its own SqlExpr variant here
// keeps render.go a straightforward switch instead of a parallel
// filter-threading argument everywhere.
type SqlExpr interface {
	sqlExprNode()
}

// SqlColumn is a table/alias-qualified physical or derived column reference.
type SqlColumn struct {
	Alias string
	Name  string
}

// SqlLiteral is an immediate scalar value ready for dialect rendering.
type SqlLiteral struct {
	Value Value
}

// SqlCase mirrors Expr's Case after alias qualification.
type SqlCase struct {
	Branches []SqlCaseBranch
	Else     SqlExpr
}

type SqlCaseBranch struct {
	When SqlExpr
	Then SqlExpr
}

// SqlBinary is a binary operator node.
type SqlBinary struct {
	Op    BinaryOp
	Left  SqlExpr
	Right SqlExpr
}

// SqlCall is a scalar function call.
type SqlCall struct {
	Func Function
	Args []SqlExpr
}

// SqlAggregate is a plain (unfiltered) aggregate over an expression.
type SqlAggregate struct {
	Agg  Aggregation
	Expr SqlExpr
}

// SqlFilteredAggregate is an aggregate with a request-time or
// measure-level filter condition. The renderer desugars this to either
// `AGG(expr) FILTER (WHERE cond)` or `AGG(CASE WHEN cond THEN expr END)`
// depending on the target Dialect's SupportsFilteredAggregates (spec.md §4.8).
type SqlFilteredAggregate struct {
	Agg    Aggregation
	Expr   SqlExpr
	Filter SqlExpr
}

// SqlIn renders `expr IN (values...)` / `expr NOT IN (values...)`.
type SqlIn struct {
	Expr    SqlExpr
	Values  []SqlExpr
	Negated bool
}

// SqlLike renders `expr LIKE pattern` / `expr ILIKE pattern`.
type SqlLike struct {
	Expr          SqlExpr
	Pattern       SqlExpr
	CaseInsensitive bool
}

func (SqlColumn) sqlExprNode()            {}
func (SqlLiteral) sqlExprNode()           {}
func (SqlCase) sqlExprNode()              {}
func (SqlBinary) sqlExprNode()            {}
func (SqlCall) sqlExprNode()              {}
func (SqlAggregate) sqlExprNode()         {}
func (SqlFilteredAggregate) sqlExprNode() {}
func (SqlIn) sqlExprNode()                {}
func (SqlLike) sqlExprNode()              {}

// SelectItem is one projected column of a SelectQuery: an expression
// aliased to its sanitized public name. The planner stores the
// alias__field form (SanitizedAlias) in Alias, and the renderer emits it
// verbatim.
type SelectItem struct {
	Expr  SqlExpr
	Alias string
}

// TableRef is a FROM/JOIN source: either a physical table or a rendered
// subquery (used by MultiGrain plans' per-alias aggregation CTEs).
type TableRef struct {
	Table    string // physical table name; empty when Subquery is set
	Alias    string
	Subquery *SelectQuery // non-nil for CTE/derived-table sources
}

// Join is one FROM-clause join.
type Join struct {
	Type  JoinType
	Ref   TableRef
	On    SqlExpr
}

// OrderItem is one ORDER BY term.
type OrderItem struct {
	Expr SqlExpr
	Desc bool
}

// SelectQuery is the renderer's target AST: a single SELECT statement,
// optionally preceded by CTEs (spec.md §4.7's MultiGrain shape) and
// composed of a FROM/JOIN list, filters, grouping, and ordering.
type SelectQuery struct {
	CTEs      []NamedQuery
	From      TableRef
	Joins     []Join
	Where     []SqlExpr // implicitly AND-ed together
	GroupBy   []SqlExpr
	Select    []SelectItem
	OrderBy   []OrderItem
	Limit     *int
	Offset    *int
}

// NamedQuery names a CTE for the WITH clause.
type NamedQuery struct {
	Name  string
	Query *SelectQuery
}
