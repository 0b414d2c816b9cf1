// Package planner implements SemaFlow's planning core: the semantic model
// and registry, the filter/formula expression parser, resolution of a
// QueryRequest against a SemanticFlow, grain and fanout analysis, join
// pruning, and compilation to a dialect-rendered SQL string. The package
// performs no I/O and holds no state across calls — every exported entry
// point is a pure function of its arguments.
package planner

// Value is a scalar literal: nil, bool, int64, float64, string, or a
// time.Time-formatted RFC3339 string tagged as a timestamp by context.
type Value = any

// Aggregation is the set of aggregate functions a Measure may use.
type Aggregation string

const (
	AggSum                 Aggregation = "sum"
	AggCount               Aggregation = "count"
	AggCountDistinct       Aggregation = "count_distinct"
	AggMin                 Aggregation = "min"
	AggMax                 Aggregation = "max"
	AggAvg                 Aggregation = "avg"
	AggApproxCountDistinct Aggregation = "approx_count_distinct"
	AggMedian              Aggregation = "median"
	AggStddev              Aggregation = "stddev"
	AggStddevSamp          Aggregation = "stddev_samp"
	AggVariance            Aggregation = "variance"
	AggVarianceSamp        Aggregation = "variance_samp"
	AggStringAgg           Aggregation = "string_agg"
	AggArrayAgg             Aggregation = "array_agg"
	AggFirst               Aggregation = "first"
	AggLast                Aggregation = "last"
)

// Function is the whitelist of scalar functions the parser and renderer
// recognize. Unknown call names are rejected at parse time (ParseError),
// never at render time.
type Function string

const (
	FnSafeDivide Function = "safe_divide"
	FnCoalesce   Function = "coalesce"
	FnIfNull     Function = "ifnull"
	FnGreatest   Function = "greatest"
	FnLeast      Function = "least"
	FnRound      Function = "round"
	FnAbs        Function = "abs"
	FnFloor      Function = "floor"
	FnCeil       Function = "ceil"
	FnNullIf     Function = "nullif"
	FnCast       Function = "cast"

	// FnNot is synthesized by the parser for unary `not` (spec.md §4.1);
	// it never appears in call syntax and so is intentionally absent
	// from knownFunctions.
	FnNot Function = "not"

	// Supplemental functions (SPEC_FULL.md §12.2), grounded in the
	// pre-distillation Function enum.
	FnTryCast           Function = "try_cast"
	FnDateTrunc         Function = "date_trunc"
	FnDatePart          Function = "date_part"
	FnExtract           Function = "extract"
	FnDateAdd           Function = "date_add"
	FnDateDiff          Function = "date_diff"
	FnNow               Function = "now"
	FnCurrentDate       Function = "current_date"
	FnCurrentTimestamp  Function = "current_timestamp"
	FnLower             Function = "lower"
	FnUpper             Function = "upper"
	FnConcat            Function = "concat"
	FnConcatWs          Function = "concat_ws"
	FnSubstring         Function = "substring"
	FnLength            Function = "length"
	FnTrim              Function = "trim"
	FnLTrim             Function = "ltrim"
	FnRTrim             Function = "rtrim"
	FnLeft              Function = "left"
	FnRight             Function = "right"
	FnReplace           Function = "replace"
	FnPosition          Function = "position"
	FnReverse           Function = "reverse"
	FnRepeat            Function = "repeat"
	FnStartsWith        Function = "starts_with"
	FnEndsWith          Function = "ends_with"
	FnContains          Function = "contains"
	FnPower             Function = "power"
	FnSqrt              Function = "sqrt"
	FnLn                Function = "ln"
	FnLog10             Function = "log10"
	FnLog               Function = "log"
	FnExp               Function = "exp"
	FnSign              Function = "sign"
)

// knownFunctions is the parser's whitelist; anything not in here fails
// to parse with ParseError rather than surfacing at render time.
var knownFunctions = map[string]Function{
	string(FnSafeDivide): FnSafeDivide, string(FnCoalesce): FnCoalesce,
	string(FnIfNull): FnIfNull, string(FnGreatest): FnGreatest,
	string(FnLeast): FnLeast, string(FnRound): FnRound, string(FnAbs): FnAbs,
	string(FnFloor): FnFloor, string(FnCeil): FnCeil, string(FnNullIf): FnNullIf,
	string(FnCast): FnCast, string(FnTryCast): FnTryCast,
	string(FnDateTrunc): FnDateTrunc, string(FnDatePart): FnDatePart,
	string(FnExtract): FnExtract, string(FnDateAdd): FnDateAdd,
	string(FnDateDiff): FnDateDiff, string(FnNow): FnNow,
	string(FnCurrentDate): FnCurrentDate, string(FnCurrentTimestamp): FnCurrentTimestamp,
	string(FnLower): FnLower, string(FnUpper): FnUpper, string(FnConcat): FnConcat,
	string(FnConcatWs): FnConcatWs, string(FnSubstring): FnSubstring,
	string(FnLength): FnLength, string(FnTrim): FnTrim, string(FnLTrim): FnLTrim,
	string(FnRTrim): FnRTrim, string(FnLeft): FnLeft, string(FnRight): FnRight,
	string(FnReplace): FnReplace, string(FnPosition): FnPosition,
	string(FnReverse): FnReverse, string(FnRepeat): FnRepeat,
	string(FnStartsWith): FnStartsWith, string(FnEndsWith): FnEndsWith,
	string(FnContains): FnContains, string(FnPower): FnPower, string(FnSqrt): FnSqrt,
	string(FnLn): FnLn, string(FnLog10): FnLog10, string(FnLog): FnLog,
	string(FnExp): FnExp, string(FnSign): FnSign,
}

// BinaryOp is the set of arithmetic, comparison, and logical operators
// an Expr.Binary node may carry.
type BinaryOp string

const (
	OpAdd BinaryOp = "+"
	OpSub BinaryOp = "-"
	OpMul BinaryOp = "*"
	OpDiv BinaryOp = "/"
	OpMod BinaryOp = "%"
	OpEq  BinaryOp = "=="
	OpNeq BinaryOp = "!="
	OpGt  BinaryOp = ">"
	OpGte BinaryOp = ">="
	OpLt  BinaryOp = "<"
	OpLte BinaryOp = "<="
	OpAnd BinaryOp = "and"
	OpOr  BinaryOp = "or"
)

// JoinType mirrors the SQL join kinds a FlowJoin may declare.
type JoinType string

const (
	JoinLeft  JoinType = "left"
	JoinInner JoinType = "inner"
	JoinRight JoinType = "right"
	JoinFull  JoinType = "full"
)

// Cardinality describes how a FlowJoin's right-hand side relates to its
// left-hand side. Unknown means neither an explicit hint nor primary-key
// coverage could establish one of the other three.
type Cardinality string

const (
	CardinalityUnknown    Cardinality = ""
	CardinalityManyToOne  Cardinality = "many_to_one"
	CardinalityOneToMany  Cardinality = "one_to_many"
	CardinalityOneToOne   Cardinality = "one_to_one"
	CardinalityManyToMany Cardinality = "many_to_many"
)

// Expr is a tagged union of the expression variants spec.md §3 defines,
// using a marker method the way a tagged-union AST node set does.
type Expr interface {
	exprNode()
}

// Column references a (possibly table-qualified) physical column.
type Column struct {
	Table string // alias; empty when unqualified
	Name  string
}

// Literal is an immediate scalar value.
type Literal struct {
	Value Value
}

// Case is a SQL CASE expression: the first matching branch wins, else Else.
type Case struct {
	Branches []CaseBranch
	Else     Expr
}

// CaseBranch is one WHEN/THEN pair of a Case expression.
type CaseBranch struct {
	When Expr
	Then Expr
}

// Binary is a binary operator applied to two sub-expressions.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// Call is a scalar function application.
type Call struct {
	Func Function
	Args []Expr
}

// AggregateExpr is an aggregate function applied to an expression, with
// an optional request-time filter condition (a measure's `filter`).
type AggregateExpr struct {
	Agg    Aggregation
	Expr   Expr
	Filter Expr // nil when the measure has no filter
}

// MeasureRef refers to another measure on the same semantic table — only
// legal inside a derived measure's PostExpr (spec.md §3 invariant).
type MeasureRef struct {
	Name string
}

func (Column) exprNode()        {}
func (Literal) exprNode()       {}
func (Case) exprNode()          {}
func (Binary) exprNode()        {}
func (Call) exprNode()          {}
func (AggregateExpr) exprNode() {}
func (MeasureRef) exprNode()    {}

// Dimension is a named, typed expression on a SemanticTable usable for
// grouping, filtering, and ordering.
type Dimension struct {
	Name        string
	Expr        Expr
	DataType    string
	Description string
}

// Measure is a named aggregatable metric. A base measure sets Agg (and
// Expr); a derived measure sets PostExpr instead, over base measures of
// the same table. A Formula measure (SPEC_FULL.md §12.1) is self
// contained and mutually exclusive with both of the above.
type Measure struct {
	Name        string
	Expr        Expr   // base measures only
	Agg         Aggregation
	Filter      Expr   // optional request-independent filter on a base measure
	PostExpr    Expr   // derived measures only
	Formula     string // formula measures only (SPEC_FULL.md §12.1)
	DataType    string
	Description string
}

// IsBase reports whether m is a base measure (has Agg, no PostExpr, no Formula).
func (m *Measure) IsBase() bool { return m.Agg != "" && m.PostExpr == nil && m.Formula == "" }

// IsDerived reports whether m is a derived measure.
func (m *Measure) IsDerived() bool { return m.PostExpr != nil }

// IsFormula reports whether m is a formula measure.
func (m *Measure) IsFormula() bool { return m.Formula != "" }

// SemanticTable is the unit of identity in the registry: a physical
// table behind a data source, its primary key, and its exposed
// dimensions and measures.
type SemanticTable struct {
	Name          string
	DataSource    string
	Table         string
	PrimaryKey    []string
	TimeDimension string
	DimensionOrder []string // definition order, for deterministic emission
	Dimensions    map[string]*Dimension
	MeasureOrder  []string
	Measures      map[string]*Measure
}

// FlowJoin describes one join edge in a SemanticFlow.
type FlowJoin struct {
	SemanticTable string
	Alias         string
	ToAlias       string
	JoinType      JoinType
	JoinKeys      []JoinKey
	Cardinality   Cardinality // explicit hint; empty means "infer"
}

// JoinKey is one equality predicate of a join's ON clause.
type JoinKey struct {
	Left  string // column on the base/"to" side
	Right string // column on the joined side
}

// BaseTableRef names the flow's anchor semantic table and its alias.
type BaseTableRef struct {
	SemanticTable string
	Alias         string
}

// SemanticFlow binds a base table and a set of joins into a queryable
// shape. JoinOrder preserves YAML definition order for deterministic
// emission (spec.md §9's "ordered mappings" design note).
type SemanticFlow struct {
	Name         string
	BaseTable    BaseTableRef
	JoinOrder    []string
	Joins        map[string]*FlowJoin
	Description  string
}
