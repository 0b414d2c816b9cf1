package planner

import (
	"fmt"
)

// exprToSql qualifies a dialect-neutral Expr with alias and translates
// it into a SqlExpr the renderer can walk directly. A bare MeasureRef
// has no column qualification of its own — resolvePostExpr resolves
// those against a table's own measures before this ever runs on a
// derived measure's PostExpr.
func exprToSql(expr Expr, alias string) SqlExpr {
	switch e := expr.(type) {
	case Column:
		if e.Table != "" {
			return SqlColumn{Alias: e.Table, Name: e.Name}
		}
		return SqlColumn{Alias: alias, Name: e.Name}
	case Literal:
		return SqlLiteral{Value: e.Value}
	case MeasureRef:
		return SqlColumn{Name: e.Name}
	case Call:
		args := make([]SqlExpr, len(e.Args))
		for i, a := range e.Args {
			args[i] = exprToSql(a, alias)
		}
		return SqlCall{Func: e.Func, Args: args}
	case Case:
		branches := make([]SqlCaseBranch, len(e.Branches))
		for i, b := range e.Branches {
			branches[i] = SqlCaseBranch{When: exprToSql(b.When, alias), Then: exprToSql(b.Then, alias)}
		}
		var elseExpr SqlExpr
		if e.Else != nil {
			elseExpr = exprToSql(e.Else, alias)
		}
		return SqlCase{Branches: branches, Else: elseExpr}
	case Binary:
		return SqlBinary{Op: e.Op, Left: exprToSql(e.Left, alias), Right: exprToSql(e.Right, alias)}
	case AggregateExpr:
		inner := exprToSql(e.Expr, alias)
		if e.Filter != nil {
			return SqlFilteredAggregate{Agg: e.Agg, Expr: inner, Filter: exprToSql(e.Filter, alias)}
		}
		return SqlAggregate{Agg: e.Agg, Expr: inner}
	default:
		panic(fmt.Sprintf("planner: exprToSql: unhandled Expr variant %T", expr))
	}
}

// resolvePostExpr renders a derived or formula measure's expression,
// resolving each MeasureRef it contains through resolveRef (a lookup
// into the query's already-planned per-measure SqlExpr, keyed by
// measure name) and qualifying any bare Column with alias — mirroring
// the pre-distillation implementation's render_post_expr/formula_to_sql
// measure_resolver callback.
func resolvePostExpr(expr Expr, alias string, resolveRef func(name string) (SqlExpr, error)) (SqlExpr, error) {
	switch e := expr.(type) {
	case MeasureRef:
		return resolveRef(e.Name)
	case Column:
		if e.Table != "" {
			return SqlColumn{Alias: e.Table, Name: e.Name}, nil
		}
		return SqlColumn{Alias: alias, Name: e.Name}, nil
	case Literal:
		return SqlLiteral{Value: e.Value}, nil
	case Call:
		args := make([]SqlExpr, len(e.Args))
		for i, a := range e.Args {
			sql, err := resolvePostExpr(a, alias, resolveRef)
			if err != nil {
				return nil, err
			}
			args[i] = sql
		}
		return SqlCall{Func: e.Func, Args: args}, nil
	case Case:
		branches := make([]SqlCaseBranch, len(e.Branches))
		for i, b := range e.Branches {
			when, err := resolvePostExpr(b.When, alias, resolveRef)
			if err != nil {
				return nil, err
			}
			then, err := resolvePostExpr(b.Then, alias, resolveRef)
			if err != nil {
				return nil, err
			}
			branches[i] = SqlCaseBranch{When: when, Then: then}
		}
		var elseExpr SqlExpr
		if e.Else != nil {
			var err error
			elseExpr, err = resolvePostExpr(e.Else, alias, resolveRef)
			if err != nil {
				return nil, err
			}
		}
		return SqlCase{Branches: branches, Else: elseExpr}, nil
	case Binary:
		left, err := resolvePostExpr(e.Left, alias, resolveRef)
		if err != nil {
			return nil, err
		}
		right, err := resolvePostExpr(e.Right, alias, resolveRef)
		if err != nil {
			return nil, err
		}
		return SqlBinary{Op: e.Op, Left: left, Right: right}, nil
	case AggregateExpr:
		inner, err := resolvePostExpr(e.Expr, alias, resolveRef)
		if err != nil {
			return nil, err
		}
		if e.Filter != nil {
			filterSQL, err := resolvePostExpr(e.Filter, alias, resolveRef)
			if err != nil {
				return nil, err
			}
			return SqlFilteredAggregate{Agg: e.Agg, Expr: inner, Filter: filterSQL}, nil
		}
		return SqlAggregate{Agg: e.Agg, Expr: inner}, nil
	default:
		return nil, fmt.Errorf("planner: resolvePostExpr: unhandled Expr variant %T", expr)
	}
}
