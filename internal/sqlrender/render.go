// Package sqlrender turns a planner.SelectQuery into a dialect-rendered
// SQL string. It is kept separate from internal/planner so a Dialect
// implementation (internal/planner/dialect) can depend on planner's
// model types without planner depending back on dialect.
package sqlrender

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/semaflow/semaflow/internal/planner"
	"github.com/semaflow/semaflow/internal/planner/dialect"
)

// Renderer renders a planner.SelectQuery against a concrete Dialect,
// desugaring SqlFilteredAggregate to CASE WHEN when the dialect lacks
// FILTER (WHERE ...) support (spec.md §4.8).
type Renderer struct {
	Dialect dialect.Dialect
}

// New builds a Renderer for d.
func New(d dialect.Dialect) *Renderer {
	return &Renderer{Dialect: d}
}

// RenderSelect renders q as a complete SQL statement, including any
// leading WITH clause for q.CTEs.
func (r *Renderer) RenderSelect(q *planner.SelectQuery) string {
	var b strings.Builder

	if len(q.CTEs) > 0 {
		b.WriteString("WITH ")
		for i, cte := range q.CTEs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(r.Dialect.QuoteIdent(cte.Name))
			b.WriteString(" AS (")
			b.WriteString(r.RenderSelect(cte.Query))
			b.WriteString(")")
		}
		b.WriteString(" ")
	}

	items := make([]string, len(q.Select))
	for i, item := range q.Select {
		exprSQL := r.renderExpr(item.Expr)
		if item.Alias != "" {
			items[i] = exprSQL + " AS " + r.Dialect.QuoteIdent(item.Alias)
		} else {
			items[i] = exprSQL
		}
	}
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(items, ", "))
	b.WriteString(" FROM ")
	b.WriteString(r.renderTableRef(q.From))

	for _, j := range q.Joins {
		kw := joinKeyword(j.Type)
		b.WriteString(" ")
		b.WriteString(kw)
		b.WriteString(" ")
		b.WriteString(r.renderTableRef(j.Ref))
		b.WriteString(" ON ")
		b.WriteString(r.renderExpr(j.On))
	}

	if len(q.Where) > 0 {
		clauses := make([]string, len(q.Where))
		for i, w := range q.Where {
			clauses[i] = r.renderExpr(w)
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(clauses, " AND "))
	}

	if len(q.GroupBy) > 0 {
		groups := make([]string, len(q.GroupBy))
		for i, g := range q.GroupBy {
			groups[i] = r.renderExpr(g)
		}
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(groups, ", "))
	}

	if len(q.OrderBy) > 0 {
		orders := make([]string, len(q.OrderBy))
		for i, o := range q.OrderBy {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			orders[i] = r.renderExpr(o.Expr) + " " + dir
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(orders, ", "))
	}

	if q.Limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(*q.Limit))
	}
	if q.Offset != nil {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(*q.Offset))
	}

	return b.String()
}

func joinKeyword(t planner.JoinType) string {
	switch t {
	case planner.JoinInner:
		return "JOIN"
	case planner.JoinLeft:
		return "LEFT JOIN"
	case planner.JoinRight:
		return "RIGHT JOIN"
	case planner.JoinFull:
		return "FULL JOIN"
	default:
		return "JOIN"
	}
}

func (r *Renderer) renderTableRef(t planner.TableRef) string {
	if t.Subquery != nil {
		return "(" + r.RenderSelect(t.Subquery) + ") " + r.Dialect.QuoteIdent(t.Alias)
	}
	if t.Alias != "" && t.Alias != t.Table {
		return r.Dialect.QuoteIdent(t.Table) + " " + r.Dialect.QuoteIdent(t.Alias)
	}
	return r.Dialect.QuoteIdent(t.Table)
}

func (r *Renderer) renderExpr(expr planner.SqlExpr) string {
	switch e := expr.(type) {
	case planner.SqlColumn:
		if e.Alias != "" {
			return r.Dialect.QuoteIdent(e.Alias) + "." + r.Dialect.QuoteIdent(e.Name)
		}
		return r.Dialect.QuoteIdent(e.Name)
	case planner.SqlLiteral:
		return r.Dialect.RenderLiteral(e.Value)
	case planner.SqlCall:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = r.renderExpr(a)
		}
		return r.Dialect.RenderFunction(e.Func, args)
	case planner.SqlCase:
		var b strings.Builder
		b.WriteString("CASE")
		for _, br := range e.Branches {
			b.WriteString(" WHEN ")
			b.WriteString(r.renderExpr(br.When))
			b.WriteString(" THEN ")
			b.WriteString(r.renderExpr(br.Then))
		}
		if e.Else != nil {
			b.WriteString(" ELSE ")
			b.WriteString(r.renderExpr(e.Else))
		}
		b.WriteString(" END")
		return b.String()
	case planner.SqlBinary:
		return "(" + r.renderExpr(e.Left) + " " + binaryOpSQL(e.Op) + " " + r.renderExpr(e.Right) + ")"
	case planner.SqlAggregate:
		return r.Dialect.RenderAggregation(e.Agg, r.renderExpr(e.Expr))
	case planner.SqlFilteredAggregate:
		if r.Dialect.SupportsFilteredAggregates() {
			return r.Dialect.RenderAggregation(e.Agg, r.renderExpr(e.Expr)) + " FILTER (WHERE " + r.renderExpr(e.Filter) + ")"
		}
		desugared := planner.SqlCase{
			Branches: []planner.SqlCaseBranch{{When: e.Filter, Then: e.Expr}},
		}
		return r.Dialect.RenderAggregation(e.Agg, r.renderExpr(desugared))
	case planner.SqlIn:
		if len(e.Values) == 0 {
			return r.Dialect.RenderLiteral(e.Negated)
		}
		values := make([]string, len(e.Values))
		for i, v := range e.Values {
			values[i] = r.renderExpr(v)
		}
		kw := "IN"
		if e.Negated {
			kw = "NOT IN"
		}
		return r.renderExpr(e.Expr) + " " + kw + " (" + strings.Join(values, ", ") + ")"
	case planner.SqlLike:
		if e.CaseInsensitive && r.Dialect.SupportsILike() {
			return r.renderExpr(e.Expr) + " ILIKE " + r.renderExpr(e.Pattern)
		}
		if e.CaseInsensitive {
			lowerExpr := planner.SqlCall{Func: planner.FnLower, Args: []planner.SqlExpr{e.Expr}}
			lowerPattern := planner.SqlCall{Func: planner.FnLower, Args: []planner.SqlExpr{e.Pattern}}
			return r.renderExpr(lowerExpr) + " LIKE " + r.renderExpr(lowerPattern)
		}
		return r.renderExpr(e.Expr) + " LIKE " + r.renderExpr(e.Pattern)
	default:
		panic(fmt.Sprintf("sqlrender: renderExpr: unhandled SqlExpr variant %T", expr))
	}
}

func binaryOpSQL(op planner.BinaryOp) string {
	switch op {
	case planner.OpEq:
		return "="
	case planner.OpAnd:
		return "AND"
	case planner.OpOr:
		return "OR"
	default:
		return string(op)
	}
}
