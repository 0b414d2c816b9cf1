package sqlrender

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/semaflow/semaflow/internal/planner"
	"github.com/semaflow/semaflow/internal/planner/dialect"
)

func TestRenderSelectSimple(t *testing.T) {
	q := &planner.SelectQuery{
		From: planner.TableRef{Table: "orders", Alias: "o"},
		Select: []planner.SelectItem{
			{Expr: planner.SqlColumn{Alias: "o", Name: "status"}, Alias: "o__status"},
			{Expr: planner.SqlAggregate{Agg: planner.AggSum, Expr: planner.SqlColumn{Alias: "o", Name: "amount"}}, Alias: "o__revenue"},
		},
		GroupBy: []planner.SqlExpr{planner.SqlColumn{Alias: "o", Name: "status"}},
	}
	got := New(dialect.DuckDB{}).RenderSelect(q)
	assert.Equal(t, `SELECT "o"."status" AS "o__status", SUM("o"."amount") AS "o__revenue" FROM "orders" "o" GROUP BY "o"."status"`, got)
}

func TestRenderSelectWithJoinAndWhere(t *testing.T) {
	q := &planner.SelectQuery{
		From: planner.TableRef{Table: "orders", Alias: "o"},
		Joins: []planner.Join{
			{Type: planner.JoinLeft, Ref: planner.TableRef{Table: "customers", Alias: "c"},
				On: planner.SqlBinary{Op: planner.OpEq, Left: planner.SqlColumn{Alias: "o", Name: "customer_id"}, Right: planner.SqlColumn{Alias: "c", Name: "id"}}},
		},
		Where: []planner.SqlExpr{
			planner.SqlBinary{Op: planner.OpEq, Left: planner.SqlColumn{Alias: "c", Name: "name"}, Right: planner.SqlLiteral{Value: "Acme"}},
		},
		Select: []planner.SelectItem{{Expr: planner.SqlColumn{Alias: "o", Name: "id"}, Alias: "o__id"}},
	}
	got := New(dialect.DuckDB{}).RenderSelect(q)
	assert.Equal(t, `SELECT "o"."id" AS "o__id" FROM "orders" "o" LEFT JOIN "customers" "c" ON ("o"."customer_id" = "c"."id") WHERE ("c"."name" = 'Acme')`, got)
}

func TestRenderSelectFilteredAggregateDesugarsWithoutDialectSupport(t *testing.T) {
	q := &planner.SelectQuery{
		From: planner.TableRef{Table: "orders", Alias: "o"},
		Select: []planner.SelectItem{
			{Expr: planner.SqlFilteredAggregate{
				Agg:    planner.AggSum,
				Expr:   planner.SqlColumn{Alias: "o", Name: "amount"},
				Filter: planner.SqlBinary{Op: planner.OpEq, Left: planner.SqlColumn{Alias: "o", Name: "status"}, Right: planner.SqlLiteral{Value: "paid"}},
			}, Alias: "o__paid_revenue"},
		},
	}
	got := New(dialect.BigQuery{}).RenderSelect(q)
	assert.Equal(t, "SELECT SUM(CASE WHEN (`o`.`status` = 'paid') THEN `o`.`amount` END) AS `o__paid_revenue` FROM `orders` `o`", got)
}

func TestRenderSelectEmptyInListRendersFalse(t *testing.T) {
	q := &planner.SelectQuery{
		From: planner.TableRef{Table: "orders", Alias: "o"},
		Where: []planner.SqlExpr{
			planner.SqlIn{Expr: planner.SqlColumn{Alias: "o", Name: "status"}},
		},
		Select: []planner.SelectItem{{Expr: planner.SqlColumn{Alias: "o", Name: "id"}, Alias: "o__id"}},
	}
	got := New(dialect.DuckDB{}).RenderSelect(q)
	assert.Equal(t, `SELECT "o"."id" AS "o__id" FROM "orders" "o" WHERE false`, got)
}

func TestRenderSelectEmptyNotInListRendersTrue(t *testing.T) {
	q := &planner.SelectQuery{
		From: planner.TableRef{Table: "orders", Alias: "o"},
		Where: []planner.SqlExpr{
			planner.SqlIn{Expr: planner.SqlColumn{Alias: "o", Name: "status"}, Negated: true},
		},
		Select: []planner.SelectItem{{Expr: planner.SqlColumn{Alias: "o", Name: "id"}, Alias: "o__id"}},
	}
	got := New(dialect.DuckDB{}).RenderSelect(q)
	assert.Equal(t, `SELECT "o"."id" AS "o__id" FROM "orders" "o" WHERE true`, got)
}

func TestRenderSelectILikeNativeOnDuckDB(t *testing.T) {
	q := &planner.SelectQuery{
		From: planner.TableRef{Table: "orders", Alias: "o"},
		Where: []planner.SqlExpr{
			planner.SqlLike{Expr: planner.SqlColumn{Alias: "o", Name: "status"}, Pattern: planner.SqlLiteral{Value: "%paid%"}, CaseInsensitive: true},
		},
		Select: []planner.SelectItem{{Expr: planner.SqlColumn{Alias: "o", Name: "id"}, Alias: "o__id"}},
	}
	got := New(dialect.DuckDB{}).RenderSelect(q)
	assert.Equal(t, `SELECT "o"."id" AS "o__id" FROM "orders" "o" WHERE "o"."status" ILIKE '%paid%'`, got)
}

func TestRenderSelectILikeDesugarsOnBigQuery(t *testing.T) {
	q := &planner.SelectQuery{
		From: planner.TableRef{Table: "orders", Alias: "o"},
		Where: []planner.SqlExpr{
			planner.SqlLike{Expr: planner.SqlColumn{Alias: "o", Name: "status"}, Pattern: planner.SqlLiteral{Value: "%paid%"}, CaseInsensitive: true},
		},
		Select: []planner.SelectItem{{Expr: planner.SqlColumn{Alias: "o", Name: "id"}, Alias: "o__id"}},
	}
	got := New(dialect.BigQuery{}).RenderSelect(q)
	assert.Equal(t, "SELECT `o`.`id` AS `o__id` FROM `orders` `o` WHERE LOWER(`o`.`status`) LIKE LOWER('%paid%')", got)
}

func TestRenderSelectNestedCTE(t *testing.T) {
	inner := &planner.SelectQuery{
		From:   planner.TableRef{Table: "orders", Alias: "o"},
		Select: []planner.SelectItem{{Expr: planner.SqlColumn{Alias: "o", Name: "id"}, Alias: "id"}},
	}
	outer := &planner.SelectQuery{
		CTEs: []planner.NamedQuery{{Name: "o_agg", Query: inner}},
		From: planner.TableRef{Table: "o_agg", Alias: "o"},
		Select: []planner.SelectItem{{Expr: planner.SqlColumn{Alias: "o", Name: "id"}, Alias: "o__id"}},
	}
	got := New(dialect.DuckDB{}).RenderSelect(outer)
	assert.Equal(t, `WITH "o_agg" AS (SELECT "o"."id" AS "id" FROM "orders" "o") SELECT "o"."id" AS "o__id" FROM "o_agg" "o"`, got)
}
