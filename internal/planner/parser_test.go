package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExprColumn(t *testing.T) {
	e, err := ParseExpr("amount", nil)
	require.NoError(t, err)
	assert.Equal(t, Column{Name: "amount"}, e)
}

func TestParseExprQualifiedColumn(t *testing.T) {
	e, err := ParseExpr("o.amount", nil)
	require.NoError(t, err)
	assert.Equal(t, Column{Table: "o", Name: "amount"}, e)
}

func TestParseExprMeasureRef(t *testing.T) {
	e, err := ParseExpr("order_total", map[string]bool{"order_total": true})
	require.NoError(t, err)
	assert.Equal(t, MeasureRef{Name: "order_total"}, e)
}

func TestParseExprIntLiteral(t *testing.T) {
	e, err := ParseExpr("42", nil)
	require.NoError(t, err)
	assert.Equal(t, Literal{Value: int64(42)}, e)
}

func TestParseExprFloatLiteral(t *testing.T) {
	e, err := ParseExpr("3.14", nil)
	require.NoError(t, err)
	assert.Equal(t, Literal{Value: 3.14}, e)
}

func TestParseExprStringLiteral(t *testing.T) {
	e, err := ParseExpr("'hello'", nil)
	require.NoError(t, err)
	assert.Equal(t, Literal{Value: "hello"}, e)
}

func TestParseExprNullTrueFalse(t *testing.T) {
	e, err := ParseExpr("null", nil)
	require.NoError(t, err)
	assert.Equal(t, Literal{Value: nil}, e)

	e, err = ParseExpr("true", nil)
	require.NoError(t, err)
	assert.Equal(t, Literal{Value: true}, e)
}

func TestParseExprSumAggregation(t *testing.T) {
	e, err := ParseExpr("sum(amount)", nil)
	require.NoError(t, err)
	agg, ok := e.(AggregateExpr)
	require.True(t, ok)
	assert.Equal(t, AggSum, agg.Agg)
	assert.Equal(t, Column{Name: "amount"}, agg.Expr)
}

func TestParseExprCountDistinct(t *testing.T) {
	e, err := ParseExpr("count_distinct(customer_id)", nil)
	require.NoError(t, err)
	agg, ok := e.(AggregateExpr)
	require.True(t, ok)
	assert.Equal(t, AggCountDistinct, agg.Agg)
}

func TestParseExprDivision(t *testing.T) {
	e, err := ParseExpr("a / b", nil)
	require.NoError(t, err)
	bin, ok := e.(Binary)
	require.True(t, ok)
	assert.Equal(t, OpDiv, bin.Op)
	assert.Equal(t, Column{Name: "a"}, bin.Left)
	assert.Equal(t, Column{Name: "b"}, bin.Right)
}

func TestParseExprArithmeticGrouping(t *testing.T) {
	e, err := ParseExpr("(a + b) * c", nil)
	require.NoError(t, err)
	bin, ok := e.(Binary)
	require.True(t, ok)
	assert.Equal(t, OpMul, bin.Op)
	inner, ok := bin.Left.(Binary)
	require.True(t, ok)
	assert.Equal(t, OpAdd, inner.Op)
}

func TestParseExprOperatorPrecedence(t *testing.T) {
	// a + b * c should parse as a + (b * c)
	e, err := ParseExpr("a + b * c", nil)
	require.NoError(t, err)
	bin, ok := e.(Binary)
	require.True(t, ok)
	assert.Equal(t, OpAdd, bin.Op)
	right, ok := bin.Right.(Binary)
	require.True(t, ok)
	assert.Equal(t, OpMul, right.Op)
}

func TestParseExprFunctionCall(t *testing.T) {
	e, err := ParseExpr("round(x, 2)", nil)
	require.NoError(t, err)
	call, ok := e.(Call)
	require.True(t, ok)
	assert.Equal(t, FnRound, call.Func)
	assert.Len(t, call.Args, 2)
}

func TestParseExprNestedAggregationInFunction(t *testing.T) {
	e, err := ParseExpr("round(sum(amount) / count(id), 2)", nil)
	require.NoError(t, err)
	call, ok := e.(Call)
	require.True(t, ok)
	assert.Equal(t, FnRound, call.Func)
	div, ok := call.Args[0].(Binary)
	require.True(t, ok)
	assert.Equal(t, OpDiv, div.Op)
	_, ok = div.Left.(AggregateExpr)
	assert.True(t, ok)
}

func TestParseExprComparison(t *testing.T) {
	e, err := ParseExpr("a > 10", nil)
	require.NoError(t, err)
	bin, ok := e.(Binary)
	require.True(t, ok)
	assert.Equal(t, OpGt, bin.Op)
}

func TestParseExprUnaryMinus(t *testing.T) {
	e, err := ParseExpr("-5", nil)
	require.NoError(t, err)
	bin, ok := e.(Binary)
	require.True(t, ok)
	assert.Equal(t, OpMul, bin.Op)
}

func TestParseExprNotBindsTighterThanAndLooserThanComparison(t *testing.T) {
	// "not a == b and c == d" should parse as (not (a == b)) and (c == d).
	e, err := ParseExpr("not a == b and c == d", nil)
	require.NoError(t, err)
	and, ok := e.(Binary)
	require.True(t, ok)
	assert.Equal(t, OpAnd, and.Op)
	notCall, ok := and.Left.(Call)
	require.True(t, ok)
	assert.Equal(t, FnNot, notCall.Func)
	cmp, ok := notCall.Args[0].(Binary)
	require.True(t, ok)
	assert.Equal(t, OpEq, cmp.Op)
}

func TestParseExprOrLooserThanAnd(t *testing.T) {
	// "a == 1 and b == 2 or c == 3" parses as (a==1 and b==2) or (c==3)
	e, err := ParseExpr("a == 1 and b == 2 or c == 3", nil)
	require.NoError(t, err)
	or, ok := e.(Binary)
	require.True(t, ok)
	assert.Equal(t, OpOr, or.Op)
	_, ok = or.Left.(Binary)
	require.True(t, ok)
}

func TestParseExprErrorUnclosedParen(t *testing.T) {
	_, err := ParseExpr("(a + b", nil)
	require.Error(t, err)
	perr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ParseError, perr.Kind())
}

func TestParseExprErrorUnknownFunction(t *testing.T) {
	_, err := ParseExpr("bogus_fn(a)", nil)
	require.Error(t, err)
}

func TestParseExprErrorInvalidCharacter(t *testing.T) {
	_, err := ParseExpr("a @ b", nil)
	require.Error(t, err)
}

func TestParseExprSafeDivide(t *testing.T) {
	e, err := ParseExpr("safe_divide(order_total, order_count)", map[string]bool{"order_total": true, "order_count": true})
	require.NoError(t, err)
	call, ok := e.(Call)
	require.True(t, ok)
	assert.Equal(t, FnSafeDivide, call.Func)
	require.Len(t, call.Args, 2)
	assert.Equal(t, MeasureRef{Name: "order_total"}, call.Args[0])
	assert.Equal(t, MeasureRef{Name: "order_count"}, call.Args[1])
}
