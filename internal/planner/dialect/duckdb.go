package dialect

import (
	"fmt"
	"strings"

	"github.com/semaflow/semaflow/internal/planner"
)

// DuckDB renders SQL for the DuckDB warehouse backend: double-quoted
// identifiers, `?` placeholders, and native support for FILTER (WHERE).
type DuckDB struct{}

func (DuckDB) Name() string { return "duckdb" }

func (DuckDB) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (DuckDB) Placeholder(idx int) string { return "?" }

func (DuckDB) SupportsFilteredAggregates() bool { return true }

func (DuckDB) SupportsILike() bool { return true }

func (DuckDB) RenderLiteral(value planner.Value) string { return renderLiteral(value) }

func (DuckDB) RenderAggregation(agg planner.Aggregation, expr string) string {
	return standardAggregation(agg, expr)
}

func (DuckDB) RenderFunction(fn planner.Function, a []string) string {
	switch fn {
	case planner.FnDateTrunc:
		return fmt.Sprintf("date_trunc('%s', %s)", arg(a, 0), arg(a, 1))
	case planner.FnDatePart:
		return fmt.Sprintf("date_part('%s', %s)", arg(a, 0), arg(a, 1))
	case planner.FnExtract:
		return fmt.Sprintf("extract(%s FROM %s)", arg(a, 0), arg(a, 1))
	case planner.FnNow:
		return "now()"
	case planner.FnCurrentDate:
		return "current_date"
	case planner.FnCurrentTimestamp:
		return "current_timestamp"
	case planner.FnDateAdd:
		return fmt.Sprintf("%s + INTERVAL (%s) %s", arg(a, 2), arg(a, 1), arg(a, 0))
	case planner.FnDateDiff:
		return fmt.Sprintf("date_diff('%s', %s, %s)", arg(a, 0), arg(a, 1), arg(a, 2))
	case planner.FnLower:
		return fmt.Sprintf("lower(%s)", joinArgs(a))
	case planner.FnUpper:
		return fmt.Sprintf("upper(%s)", joinArgs(a))
	case planner.FnConcat:
		return fmt.Sprintf("concat(%s)", joinArgs(a))
	case planner.FnConcatWs:
		return fmt.Sprintf("concat_ws('%s', %s)", arg(a, 0), joinArgs(a[min(1, len(a)):]))
	case planner.FnSubstring:
		if len(a) >= 3 {
			return fmt.Sprintf("substring(%s, %s, %s)", arg(a, 0), arg(a, 1), arg(a, 2))
		}
		return fmt.Sprintf("substring(%s, %s)", arg(a, 0), arg(a, 1))
	case planner.FnLength:
		return fmt.Sprintf("length(%s)", joinArgs(a))
	case planner.FnTrim:
		return fmt.Sprintf("trim(%s)", joinArgs(a))
	case planner.FnLTrim:
		return fmt.Sprintf("ltrim(%s)", joinArgs(a))
	case planner.FnRTrim:
		return fmt.Sprintf("rtrim(%s)", joinArgs(a))
	case planner.FnLeft:
		return fmt.Sprintf("left(%s, %s)", arg(a, 0), arg(a, 1))
	case planner.FnRight:
		return fmt.Sprintf("right(%s, %s)", arg(a, 0), arg(a, 1))
	case planner.FnReplace:
		return fmt.Sprintf("replace(%s, %s, %s)", arg(a, 0), arg(a, 1), arg(a, 2))
	case planner.FnPosition:
		return fmt.Sprintf("position(%s IN %s)", arg(a, 0), arg(a, 1))
	case planner.FnReverse:
		return fmt.Sprintf("reverse(%s)", joinArgs(a))
	case planner.FnRepeat:
		return fmt.Sprintf("repeat(%s, %s)", arg(a, 0), arg(a, 1))
	case planner.FnStartsWith:
		return fmt.Sprintf("starts_with(%s, %s)", arg(a, 0), arg(a, 1))
	case planner.FnEndsWith:
		return fmt.Sprintf("ends_with(%s, %s)", arg(a, 0), arg(a, 1))
	case planner.FnContains:
		return fmt.Sprintf("contains(%s, %s)", arg(a, 0), arg(a, 1))
	case planner.FnCoalesce:
		return fmt.Sprintf("coalesce(%s)", joinArgs(a))
	case planner.FnIfNull:
		return fmt.Sprintf("ifnull(%s)", joinArgs(a))
	case planner.FnNullIf:
		return fmt.Sprintf("nullif(%s, %s)", arg(a, 0), arg(a, 1))
	case planner.FnGreatest:
		return fmt.Sprintf("greatest(%s)", joinArgs(a))
	case planner.FnLeast:
		return fmt.Sprintf("least(%s)", joinArgs(a))
	case planner.FnSafeDivide:
		return fmt.Sprintf("%s / NULLIF(%s, 0)", arg(a, 0), arg(a, 1))
	case planner.FnAbs:
		return fmt.Sprintf("abs(%s)", joinArgs(a))
	case planner.FnCeil:
		return fmt.Sprintf("ceil(%s)", joinArgs(a))
	case planner.FnFloor:
		return fmt.Sprintf("floor(%s)", joinArgs(a))
	case planner.FnRound:
		if len(a) >= 2 {
			return fmt.Sprintf("round(%s, %s)", arg(a, 0), arg(a, 1))
		}
		return fmt.Sprintf("round(%s)", arg(a, 0))
	case planner.FnPower:
		return fmt.Sprintf("power(%s, %s)", arg(a, 0), arg(a, 1))
	case planner.FnSqrt:
		return fmt.Sprintf("sqrt(%s)", joinArgs(a))
	case planner.FnLn:
		return fmt.Sprintf("ln(%s)", joinArgs(a))
	case planner.FnLog10:
		return fmt.Sprintf("log10(%s)", joinArgs(a))
	case planner.FnLog:
		if len(a) >= 2 {
			return fmt.Sprintf("log(%s, %s)", arg(a, 0), arg(a, 1))
		}
		return fmt.Sprintf("ln(%s)", arg(a, 0))
	case planner.FnExp:
		return fmt.Sprintf("exp(%s)", joinArgs(a))
	case planner.FnSign:
		return fmt.Sprintf("sign(%s)", joinArgs(a))
	case planner.FnCast:
		return fmt.Sprintf("CAST(%s AS %s)", arg(a, 1), arg(a, 0))
	case planner.FnTryCast:
		return fmt.Sprintf("TRY_CAST(%s AS %s)", arg(a, 1), arg(a, 0))
	default:
		return fmt.Sprintf("%s(%s)", fn, joinArgs(a))
	}
}

