package dialect

import (
	"fmt"
	"strings"

	"github.com/semaflow/semaflow/internal/planner"
)

// BigQuery renders SQL for Google BigQuery: backtick-quoted identifiers,
// @p-style named placeholders, and no FILTER (WHERE) support — filtered
// aggregates always desugar to CASE WHEN (spec.md §4.8).
type BigQuery struct{}

func (BigQuery) Name() string { return "bigquery" }

func (BigQuery) QuoteIdent(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "\\`") + "`"
}

func (BigQuery) Placeholder(idx int) string { return fmt.Sprintf("@p%d", idx) }

func (BigQuery) SupportsFilteredAggregates() bool { return false }

func (BigQuery) SupportsILike() bool { return false }

func (BigQuery) RenderLiteral(value planner.Value) string { return renderLiteral(value) }

func (BigQuery) RenderAggregation(agg planner.Aggregation, expr string) string {
	switch agg {
	case planner.AggApproxCountDistinct:
		return fmt.Sprintf("APPROX_COUNT_DISTINCT(%s)", expr)
	case planner.AggMedian:
		return fmt.Sprintf("PERCENTILE_CONT(%s, 0.5) OVER()", expr)
	case planner.AggFirst:
		return fmt.Sprintf("ARRAY_AGG(%s IGNORE NULLS)[OFFSET(0)]", expr)
	case planner.AggLast:
		return fmt.Sprintf("ARRAY_AGG(%s IGNORE NULLS)[ORDINAL(ARRAY_LENGTH(ARRAY_AGG(%s IGNORE NULLS)))]", expr, expr)
	case planner.AggSum:
		return fmt.Sprintf("SUM(%s)", expr)
	case planner.AggCount:
		return fmt.Sprintf("COUNT(%s)", expr)
	case planner.AggCountDistinct:
		return fmt.Sprintf("COUNT(DISTINCT %s)", expr)
	case planner.AggMin:
		return fmt.Sprintf("MIN(%s)", expr)
	case planner.AggMax:
		return fmt.Sprintf("MAX(%s)", expr)
	case planner.AggAvg:
		return fmt.Sprintf("AVG(%s)", expr)
	case planner.AggStddev:
		return fmt.Sprintf("STDDEV_POP(%s)", expr)
	case planner.AggStddevSamp:
		return fmt.Sprintf("STDDEV_SAMP(%s)", expr)
	case planner.AggVariance:
		return fmt.Sprintf("VAR_POP(%s)", expr)
	case planner.AggVarianceSamp:
		return fmt.Sprintf("VAR_SAMP(%s)", expr)
	case planner.AggStringAgg:
		return fmt.Sprintf("STRING_AGG(%s, ',')", expr)
	case planner.AggArrayAgg:
		return fmt.Sprintf("ARRAY_AGG(%s)", expr)
	default:
		return fmt.Sprintf("%s(%s)", strings.ToUpper(string(agg)), expr)
	}
}

func (BigQuery) RenderFunction(fn planner.Function, a []string) string {
	switch fn {
	case planner.FnDateTrunc:
		return fmt.Sprintf("TIMESTAMP_TRUNC(%s, %s)", arg(a, 1), strings.ToUpper(arg(a, 0)))
	case planner.FnDatePart:
		return fmt.Sprintf("EXTRACT(%s FROM %s)", arg(a, 0), arg(a, 1))
	case planner.FnExtract:
		return fmt.Sprintf("EXTRACT(%s FROM %s)", arg(a, 0), arg(a, 1))
	case planner.FnNow:
		return "CURRENT_TIMESTAMP()"
	case planner.FnCurrentDate:
		return "CURRENT_DATE()"
	case planner.FnCurrentTimestamp:
		return "CURRENT_TIMESTAMP()"
	case planner.FnDateAdd:
		return fmt.Sprintf("DATE_ADD(%s, INTERVAL %s %s)", arg(a, 2), arg(a, 1), strings.ToUpper(arg(a, 0)))
	case planner.FnDateDiff:
		return fmt.Sprintf("DATE_DIFF(%s, %s, %s)", arg(a, 2), arg(a, 1), strings.ToUpper(arg(a, 0)))
	case planner.FnLower:
		return fmt.Sprintf("LOWER(%s)", joinArgs(a))
	case planner.FnUpper:
		return fmt.Sprintf("UPPER(%s)", joinArgs(a))
	case planner.FnConcat:
		return fmt.Sprintf("CONCAT(%s)", joinArgs(a))
	case planner.FnConcatWs:
		return fmt.Sprintf("ARRAY_TO_STRING([%s], '%s')", joinArgs(a[min(1, len(a)):]), arg(a, 0))
	case planner.FnSubstring:
		if len(a) >= 3 {
			return fmt.Sprintf("SUBSTR(%s, %s, %s)", arg(a, 0), arg(a, 1), arg(a, 2))
		}
		return fmt.Sprintf("SUBSTR(%s, %s)", arg(a, 0), arg(a, 1))
	case planner.FnLength:
		return fmt.Sprintf("LENGTH(%s)", joinArgs(a))
	case planner.FnTrim:
		return fmt.Sprintf("TRIM(%s)", joinArgs(a))
	case planner.FnLTrim:
		return fmt.Sprintf("LTRIM(%s)", joinArgs(a))
	case planner.FnRTrim:
		return fmt.Sprintf("RTRIM(%s)", joinArgs(a))
	case planner.FnLeft:
		return fmt.Sprintf("LEFT(%s, %s)", arg(a, 0), arg(a, 1))
	case planner.FnRight:
		return fmt.Sprintf("RIGHT(%s, %s)", arg(a, 0), arg(a, 1))
	case planner.FnReplace:
		return fmt.Sprintf("REPLACE(%s, %s, %s)", arg(a, 0), arg(a, 1), arg(a, 2))
	case planner.FnPosition:
		return fmt.Sprintf("STRPOS(%s, %s)", arg(a, 1), arg(a, 0))
	case planner.FnReverse:
		return fmt.Sprintf("REVERSE(%s)", joinArgs(a))
	case planner.FnRepeat:
		return fmt.Sprintf("REPEAT(%s, %s)", arg(a, 0), arg(a, 1))
	case planner.FnStartsWith:
		return fmt.Sprintf("STARTS_WITH(%s, %s)", arg(a, 0), arg(a, 1))
	case planner.FnEndsWith:
		return fmt.Sprintf("ENDS_WITH(%s, %s)", arg(a, 0), arg(a, 1))
	case planner.FnContains:
		return fmt.Sprintf("STRPOS(%s, %s) > 0", arg(a, 0), arg(a, 1))
	case planner.FnCoalesce:
		return fmt.Sprintf("COALESCE(%s)", joinArgs(a))
	case planner.FnIfNull:
		return fmt.Sprintf("IFNULL(%s)", joinArgs(a))
	case planner.FnNullIf:
		return fmt.Sprintf("NULLIF(%s, %s)", arg(a, 0), arg(a, 1))
	case planner.FnGreatest:
		return fmt.Sprintf("GREATEST(%s)", joinArgs(a))
	case planner.FnLeast:
		return fmt.Sprintf("LEAST(%s)", joinArgs(a))
	case planner.FnSafeDivide:
		return fmt.Sprintf("SAFE_DIVIDE(%s, %s)", arg(a, 0), arg(a, 1))
	case planner.FnAbs:
		return fmt.Sprintf("ABS(%s)", joinArgs(a))
	case planner.FnCeil:
		return fmt.Sprintf("CEIL(%s)", joinArgs(a))
	case planner.FnFloor:
		return fmt.Sprintf("FLOOR(%s)", joinArgs(a))
	case planner.FnRound:
		if len(a) >= 2 {
			return fmt.Sprintf("ROUND(%s, %s)", arg(a, 0), arg(a, 1))
		}
		return fmt.Sprintf("ROUND(%s)", arg(a, 0))
	case planner.FnPower:
		return fmt.Sprintf("POWER(%s, %s)", arg(a, 0), arg(a, 1))
	case planner.FnSqrt:
		return fmt.Sprintf("SQRT(%s)", joinArgs(a))
	case planner.FnLn:
		return fmt.Sprintf("LN(%s)", joinArgs(a))
	case planner.FnLog10:
		return fmt.Sprintf("LOG10(%s)", joinArgs(a))
	case planner.FnLog:
		if len(a) >= 2 {
			return fmt.Sprintf("LOG(%s, %s)", arg(a, 1), arg(a, 0))
		}
		return fmt.Sprintf("LN(%s)", arg(a, 0))
	case planner.FnExp:
		return fmt.Sprintf("EXP(%s)", joinArgs(a))
	case planner.FnSign:
		return fmt.Sprintf("SIGN(%s)", joinArgs(a))
	case planner.FnCast:
		return fmt.Sprintf("CAST(%s AS %s)", arg(a, 1), arg(a, 0))
	case planner.FnTryCast:
		return fmt.Sprintf("SAFE_CAST(%s AS %s)", arg(a, 1), arg(a, 0))
	default:
		return fmt.Sprintf("%s(%s)", strings.ToUpper(string(fn)), joinArgs(a))
	}
}
