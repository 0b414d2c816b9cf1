package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/semaflow/semaflow/internal/planner"
)

// renderLiteral is the SQL-92 literal rendering shared by every reference
// dialect; a dialect overrides it only when its escaping rules diverge
// (none of the three reference dialects need to).
func renderLiteral(value planner.Value) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case []planner.Value:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = renderLiteral(item)
		}
		return strings.Join(parts, ", ")
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(v), "'", "''") + "'"
	}
}

// arg returns renderedArgs[i] or "NULL" when the call was malformed
// (wrong arity slipped past the parser's own arity checks).
func arg(args []string, i int) string {
	if i < 0 || i >= len(args) {
		return "NULL"
	}
	return args[i]
}

func joinArgs(args []string) string { return strings.Join(args, ", ") }

// standardAggregation is the SQL-92-ish rendering every reference
// dialect starts from (grounded in dialect.rs's default render_aggregation).
func standardAggregation(agg planner.Aggregation, expr string) string {
	switch agg {
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
	case planner.AggMedian:
		return fmt.Sprintf("MEDIAN(%s)", expr)
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
	case planner.AggApproxCountDistinct:
		return fmt.Sprintf("APPROX_COUNT_DISTINCT(%s)", expr)
	case planner.AggFirst:
		return fmt.Sprintf("FIRST(%s)", expr)
	case planner.AggLast:
		return fmt.Sprintf("LAST(%s)", expr)
	default:
		return fmt.Sprintf("%s(%s)", strings.ToUpper(string(agg)), expr)
	}
}
