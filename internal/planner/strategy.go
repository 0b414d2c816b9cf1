package planner

// MeasureStrategy governs how a measure's aggregate is re-aggregated
// across a MultiGrain plan's per-alias CTEs (spec.md §4.6/§12.5), since
// naively re-applying the same aggregate function to already-aggregated
// rows is only correct for some aggregation families.
type MeasureStrategy string

const (
	// PreAggregatable measures (Sum, Count) satisfy SUM(SUM(x)) = SUM(x):
	// pre-aggregate per alias, then SUM in the final query.
	PreAggregatable MeasureStrategy = "pre_aggregatable"

	// Associative measures (Min, Max) satisfy MIN(MIN(x)) = MIN(x): the
	// same function re-applies cleanly.
	Associative MeasureStrategy = "associative"

	// WeightedAverage (Avg) cannot be re-aggregated directly: the CTE
	// must emit SUM and COUNT separately, and the final query divides
	// their re-aggregated totals.
	WeightedAverage MeasureStrategy = "weighted_average"

	// DistinctSafe (CountDistinct, ApproxCountDistinct) skips CTE
	// pre-aggregation entirely — DISTINCT already tolerates the row
	// duplication a join fanout introduces, so it is computed directly
	// in the final query over the joined (unaggregated) rows.
	DistinctSafe MeasureStrategy = "distinct_safe"

	// NonDecomposable measures (Median, Stddev, Variance, StringAgg,
	// ArrayAgg, First, Last, and every formula measure) cannot be
	// correctly split across a pre-aggregation boundary; requesting one
	// in a query that needs MultiGrain is an error.
	NonDecomposable MeasureStrategy = "non_decomposable"
)

// ClassifyAggregation maps an Aggregation to its MeasureStrategy,
// grounded on the pre-distillation implementation's classify_aggregation.
func ClassifyAggregation(agg Aggregation) MeasureStrategy {
	switch agg {
	case AggSum, AggCount:
		return PreAggregatable
	case AggMin, AggMax:
		return Associative
	case AggAvg:
		return WeightedAverage
	case AggCountDistinct, AggApproxCountDistinct:
		return DistinctSafe
	default:
		return NonDecomposable
	}
}

// ClassifyMeasure classifies a Measure's strategy: a base measure
// defers to its Aggregation; a derived or formula measure is always
// NonDecomposable, since it can only be evaluated once its dependencies
// are fully aggregated to the final grain.
func ClassifyMeasure(m *Measure) MeasureStrategy {
	if m.IsBase() {
		return ClassifyAggregation(m.Agg)
	}
	return NonDecomposable
}
