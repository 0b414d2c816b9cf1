package planner

// InferCardinality determines a FlowJoin's cardinality toward its
// joined side, per spec.md §4.5: an explicit hint always wins
// (SPEC_FULL.md §13.2 resolves the source's ambiguity here in favor of
// the hint being checked first, unconditionally); otherwise a join is
// many-to-one when its right-hand join-key columns exactly cover the
// joined table's primary key, one-to-many when its left-hand columns
// exactly cover the base side's primary key, one-to-one when both do,
// and unknown otherwise.
func InferCardinality(join *FlowJoin, leftPK, rightPK []string) Cardinality {
	if join.Cardinality != CardinalityUnknown {
		return join.Cardinality
	}

	leftKeys := columnSet(joinKeyColumns(join.JoinKeys, true))
	rightKeys := columnSet(joinKeyColumns(join.JoinKeys, false))
	leftIsPK := len(leftPK) > 0 && setEquals(leftKeys, columnSet(leftPK))
	rightIsPK := len(rightPK) > 0 && setEquals(rightKeys, columnSet(rightPK))

	switch {
	case leftIsPK && rightIsPK:
		return CardinalityOneToOne
	case leftIsPK:
		return CardinalityOneToMany
	case rightIsPK:
		return CardinalityManyToOne
	default:
		return CardinalityUnknown
	}
}

// IsSafeManyToOne reports whether join is provably many-to-one (or
// one-to-one) toward its joined side — the condition spec.md §4.5 and
// §4.6 both key off, for fanout analysis and join pruning respectively.
func IsSafeManyToOne(join *FlowJoin, leftPK, rightPK []string) bool {
	c := InferCardinality(join, leftPK, rightPK)
	return c == CardinalityManyToOne || c == CardinalityOneToOne
}

func joinKeyColumns(keys []JoinKey, left bool) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		if left {
			out[i] = k.Left
		} else {
			out[i] = k.Right
		}
	}
	return out
}

func columnSet(cols []string) map[string]bool {
	s := make(map[string]bool, len(cols))
	for _, c := range cols {
		s[c] = true
	}
	return s
}

func setEquals(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
