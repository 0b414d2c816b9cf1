package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectRequiredJoinsPrunesUnrequiredManyToOne(t *testing.T) {
	r := newFixtureRegistry()
	flow, _ := r.Flow("order_analysis")
	aliasToTable, err := r.AliasTable(flow)
	require.NoError(t, err)

	// Neither c nor li is required: c is prunable (left join on exact PK),
	// li is not (its join keys don't cover its own PK) and stays.
	joins, err := SelectRequiredJoins(flow, map[string]bool{"o": true}, aliasToTable)
	require.NoError(t, err)
	require.Len(t, joins, 1)
	assert.Equal(t, "li", joins[0].Alias)
}

func TestSelectRequiredJoinsKeepsRequiredPrunableJoin(t *testing.T) {
	r := newFixtureRegistry()
	flow, _ := r.Flow("order_analysis")
	aliasToTable, err := r.AliasTable(flow)
	require.NoError(t, err)

	joins, err := SelectRequiredJoins(flow, map[string]bool{"o": true, "c": true}, aliasToTable)
	require.NoError(t, err)
	require.Len(t, joins, 2)
	aliases := []string{joins[0].Alias, joins[1].Alias}
	assert.ElementsMatch(t, []string{"c", "li"}, aliases)
}

func TestSafeToPruneRequiresLeftJoinOnExactPK(t *testing.T) {
	r := newFixtureRegistry()
	flow, _ := r.Flow("order_analysis")
	aliasToTable, err := r.AliasTable(flow)
	require.NoError(t, err)

	assert.True(t, safeToPrune(flow.Joins["c"], aliasToTable))
	assert.False(t, safeToPrune(flow.Joins["li"], aliasToTable))
}
