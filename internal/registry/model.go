package registry

import (
	"fmt"

	yaml "go.yaml.in/yaml/v4"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/semaflow/semaflow/internal/planner"
)

// rawTable mirrors the on-disk shape of a SemanticTable spec. Dimensions
// and Measures are decoded as raw mapping nodes (not map[string]rawX) so
// buildTable can walk them in file order — spec.md §9's "ordered
// mappings" note means DimensionOrder/MeasureOrder must reflect YAML
// definition order, which a Go map decode would discard.
type rawTable struct {
	DataSource    string    `yaml:"data_source"`
	Table         string    `yaml:"table"`
	PrimaryKey    *string   `yaml:"primary_key"`
	PrimaryKeys   []string  `yaml:"primary_keys"`
	TimeDimension string    `yaml:"time_dimension"`
	Dimensions    yaml.Node `yaml:"dimensions"`
	Measures      yaml.Node `yaml:"measures"`
	Description   string    `yaml:"description"`
}

// rawDimension accepts either a bare string (shorthand for a column
// reference) or the full object form, matching the original Rust
// loader's custom Dimension deserializer.
type rawDimension struct {
	Expr        string
	DataType    string
	Description string
}

func (d *rawDimension) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&d.Expr)
	}
	var full struct {
		Expr        string `yaml:"expr"`
		DataType    string `yaml:"data_type"`
		Description string `yaml:"description"`
	}
	if err := value.Decode(&full); err != nil {
		return err
	}
	d.Expr = full.Expr
	d.DataType = full.DataType
	d.Description = full.Description
	return nil
}

// rawMeasure carries every field either measure flavor may set; buildTable
// enforces the simple-vs-formula mutual exclusivity the original Rust
// loader's Measure deserializer enforces.
type rawMeasure struct {
	Expr        *string `yaml:"expr"`
	Agg         *string `yaml:"agg"`
	Formula     *string `yaml:"formula"`
	Filter      *string `yaml:"filter"`
	PostExpr    *string `yaml:"post_expr"`
	DataType    string  `yaml:"data_type"`
	Description string  `yaml:"description"`
}

// rawFlow mirrors the on-disk shape of a SemanticFlow spec, decoded with
// go.yaml.in/yaml/v4. Joins stays a raw mapping node (not map[string]rawJoin)
// so buildFlow can walk it in file order — see rawTable's Dimensions/Measures
// comment for why.
type rawFlow struct {
	Name        string      `yaml:"name"`
	BaseTable   rawTableRef `yaml:"base_table"`
	Joins       yaml.Node   `yaml:"joins"`
	Description string      `yaml:"description"`
}

// namedJoin is one join-alias/definition pair in file order, produced
// from either YAML library's mapping-node representation.
type namedJoin struct {
	Alias string
	Join  rawJoin
}

type rawTableRef struct {
	SemanticTable string `yaml:"semantic_table"`
	Alias         string `yaml:"alias"`
}

type rawJoin struct {
	SemanticTable string       `yaml:"semantic_table"`
	Alias         string       `yaml:"alias"`
	ToAlias       string       `yaml:"to_table"`
	JoinType      string       `yaml:"join_type"`
	JoinKeys      []rawJoinKey `yaml:"join_keys"`
	Cardinality   string       `yaml:"cardinality"`
	Description   string       `yaml:"description"`
}

type rawJoinKey struct {
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}

// rawFlowLegacy mirrors rawFlow but decodes with gopkg.in/yaml.v3, for bare
// flow documents predating the apiVersion/kind/metadata wrapper. The two
// libraries' Node types are not interchangeable, so a legacy document needs
// its own struct rather than sharing rawFlow's v4-typed Joins field.
type rawFlowLegacy struct {
	Name        string      `yaml:"name"`
	BaseTable   rawTableRef `yaml:"base_table"`
	Joins       yamlv3.Node `yaml:"joins"`
	Description string      `yaml:"description"`
}

// mappingPairs walks a decoded mapping node in file order, returning its
// (key, value) pairs. Returns nil for an absent or empty node.
func mappingPairs(n yaml.Node) []struct {
	Key   string
	Value *yaml.Node
} {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	out := make([]struct {
		Key   string
		Value *yaml.Node
	}, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out = append(out, struct {
			Key   string
			Value *yaml.Node
		}{Key: n.Content[i].Value, Value: n.Content[i+1]})
	}
	return out
}

// mappingPairsV3 is mappingPairs for gopkg.in/yaml.v3's Node type, used only
// by the legacy bare-flow-document fallback in loadFlowFile.
func mappingPairsV3(n yamlv3.Node) []struct {
	Key   string
	Value *yamlv3.Node
} {
	if n.Kind != yamlv3.MappingNode {
		return nil
	}
	out := make([]struct {
		Key   string
		Value *yamlv3.Node
	}, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out = append(out, struct {
			Key   string
			Value *yamlv3.Node
		}{Key: n.Content[i].Value, Value: n.Content[i+1]})
	}
	return out
}

// buildFlowLegacy assembles a SemanticFlow from a gopkg.in/yaml.v3-decoded
// rawFlowLegacy, walking its Joins node in file order.
func buildFlowLegacy(name string, raw rawFlowLegacy) (*planner.SemanticFlow, error) {
	var joins []namedJoin
	for _, pair := range mappingPairsV3(raw.Joins) {
		var rj rawJoin
		if err := pair.Value.Decode(&rj); err != nil {
			return nil, fmt.Errorf("flow %q: join %q: %w", name, pair.Key, err)
		}
		joins = append(joins, namedJoin{Alias: pair.Key, Join: rj})
	}
	return buildFlowCore(name, raw.BaseTable, raw.Description, joins)
}

func buildTable(name string, raw rawTable) (*planner.SemanticTable, error) {
	primaryKeys, err := resolvePrimaryKeys(raw.PrimaryKeys, raw.PrimaryKey)
	if err != nil {
		return nil, fmt.Errorf("table %q: %w", name, err)
	}

	table := &planner.SemanticTable{
		Name:          name,
		DataSource:    raw.DataSource,
		Table:         raw.Table,
		PrimaryKey:    primaryKeys,
		TimeDimension: raw.TimeDimension,
		Dimensions:    map[string]*planner.Dimension{},
		Measures:      map[string]*planner.Measure{},
	}

	// Measure names must be known before parsing any expression, since a
	// bare identifier inside a filter/post_expr/simple-measure expr that
	// matches a measure name resolves to a MeasureRef rather than a Column.
	measureNames := map[string]bool{}
	for _, pair := range mappingPairs(raw.Measures) {
		measureNames[pair.Key] = true
	}

	for _, pair := range mappingPairs(raw.Dimensions) {
		var rd rawDimension
		if err := pair.Value.Decode(&rd); err != nil {
			return nil, fmt.Errorf("table %q: dimension %q: %w", name, pair.Key, err)
		}
		expr, err := planner.ParseExpr(rd.Expr, nil)
		if err != nil {
			return nil, fmt.Errorf("table %q: dimension %q: %w", name, pair.Key, err)
		}
		table.Dimensions[pair.Key] = &planner.Dimension{
			Name:        pair.Key,
			Expr:        expr,
			DataType:    rd.DataType,
			Description: rd.Description,
		}
		table.DimensionOrder = append(table.DimensionOrder, pair.Key)
	}

	for _, pair := range mappingPairs(raw.Measures) {
		var rm rawMeasure
		if err := pair.Value.Decode(&rm); err != nil {
			return nil, fmt.Errorf("table %q: measure %q: %w", name, pair.Key, err)
		}
		measure, err := buildMeasure(name, pair.Key, rm, measureNames)
		if err != nil {
			return nil, err
		}
		table.Measures[pair.Key] = measure
		table.MeasureOrder = append(table.MeasureOrder, pair.Key)
	}

	return table, nil
}

func resolvePrimaryKeys(primaryKeys []string, primaryKey *string) ([]string, error) {
	if len(primaryKeys) > 0 {
		return primaryKeys, nil
	}
	if primaryKey != nil && *primaryKey != "" {
		return []string{*primaryKey}, nil
	}
	return nil, fmt.Errorf("either primary_key or primary_keys must be specified")
}

// buildMeasure enforces the mutual exclusivity between simple
// (expr+agg) and formula measures, matching the original Rust loader's
// Measure deserializer validation.
func buildMeasure(table, name string, rm rawMeasure, measureNames map[string]bool) (*planner.Measure, error) {
	hasSimple := rm.Expr != nil || rm.Agg != nil
	hasFormula := rm.Formula != nil

	switch {
	case hasSimple && hasFormula:
		return nil, fmt.Errorf("table %q: measure %q: cannot specify both expr/agg and formula", table, name)
	case !hasSimple && !hasFormula:
		return nil, fmt.Errorf("table %q: measure %q: must specify either expr+agg or formula", table, name)
	case hasFormula:
		if rm.Filter != nil {
			return nil, fmt.Errorf("table %q: measure %q: formula measures cannot have a separate filter", table, name)
		}
		if rm.PostExpr != nil {
			return nil, fmt.Errorf("table %q: measure %q: formula measures cannot have post_expr", table, name)
		}
		return &planner.Measure{
			Name:        name,
			Formula:     *rm.Formula,
			DataType:    rm.DataType,
			Description: rm.Description,
		}, nil
	default: // hasSimple
		if rm.Expr == nil || rm.Agg == nil {
			return nil, fmt.Errorf("table %q: measure %q: simple measures require both expr and agg", table, name)
		}
		expr, err := planner.ParseExpr(*rm.Expr, measureNames)
		if err != nil {
			return nil, fmt.Errorf("table %q: measure %q: %w", table, name, err)
		}
		measure := &planner.Measure{
			Name:        name,
			Expr:        expr,
			Agg:         planner.Aggregation(*rm.Agg),
			DataType:    rm.DataType,
			Description: rm.Description,
		}
		if rm.Filter != nil {
			filterExpr, err := planner.ParseExpr(*rm.Filter, measureNames)
			if err != nil {
				return nil, fmt.Errorf("table %q: measure %q: filter: %w", table, name, err)
			}
			measure.Filter = filterExpr
		}
		if rm.PostExpr != nil {
			postExpr, err := planner.ParseExpr(*rm.PostExpr, measureNames)
			if err != nil {
				return nil, fmt.Errorf("table %q: measure %q: post_expr: %w", table, name, err)
			}
			measure.PostExpr = postExpr
		}
		return measure, nil
	}
}

// buildFlow assembles a SemanticFlow from a go.yaml.in/yaml/v4-decoded
// rawFlow, walking its Joins node in file order.
func buildFlow(name string, raw rawFlow) (*planner.SemanticFlow, error) {
	var joins []namedJoin
	for _, pair := range mappingPairs(raw.Joins) {
		var rj rawJoin
		if err := pair.Value.Decode(&rj); err != nil {
			return nil, fmt.Errorf("flow %q: join %q: %w", name, pair.Key, err)
		}
		joins = append(joins, namedJoin{Alias: pair.Key, Join: rj})
	}
	return buildFlowCore(name, raw.BaseTable, raw.Description, joins)
}

// buildFlowCore assembles a SemanticFlow from already-extracted joins, in
// file order, independent of which YAML library produced them — see
// loadFlowFile's legacy gopkg.in/yaml.v3 fallback, which extracts its own
// joins via mappingPairsV3 before calling here.
func buildFlowCore(name string, baseTable rawTableRef, description string, joins []namedJoin) (*planner.SemanticFlow, error) {
	flow := &planner.SemanticFlow{
		Name: name,
		BaseTable: planner.BaseTableRef{
			SemanticTable: baseTable.SemanticTable,
			Alias:         baseTable.Alias,
		},
		Joins:       map[string]*planner.FlowJoin{},
		Description: description,
	}

	for _, nj := range joins {
		rj := nj.Join
		keys := make([]planner.JoinKey, len(rj.JoinKeys))
		for i, k := range rj.JoinKeys {
			keys[i] = planner.JoinKey{Left: k.Left, Right: k.Right}
		}
		flow.Joins[nj.Alias] = &planner.FlowJoin{
			SemanticTable: rj.SemanticTable,
			Alias:         rj.Alias,
			ToAlias:       rj.ToAlias,
			JoinType:      planner.JoinType(rj.JoinType),
			JoinKeys:      keys,
			Cardinality:   planner.Cardinality(rj.Cardinality),
		}
		flow.JoinOrder = append(flow.JoinOrder, nj.Alias)
	}

	return flow, nil
}
