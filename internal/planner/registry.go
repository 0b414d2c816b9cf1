package planner

// Registry is the O(1) name → definition store spec.md §4.2 requires:
// a map of semantic tables and a map of flows. It is built once (or
// reloaded wholesale by an external loader) and is safe to read from
// any number of concurrent planners once published; nothing in this
// package mutates a Registry after NewRegistry returns it, matching
// spec.md §5's "registry is read-mostly ... new value swapped into a
// shared holder" model. The atomic-swap holder itself lives in
// internal/registry (the on-disk loader), not here — this type is the
// pure, O(1)-lookup snapshot the core plans against.
type Registry struct {
	tables map[string]*SemanticTable
	flows  map[string]*SemanticFlow
}

// NewRegistry builds a Registry from already-constructed tables and
// flows. Ordering of the input slices has no effect on lookup; ordered
// emission within a single table/flow comes from their own
// DimensionOrder/MeasureOrder/JoinOrder fields.
func NewRegistry(tables []*SemanticTable, flows []*SemanticFlow) *Registry {
	r := &Registry{
		tables: make(map[string]*SemanticTable, len(tables)),
		flows:  make(map[string]*SemanticFlow, len(flows)),
	}
	for _, t := range tables {
		r.tables[t.Name] = t
	}
	for _, f := range flows {
		r.flows[f.Name] = f
	}
	return r
}

// Table looks up a semantic table by name.
func (r *Registry) Table(name string) (*SemanticTable, bool) {
	t, ok := r.tables[name]
	return t, ok
}

// Flow looks up a flow by name.
func (r *Registry) Flow(name string) (*SemanticFlow, bool) {
	f, ok := r.flows[name]
	return f, ok
}

// Tables returns every registered table, for iteration by callers
// such as the registry loader or the CLI's `schema` command.
func (r *Registry) Tables() []*SemanticTable {
	out := make([]*SemanticTable, 0, len(r.tables))
	for _, t := range r.tables {
		out = append(out, t)
	}
	return out
}

// Flows returns every registered flow.
func (r *Registry) Flows() []*SemanticFlow {
	out := make([]*SemanticFlow, 0, len(r.flows))
	for _, f := range r.flows {
		out = append(out, f)
	}
	return out
}

// AliasTable builds the alias → SemanticTable map for a flow: the base
// alias plus every join alias. Returns UnknownFlow if the base table or
// any joined table is missing from the registry (should not happen past
// ValidateRegistry, but callers may invoke this against an unvalidated
// registry too).
func (r *Registry) AliasTable(flow *SemanticFlow) (map[string]*SemanticTable, error) {
	out := make(map[string]*SemanticTable, 1+len(flow.Joins))
	base, ok := r.Table(flow.BaseTable.SemanticTable)
	if !ok {
		return nil, newErr(UnknownFlow, "unknown semantic table %q", flow.BaseTable.SemanticTable).withFlow(flow.Name)
	}
	out[flow.BaseTable.Alias] = base

	for _, alias := range flow.JoinOrder {
		join := flow.Joins[alias]
		t, ok := r.Table(join.SemanticTable)
		if !ok {
			return nil, newErr(UnknownFlow, "unknown semantic table %q", join.SemanticTable).withFlow(flow.Name)
		}
		out[alias] = t
	}
	return out, nil
}

// FieldSchema is one exported dimension or measure in a FlowSchema.
type FieldSchema struct {
	PublicName    string // "alias.name"
	Alias         string
	Name          string
	DataType      string
	Description   string
	IsTimeDim     bool
	IsMeasure     bool
	Aggregation   Aggregation // empty for dimensions and derived/formula measures
}

// FlowSchema is the public view of a flow's queryable surface: every
// dimension and measure across the base and its joins, qualified and
// described, but never exposing join internals (spec.md §4.2).
type FlowSchema struct {
	Flow   string
	Fields []FieldSchema
}

// FlowSchema computes the exported schema of a flow for introspection —
// e.g. the CLI's `schema` command or the HTTP `/v1/flows/{name}/schema`
// route.
func (r *Registry) FlowSchema(flowName string) (*FlowSchema, error) {
	flow, ok := r.Flow(flowName)
	if !ok {
		return nil, newErr(UnknownFlow, "flow %q not found in registry", flowName)
	}
	aliasTable, err := r.AliasTable(flow)
	if err != nil {
		return nil, err
	}

	schema := &FlowSchema{Flow: flowName}
	aliases := append([]string{flow.BaseTable.Alias}, flow.JoinOrder...)
	for _, alias := range aliases {
		table := aliasTable[alias]
		for _, dimName := range table.DimensionOrder {
			dim := table.Dimensions[dimName]
			schema.Fields = append(schema.Fields, FieldSchema{
				PublicName:  alias + "." + dimName,
				Alias:       alias,
				Name:        dimName,
				DataType:    dim.DataType,
				Description: dim.Description,
				IsTimeDim:   dimName == table.TimeDimension,
			})
		}
		for _, measName := range table.MeasureOrder {
			meas := table.Measures[measName]
			schema.Fields = append(schema.Fields, FieldSchema{
				PublicName:  alias + "." + measName,
				Alias:       alias,
				Name:        measName,
				DataType:    meas.DataType,
				Description: meas.Description,
				IsMeasure:   true,
				Aggregation: meas.Agg,
			})
		}
	}
	return schema, nil
}
