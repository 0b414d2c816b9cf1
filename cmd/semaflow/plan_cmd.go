package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/semaflow/semaflow/internal/planner"
	"github.com/semaflow/semaflow/internal/planner/dialect"
	"github.com/semaflow/semaflow/internal/registry"
	"github.com/semaflow/semaflow/internal/semaflow"
)

var dialects = map[string]dialect.Dialect{
	"duckdb":   dialect.DuckDB{},
	"postgres": dialect.Postgres{},
	"bigquery": dialect.BigQuery{},
}

func newPlanCmd(registryDir, output *string) *cobra.Command {
	var (
		flow       string
		dimensions []string
		measures   []string
		filters    []string
		orderBy    []string
		limit      int
		dialectOpt string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compile a query request to SQL without running it",
		Long:  "Loads the registry, resolves the given flow, dimensions, measures, filters and order, and prints the compiled SQL.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutputFormat(*output); err != nil {
				return err
			}
			dir := resolveRegistryDir(*registryDir)
			if dir == "" {
				return fmt.Errorf("registry directory not set: pass --registry-dir or SEMAFLOW_REGISTRY_PATH")
			}
			d, ok := dialects[dialectOpt]
			if !ok {
				return fmt.Errorf("unsupported dialect %q: use duckdb, postgres, or bigquery", dialectOpt)
			}

			reg, err := registry.LoadDirectory(dir)
			if err != nil {
				return fmt.Errorf("load registry: %w", err)
			}
			if _, err := planner.ValidateRegistry(reg, planner.ValidationStrict); err != nil {
				return fmt.Errorf("invalid registry: %w", err)
			}

			req, err := buildQueryRequest(flow, dimensions, measures, filters, orderBy, limit)
			if err != nil {
				return err
			}

			result, err := semaflow.Compile(reg, req, d)
			if err != nil {
				return fmt.Errorf("compile: %w", err)
			}

			if *output == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"sql":               result.SQL,
					"needs_multi_grain": result.NeedsMultiGrain,
					"reason":            result.Reason,
					"column_aliases":    result.ColumnAliases,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.SQL)
			if result.NeedsMultiGrain {
				fmt.Fprintf(cmd.OutOrStdout(), "-- multi-grain plan: %s\n", result.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flow, "flow", "", "flow name (required)")
	cmd.Flags().StringSliceVar(&dimensions, "dimension", nil, "dimension to select, repeatable")
	cmd.Flags().StringSliceVar(&measures, "measure", nil, "measure to select, repeatable")
	cmd.Flags().StringSliceVar(&filters, "filter", nil, "filter as field op value, e.g. 'orders.status == open', repeatable")
	cmd.Flags().StringSliceVar(&orderBy, "order", nil, "order term as column:asc|desc, repeatable")
	cmd.Flags().IntVar(&limit, "limit", 0, "row limit (0 means no LIMIT)")
	cmd.Flags().StringVar(&dialectOpt, "dialect", "duckdb", "target dialect (duckdb, postgres, bigquery)")
	_ = cmd.MarkFlagRequired("flow")

	return cmd
}

// buildQueryRequest parses the CLI's flat flag representation into a
// planner.QueryRequest, the command-line analogue of dto.go's
// queryRequestBody.toQueryRequest for the HTTP surface.
func buildQueryRequest(flow string, dimensions, measures, filters, orderBy []string, limit int) (*planner.QueryRequest, error) {
	req := &planner.QueryRequest{
		Flow:       flow,
		Dimensions: dimensions,
		Measures:   measures,
	}
	if limit > 0 {
		req.Limit = &limit
	}

	for _, f := range filters {
		parsed, err := parseFilter(f)
		if err != nil {
			return nil, err
		}
		req.Filters = append(req.Filters, parsed)
	}

	for _, o := range orderBy {
		col, dir, found := strings.Cut(o, ":")
		if !found {
			dir = "asc"
		}
		req.Order = append(req.Order, planner.RequestOrderItem{Column: col, Direction: dir})
	}

	return req, nil
}

var filterOpTokens = []planner.FilterOp{
	planner.FilterGte, planner.FilterLte, planner.FilterNeq, planner.FilterEq,
	planner.FilterGt, planner.FilterLt, planner.FilterNotIn, planner.FilterIn,
	planner.FilterILike, planner.FilterLike,
}

// parseFilter splits "field op value" on the first matching operator
// token, longest tokens first so ">=" isn't mistaken for ">".
func parseFilter(raw string) (planner.Filter, error) {
	for _, op := range filterOpTokens {
		marker := " " + string(op) + " "
		if idx := strings.Index(raw, marker); idx >= 0 {
			field := strings.TrimSpace(raw[:idx])
			value := strings.TrimSpace(raw[idx+len(marker):])
			if op == planner.FilterIn || op == planner.FilterNotIn {
				parts := strings.Split(value, ",")
				vals := make([]any, len(parts))
				for i, p := range parts {
					vals[i] = strings.TrimSpace(p)
				}
				return planner.Filter{Field: field, Op: op, Value: vals}, nil
			}
			return planner.Filter{Field: field, Op: op, Value: value}, nil
		}
	}
	return planner.Filter{}, fmt.Errorf("invalid filter %q: expected 'field op value'", raw)
}
