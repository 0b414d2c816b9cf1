package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/semaflow/semaflow/internal/registry"
)

func newSchemaCmd(registryDir, output *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema <flow>",
		Short: "Print a flow's queryable dimensions and measures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutputFormat(*output); err != nil {
				return err
			}
			dir := resolveRegistryDir(*registryDir)
			if dir == "" {
				return fmt.Errorf("registry directory not set: pass --registry-dir or SEMAFLOW_REGISTRY_PATH")
			}

			reg, err := registry.LoadDirectory(dir)
			if err != nil {
				return fmt.Errorf("load registry: %w", err)
			}

			schema, err := reg.FlowSchema(args[0])
			if err != nil {
				return fmt.Errorf("flow schema: %w", err)
			}

			if *output == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(schema)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			fmt.Fprintln(tw, "FIELD\tTYPE\tKIND")
			for _, f := range schema.Fields {
				kind := "dimension"
				if f.IsTimeDim {
					kind = "time_dimension"
				}
				if f.IsMeasure {
					kind = "measure"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", f.PublicName, f.DataType, kind)
			}
			return tw.Flush()
		},
	}
	return cmd
}
