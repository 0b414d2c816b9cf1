package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/semaflow/semaflow/internal/planner"
	"github.com/semaflow/semaflow/internal/registry"
)

func newValidateCmd(registryDir, output *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a tables/flows registry offline",
		Long:  "Loads the YAML registry directory and runs every check without compiling or running any query.",
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			verrs, _ := planner.ValidateRegistry(reg, planner.ValidationStrict)

			if *output == "json" {
				msgs := make([]string, len(verrs.Errors))
				for i, e := range verrs.Errors {
					msgs[i] = e.Error()
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"valid":  verrs.Empty(),
					"errors": msgs,
				})
			}

			if verrs.Empty() {
				fmt.Fprintln(cmd.OutOrStdout(), "Registry is valid.")
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Registry has %d validation error(s):\n", len(verrs.Errors))
			for _, e := range verrs.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", e.Error())
			}
			os.Exit(1)
			return nil
		},
	}
	return cmd
}
