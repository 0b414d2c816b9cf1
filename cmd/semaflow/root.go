// Package main is the entry point for the semaflow CLI and HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	os.Exit(execute())
}

func execute() int {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var registryDir string
	var output string

	cmd := &cobra.Command{
		Use:           "semaflow",
		Short:         "Compile and run SemaFlow semantic queries",
		Long:          "semaflow loads a tables/flows registry and compiles query requests to SQL, without touching a running server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&registryDir, "registry-dir", "", "directory containing tables/ and flows/ (defaults to $SEMAFLOW_REGISTRY_PATH)")
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")

	cmd.AddCommand(newValidateCmd(&registryDir, &output))
	cmd.AddCommand(newPlanCmd(&registryDir, &output))
	cmd.AddCommand(newSchemaCmd(&registryDir, &output))
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func resolveRegistryDir(flagVal string) string {
	if flagVal != "" {
		return flagVal
	}
	return os.Getenv("SEMAFLOW_REGISTRY_PATH")
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}
