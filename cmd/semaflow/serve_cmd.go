package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/semaflow/semaflow/internal/api"
	"github.com/semaflow/semaflow/internal/config"
	"github.com/semaflow/semaflow/internal/connreg"
	"github.com/semaflow/semaflow/internal/db"
	"github.com/semaflow/semaflow/internal/db/repository"
	"github.com/semaflow/semaflow/internal/middleware"
	"github.com/semaflow/semaflow/internal/planner"
	"github.com/semaflow/semaflow/internal/registry"
)

func newServeCmd() *cobra.Command {
	var historyDBPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the SemaFlow HTTP API",
		Long:  "Loads SEMAFLOW_REGISTRY_PATH, wires data sources from SEMAFLOW_DATA_SOURCES, and serves /v1/query/plan, /v1/query/run, and /v1/flows/{name}/schema.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := cfg.NewLogger()
			for _, w := range cfg.Warnings {
				logger.Warn(w)
			}

			mode := planner.ValidationWarn
			if cfg.ValidationMode == string(planner.ValidationStrict) {
				mode = planner.ValidationStrict
			}

			reg, err := registry.LoadDirectory(cfg.RegistryPath)
			if err != nil {
				return fmt.Errorf("load registry: %w", err)
			}
			if errs, err := planner.ValidateRegistry(reg, mode); err != nil {
				return fmt.Errorf("invalid registry: %w", err)
			} else if !errs.Empty() {
				for _, verr := range errs.Errors {
					logger.Warn("registry validation warning", "flow", verr.Flow, "table", verr.Table, "kind", verr.Kind(), "error", verr.Message)
				}
			}
			holder := registry.NewHolder(reg)

			if cfg.RegistryReloadCron != "" {
				refresher := registry.NewRefresher(cfg.RegistryPath, mode, holder, logger)
				if err := refresher.Start(cfg.RegistryReloadCron); err != nil {
					return fmt.Errorf("start registry refresher: %w", err)
				}
				defer refresher.Stop()
			}

			connReg := connreg.NewRegistry(cfg.DataSources)

			historyDB, err := db.OpenSQLite(historyDBPath, "write", 1)
			if err != nil {
				return fmt.Errorf("open query history database: %w", err)
			}
			defer historyDB.Close()
			if err := db.RunMigrations(historyDB); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			historyRepo := repository.NewQueryHistoryRepo(historyDB)

			handler := api.NewHandler(holder, connReg, historyRepo, cfg.DefaultRowLimit, logger)
			server := api.NewServer(handler, api.ServerConfig{
				RateLimit: middleware.RateLimitConfig{RequestsPerSecond: 20, Burst: 40},
			})

			logger.Info("semaflow HTTP API listening", "addr", cfg.HTTPAddr)
			return http.ListenAndServe(cfg.HTTPAddr, server)
		},
	}

	cmd.Flags().StringVar(&historyDBPath, "history-db", "semaflow-history.db", "path to the query history SQLite database")

	return cmd
}
