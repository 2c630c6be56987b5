package main

import (
	"fmt"
	"os"

	"obra-manager/internal/access"
	"obra-manager/internal/config"
	"obra-manager/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfg   *config.Config
	roles access.Roles
)

var rootCmd = &cobra.Command{
	Use:   "obra-manager",
	Short: "Construction project management API",
	Long: `obra-manager serves the JSON API for projects, tasks, inventory,
team assignment, quality inspections, photos and reports.

Configuration is read from the environment (and a .env file if present).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if _, err := logger.New(cfg.AppEnv, cfg.LogLevel); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		roles, err = access.LoadRoles(cfg.RolesFile)
		if err != nil {
			return fmt.Errorf("load roles: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.L.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedDemo, "demo", false, "also create one demo account per role")
	permisosCmd.Flags().StringVar(&resetUser, "reset", "", "reset this username's permissions to its role defaults")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, permisosCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
