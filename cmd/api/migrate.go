package main

import (
	"github.com/spf13/cobra"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/config"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/db"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/log"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		initLogger(cfg)
		if err := db.MigrateUp(cfg.DBDSN); err != nil {
			return err
		}
		log.Info("migrations applied")
		return nil
	},
}

var migrateSteps int

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		initLogger(cfg)
		if err := db.MigrateDown(cfg.DBDSN, migrateSteps); err != nil {
			return err
		}
		log.Info("migrations rolled back")
		return nil
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(migrateCmd)
}
