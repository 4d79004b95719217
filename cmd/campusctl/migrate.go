package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"smartcampus/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long: `Apply every pending migration for the configured DB_DRIVER.

Example:
  campusctl migrate
  campusctl migrate --status`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("status", false, "List applied migrations instead of applying")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	db, err := store.NewDB(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	if mustGetBool(cmd, "status") {
		versions, err := db.MigrationsApplied(ctx)
		if err != nil {
			return err
		}
		for _, v := range versions {
			fmt.Fprintln(out, v)
		}
		return nil
	}

	applied, err := db.Migrate(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Fprintln(out, "Schema is up to date")
		return nil
	}
	for _, v := range applied {
		fmt.Fprintf(out, "Applied %s\n", v)
	}
	return nil
}
