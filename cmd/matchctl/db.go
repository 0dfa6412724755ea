package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"studybuddy-matcher/internal/app"
	"studybuddy-matcher/internal/config"
	"studybuddy-matcher/internal/handlers"
	"studybuddy-matcher/internal/services/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the profiles and partner_matches tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			db, err := database.New(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import a profile CSV into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := handlers.NewProfileImporter(a.Profiles, a.CacheInvalidator()).Import(cmd.Context(), content, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
}
