package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the accounts and lockouts tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openSQL(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", flagDialect)
		return nil
	},
}
