package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/georgemunganga/printnow-backend/internal/db"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and rewrite legacy order statuses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			n, err := db.Migrate(cmd.Context(), conn)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date, %d legacy orders rewritten\n", n)
			return nil
		},
	}
}
