package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/ipes-academic-api/db"
	"github.com/noah-isme/ipes-academic-api/pkg/database"
)

func newSchemaCmd(withSession sessionRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect or apply the relational schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "print",
			Short: "Write the schema DDL to stdout",
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, err := fmt.Fprint(cmd.OutOrStdout(), db.Schema)
				return err
			},
		},
		&cobra.Command{
			Use:   "apply",
			Short: "Create missing tables and indexes in one transaction",
			RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
				if err := database.ApplySchema(cmd.Context(), s.db, db.Schema); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
				return nil
			}),
		},
	)
	return cmd
}
