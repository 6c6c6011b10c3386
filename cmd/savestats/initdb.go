package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// app.New migrates and asserts the unique indexes.
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "schema ready (driver=%s)\n", a.DB.Driver())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initDBCmd)
}
