package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	filesToken string
	filesJSON  bool
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List processed saves owned by the caller",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(filesToken); err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.Authenticate(cmd.Context(), filesToken)
		if err != nil {
			return err
		}
		owned, err := a.Services.Saves.ListOwned(cmd.Context(), id.UserID)
		if err != nil {
			return err
		}

		if filesJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(owned)
		}
		out := cmd.OutOrStdout()
		if len(owned) == 0 {
			fmt.Fprintln(out, "no processed saves")
			return nil
		}
		for _, f := range owned {
			fmt.Fprintf(out, "%s %s %s [%s]\n",
				f.Checksum[:min(12, len(f.Checksum))],
				f.UploadedAt.UTC().Format(time.RFC3339),
				f.FileName,
				strings.Join(f.Tags, " "),
			)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(filesCmd)
	filesCmd.Flags().StringVar(&filesToken, "token", "", "access token from login")
	filesCmd.Flags().BoolVar(&filesJSON, "json", false, "print JSON")
}
