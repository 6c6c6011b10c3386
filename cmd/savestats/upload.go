package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yungbote/savestats/internal/pkg/ingesterr"
)

var (
	uploadFile  string
	uploadToken string
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Store a local save in object storage and print its key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(uploadToken); err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.Authenticate(cmd.Context(), uploadToken)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(uploadFile)
		if err != nil {
			return ingesterr.Validation("cli.upload", err)
		}
		key, err := a.Services.Saves.Upload(cmd.Context(), id.UserID, filepath.Base(uploadFile), data)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().StringVar(&uploadFile, "file", "", "path to the save file")
	uploadCmd.Flags().StringVar(&uploadToken, "token", "", "access token from login")
	_ = uploadCmd.MarkFlagRequired("file")
}
