package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	regUsername string
	regEmail    string
	regPassword string

	loginUsername string
	loginPassword string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a user account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		u, err := a.Services.Auth.Register(cmd.Context(), regUsername, regEmail, regPassword)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "registered %s (id=%d)\n", u.Username, u.ID)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Issue an access token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		token, expires, err := a.Services.Auth.Login(cmd.Context(), loginUsername, loginPassword)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.UTC().Format(time.RFC3339))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registerCmd, loginCmd)

	registerCmd.Flags().StringVar(&regUsername, "username", "", "account name")
	registerCmd.Flags().StringVar(&regEmail, "email", "", "account email")
	registerCmd.Flags().StringVar(&regPassword, "password", "", "password (at least 8 characters)")
	_ = registerCmd.MarkFlagRequired("username")
	_ = registerCmd.MarkFlagRequired("email")
	_ = registerCmd.MarkFlagRequired("password")

	loginCmd.Flags().StringVar(&loginUsername, "username", "", "account name")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password")
	_ = loginCmd.MarkFlagRequired("username")
	_ = loginCmd.MarkFlagRequired("password")
}
