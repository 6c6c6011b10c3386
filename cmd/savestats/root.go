package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/savestats/internal/app"
	"github.com/yungbote/savestats/internal/pkg/ingesterr"
	"github.com/yungbote/savestats/internal/platform/config"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	envFiles []string
	logMode  string
)

var rootCmd = &cobra.Command{
	Use:           "savestats",
	Short:         "Ingest EU4 save files into a statistics database",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv file(s) to load before reading the environment (default .env)")
	rootCmd.PersistentFlags().StringVar(&logMode, "log-mode", "", "override LOG_MODE (development, production, test)")
}

// exitCode maps the error taxonomy onto distinct process exit codes.
func exitCode(err error) int {
	switch ingesterr.KindOf(err) {
	case ingesterr.KindValidation:
		return 2
	case ingesterr.KindAuth:
		return 3
	case ingesterr.KindDecode:
		return 4
	case ingesterr.KindPersistence:
		return 5
	}
	return 1
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return config.Config{}, err
	}
	if m := strings.TrimSpace(logMode); m != "" {
		cfg.LogMode = m
	}
	return cfg, nil
}

func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg, version)
}

func requireToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return ingesterr.Auth("cli", errors.New("--token is required"))
	}
	return nil
}
