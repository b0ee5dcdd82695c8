/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"log/slog"
	"os"

	"github.com/accountadmin/apiserver/config"
	"github.com/accountadmin/apiserver/internal/logging"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "apiserver",
	Short: "Account administration API server",
	Long: `Account administration API server. Users register and log in; any
signed-in, non-blocked user can list, confirm, block, unblock and delete
accounts.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	logger := logging.New(os.Stderr, cfg.IsDev(), cfg.LogLevel)
	slog.SetDefault(logger)
	return logger
}
