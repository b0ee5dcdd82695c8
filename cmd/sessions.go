/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/accountadmin/apiserver/config"
	"github.com/accountadmin/apiserver/internal/server"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Session maintenance tasks",
}

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg)

		deps, err := server.OpenDeps(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer deps.Close()

		removed, err := deps.SessionService.Prune(cmd.Context())
		if err != nil {
			return err
		}
		logger.Info("expired sessions pruned", slog.Int64("removed", removed))
		fmt.Fprintln(cmd.OutOrStdout(), removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsPruneCmd)
}
