/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/accountadmin/apiserver/config"
	"github.com/accountadmin/apiserver/internal/server"
	"github.com/accountadmin/apiserver/internal/services"
	"github.com/accountadmin/apiserver/internal/storage"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Account maintenance tasks",
}

var usersPurgeCmd = &cobra.Command{
	Use:   "purge-unverified",
	Short: "Delete every account that was never confirmed",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg)

		deps, err := server.OpenDeps(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer deps.Close()

		affected, err := deps.UserService.DeleteUnverified(cmd.Context())
		if err != nil {
			return err
		}
		logger.Info("unverified accounts deleted", slog.Int64("affected", affected))
		fmt.Fprintln(cmd.OutOrStdout(), affected)
		return nil
	},
}

var exportKey string

var usersExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the account listing to object storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg)

		deps, err := server.OpenDeps(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer deps.Close()

		objects, err := storage.NewFromConfig(cmd.Context(), cfg.Export)
		if err != nil {
			return err
		}
		defer objects.Close()

		key, err := services.NewExportService(deps.UserService, objects).Export(cmd.Context(), exportKey)
		if err != nil {
			return err
		}
		logger.Info("account listing exported",
			slog.String("bucket", objects.Bucket()),
			slog.String("key", key),
		)
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersPurgeCmd)
	usersCmd.AddCommand(usersExportCmd)

	usersExportCmd.Flags().StringVar(&exportKey, "key", "", "object key (default exports/accounts-<timestamp>.json)")
}
