/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/notekeeper/apiserver/internal/db"
	"github.com/notekeeper/apiserver/internal/store"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Maintain stored sessions",
}

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		conn, err := db.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer conn.Close()

		pruned, err := store.PruneSessions(cmd.Context(), conn)
		if err != nil {
			return fmt.Errorf("prune sessions: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pruned %d expired sessions\n", pruned)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsPruneCmd)
}
