/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"

	"github.com/notekeeper/apiserver/internal/events"
	"github.com/notekeeper/apiserver/types"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect published change events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print change events as JSON lines until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		bus, err := events.Open(ctx, cfg.Events)
		if err != nil {
			return err
		}
		defer bus.Close()

		out := json.NewEncoder(cmd.OutOrStdout())
		err = bus.Subscribe(ctx, func(_ context.Context, event types.Event) error {
			return out.Encode(event)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
