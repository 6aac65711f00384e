package main

import (
	"context"
	"encoding/json"

	"lease_notifier/internal/infra/config"

	"github.com/spf13/cobra"
)

func newDispatchCommand(cfg *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch",
		Short: "Run one expiry dispatch and print its stats",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.DispatchTimeout)
			defer cancel()

			a, err := buildApplication(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, runErr := a.dispatcher.RunExpiryDispatch(ctx)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(stats); err != nil {
				return err
			}
			return runErr
		},
	}
}
