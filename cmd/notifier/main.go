package main

import (
	"os"

	"lease_notifier/internal/infra/config"
	"lease_notifier/internal/infra/logger"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &config.AppConfig{}

	root := &cobra.Command{
		Use:          "notifier",
		Short:        "Lease contract annuities and expiry reminders",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			*cfg = *loaded
			logger.Init(cfg)
			return nil
		},
	}

	root.AddCommand(
		newServeCommand(cfg),
		newDispatchCommand(cfg),
		newMigrateCommand(cfg),
	)
	return root
}
