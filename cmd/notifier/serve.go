package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"lease_notifier/internal/infra/config"
	"lease_notifier/internal/infra/httpapi"
	"lease_notifier/internal/infra/logger"
	"lease_notifier/internal/infra/scheduler"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(cfg *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler, the Telegram bot and the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.AppConfig) error {
	mainLogger := logger.WithComponent("main")
	if err := cfg.ValidateHTTP(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApplication(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	dispatchScheduler := scheduler.NewDispatchScheduler(
		a.dispatcher,
		logger.WithComponent("scheduler"),
		cfg.CronSpecExpiryDispatch,
		cfg.Location,
		cfg.DispatchTimeout,
	)
	if err := dispatchScheduler.Start(); err != nil {
		return err
	}
	defer dispatchScheduler.Stop()

	if a.bot != nil {
		a.registerBot(ctx)
		go a.bot.Start()
		defer a.bot.Stop()
		mainLogger.Info("Telegram bot started")
	}

	handler := httpapi.NewHandler(a.contractService, a.annuityService, a.dispatcher, cfg.DispatchTimeout, logger.WithComponent("http"))
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(handler, cfg.APIToken, a.metrics.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		mainLogger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	mainLogger.WithField("next_dispatch", dispatchScheduler.Next()).Info("Application setup complete")

	select {
	case <-ctx.Done():
		mainLogger.Info("Shutting down application...")
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLogger.WithError(err).Error("HTTP server shutdown failed")
	}
	mainLogger.Info("Application shut down gracefully")
	return nil
}
