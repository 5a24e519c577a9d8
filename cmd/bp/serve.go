package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/grod220/block-parliament/cmd/bp/di"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	Long: `Start the HTTP server that backs the validator dashboard: metrics,
MEV history, SFDP status, changelog, and health endpoints.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	container := di.NewContainer(configPath())

	loggerSvc, err := di.Invoke[*di.LoggerService](container)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize")
		return err
	}

	logger := *loggerSvc.Logger
	log.Logger = logger
	zerolog.DefaultContextLogger = &logger

	serverSvc, err := di.Invoke[*di.ServerService](container)
	if err != nil {
		logger.Error().Err(err).Msg("failed to assemble server")
		return err
	}
	server := serverSvc.Server

	// Hot reload and recovery probes run for the life of the server;
	// container shutdown stops both. A failed watcher is not fatal, the
	// boot config simply stays active.
	if _, err := di.Invoke[*di.WatcherService](container); err != nil {
		logger.Warn().Err(err).Msg("config hot reload unavailable")
	}
	if _, err := di.Invoke[*di.HealthCheckerService](container); err != nil {
		logger.Warn().Err(err).Msg("upstream recovery probes unavailable")
	}

	// Graceful shutdown on SIGINT/SIGTERM
	done := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		logger.Info().Msg("shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
		}
		if err := container.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("container shutdown error")
		}

		close(done)
	}()

	logger.Info().Str("listen", server.Addr()).Msg("starting bp dashboard")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server error")
		return err
	}

	<-done
	logger.Info().Msg("server stopped")

	return nil
}
