package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"kobo/internal/cli"
	"kobo/internal/facade"
	apphttp "kobo/internal/http"
	"kobo/internal/log"
	"kobo/internal/syncer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Serve the snapshot endpoint, the mutation endpoints and the report views.

Writes are announced on AMQP_EXCHANGE when AMQP_URL is set, so kobo-worker
can export them.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("port", "", "listen port (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}
	logger := cli.SetupLogger(cfg, log.ComponentApp)
	ctx := context.Background()

	store, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Cleanup(); err != nil {
			logger.Error("Failed to close store", log.FieldError, err)
		}
	}()

	opts := []facade.Option{facade.WithLogger(logger.WithComponent(log.ComponentFacade))}
	amqpClient, err := cli.OpenAMQP(ctx, cfg, logger)
	if err != nil {
		// The server still works without change notifications.
		logger.Warn("Continuing without change notifications", log.FieldError, err)
	} else if amqpClient != nil {
		defer amqpClient.Close()
		opts = append(opts, facade.WithNotifier(amqpClient))
	}
	fac := facade.New(store.Store, opts...)

	core := syncer.New(facade.LocalFetcher{Store: store.Store}, fac,
		syncer.WithBaseInterval(cfg.RefreshInterval),
		syncer.WithFetchTimeout(cfg.FetchTimeout),
		syncer.WithLogger(logger.WithComponent(log.ComponentSyncer)))

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:  store.Store,
		Facade: fac,
		Core:   core,
		Logger: logger.WithComponent(log.ComponentHTTP),

		TrustedProxies: cfg.TrustedProxies,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 15 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})
	core.Start(runCtx, true)
	defer core.Dispose()

	logger.Info("Starting kobo server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	cli.WaitForShutdown(runCtx, done)
	logger.Info("Server stopped gracefully")
	return nil
}
