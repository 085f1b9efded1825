package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"kobo/internal/cli"
	"kobo/internal/client"
	"kobo/internal/facade"
	"kobo/internal/log"
	"kobo/internal/syncer"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the sample expenses and sales",
	Long: `Replace all expenses with the sample list and, with --sales, record the
sample sales. Sample sales reference products 1 and 2, which must exist.

By default the seed runs against DATA_BACKEND directly; with --remote it
goes through a running server.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().Bool("expenses", true, "replace all expenses with the sample list")
	seedCmd.Flags().Bool("sales", false, "record the sample sales")
	seedCmd.Flags().Bool("remote", false, "seed through SERVER_URL instead of the local store")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg, log.ComponentApp)
	ctx := cmd.Context()

	var (
		fetcher syncer.SnapshotFetcher
		fac     syncer.Facade
	)
	if remote, _ := cmd.Flags().GetBool("remote"); remote {
		hc := client.NewHTTPClient()
		fetcher = client.NewSnapshotClient(cfg.ServerURL, hc)
		fac = client.NewRemoteFacade(cfg.ServerURL, hc)
	} else {
		store, err := cli.OpenStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer store.Cleanup()

		opts := []facade.Option{facade.WithLogger(logger.WithComponent(log.ComponentFacade))}
		if amqpClient, err := cli.OpenAMQP(ctx, cfg, logger); err != nil {
			logger.Warn("Continuing without change notifications", log.FieldError, err)
		} else if amqpClient != nil {
			defer amqpClient.Close()
			opts = append(opts, facade.WithNotifier(amqpClient))
		}
		fetcher = facade.LocalFetcher{Store: store.Store}
		fac = facade.New(store.Store, opts...)
	}

	core := syncer.New(fetcher, fac,
		syncer.WithFetchTimeout(cfg.FetchTimeout),
		syncer.WithLogger(logger.WithComponent(log.ComponentSyncer)))
	defer core.Dispose()

	return seed(ctx, cmd, core)
}

func seed(ctx context.Context, cmd *cobra.Command, core *syncer.Core) error {
	out := cmd.OutOrStdout()
	if ok, _ := cmd.Flags().GetBool("expenses"); ok {
		n, err := core.BulkAddExpenses(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Seeded %d expenses\n", n)
	}
	if ok, _ := cmd.Flags().GetBool("sales"); ok {
		n, err := core.BulkAddSales(ctx)
		if err != nil {
			return fmt.Errorf("%w (%d sales recorded before the failure)", err, n)
		}
		fmt.Fprintf(out, "Seeded %d sales\n", n)
	}
	return nil
}
