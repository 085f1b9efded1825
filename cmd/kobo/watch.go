package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"kobo/internal/cli"
	"kobo/internal/client"
	"kobo/internal/format"
	"kobo/internal/log"
	"kobo/internal/report"
	"kobo/internal/syncer"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a running server and print the dashboard on every refresh",
	Long: `Hold a snapshot of a remote kobo server, refreshing it every
REFRESH_INTERVAL and backing off while the server is unreachable.

  kobo watch --server http://localhost:8080
  kobo watch --once`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("server", "", "server base URL (overrides SERVER_URL)")
	watchCmd.Flags().Bool("once", false, "fetch one snapshot, print it and exit")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	if server, _ := cmd.Flags().GetString("server"); server != "" {
		cfg.ServerURL = server
	}
	once, _ := cmd.Flags().GetBool("once")
	logger := cli.SetupLogger(cfg, log.ComponentClient)

	hc := client.NewHTTPClient()
	out := cmd.OutOrStdout()
	core := syncer.New(
		client.NewSnapshotClient(cfg.ServerURL, hc),
		client.NewRemoteFacade(cfg.ServerURL, hc),
		syncer.WithBaseInterval(cfg.RefreshInterval),
		syncer.WithFetchTimeout(cfg.FetchTimeout),
		syncer.WithLogger(logger.WithComponent(log.ComponentSyncer)),
		syncer.WithOnChange(func(st syncer.State) {
			if !st.Loading {
				printDashboard(out, st, cfg.RefreshInterval, time.Now())
			}
		}),
	)
	defer core.Dispose()

	if once {
		core.Refresh(cmd.Context(), false)
		if core.State().ConnectionError {
			return fmt.Errorf("could not reach %s", cfg.ServerURL)
		}
		return nil
	}

	ctx, done := cli.GracefulShutdown(logger, 5*time.Second, func(context.Context) { core.Stop() })
	logger.Info("Watching server", "server_url", cfg.ServerURL, "interval", cfg.RefreshInterval)
	core.Start(ctx, true)
	cli.WaitForShutdown(ctx, done)
	return nil
}

func printDashboard(w io.Writer, st syncer.State, base time.Duration, now time.Time) {
	if st.ConnectionError {
		fmt.Fprintf(w, "[%s] server unreachable (%d consecutive failures), retrying in %s\n",
			now.Format(time.TimeOnly), st.ConsecutiveFailures,
			syncer.NextInterval(base, true, st.ConsecutiveFailures))
		return
	}
	view := report.Dashboard(st.Snapshot, now)
	fmt.Fprintf(w, "[%s] generation %d\n", now.Format(time.TimeOnly), st.Generation)
	fmt.Fprintf(w, "  Revenue   %s\n", format.Currency(view.Totals.Revenue))
	fmt.Fprintf(w, "  Expenses  %s\n", format.Currency(view.Totals.Expenses))
	fmt.Fprintf(w, "  Net       %s\n", format.Currency(view.Totals.Net))
	fmt.Fprintf(w, "  Inventory %s (%s products, %s low on stock)\n",
		format.Compact(view.Totals.InventoryValue),
		format.Number(len(st.Snapshot.Products)),
		format.Number(view.LowStock))
	for _, p := range view.TopProducts {
		fmt.Fprintf(w, "    %-24s %s\n", p.Name, format.Currency(p.Revenue))
	}
	for _, b := range view.Budgets {
		marker := ""
		if b.OverBudget {
			marker = " over budget"
		}
		fmt.Fprintf(w, "    %-24s %s of %s (%s)%s\n", b.Category,
			format.Currency(b.Spent), format.Currency(b.Budget), format.Percent(b.Percent), marker)
	}
}
