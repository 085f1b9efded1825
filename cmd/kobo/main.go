package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kobo/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "kobo",
	Short: "Bookkeeping sync and reporting for a small business",
	Long: `kobo keeps products, sales, expenses and budget categories in one record
store and serves them to clients that hold a periodically refreshed snapshot.

  kobo serve    # run the HTTP server against DATA_BACKEND
  kobo watch    # follow a running server and print the dashboard
  kobo seed     # load the sample expenses and sales`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cli.LoadEnvFile()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
