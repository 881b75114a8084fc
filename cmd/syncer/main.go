package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	facilitatorsPath string
	isDebug          bool
)

var rootCmd = &cobra.Command{
	Use:   "syncer",
	Short: "Facilitator USDC transfer syncer",
	Long: `Syncer pulls outgoing USDC transfers of known x402 facilitators from
chain indexer APIs (Bitquery, BigQuery) into PostgreSQL on a cron schedule.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&facilitatorsPath, "facilitators", "", "facilitator table YAML (overrides SYNC_FACILITATORS_FILE)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}
