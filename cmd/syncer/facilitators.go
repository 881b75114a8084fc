package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bimakw/facilitator-indexer/internal/config"
	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
)

var chainFilter string

var facilitatorsCmd = &cobra.Command{
	Use:   "facilitators",
	Short: "Validate and print the facilitator table and the job table",
	RunE:  runFacilitators,
}

func init() {
	facilitatorsCmd.Flags().StringVar(&chainFilter, "chain", "", "only show facilitators of this chain")
	rootCmd.AddCommand(facilitatorsCmd)
}

func runFacilitators(cmd *cobra.Command, args []string) error {
	cfg, logger, facs, err := loadBase()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if chainFilter != "" && !entities.Chain(chainFilter).Valid() {
		return fmt.Errorf("unknown chain %q", chainFilter)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCHAIN\tADDRESS\tTOKEN\tENABLED\tSTART")
	for _, f := range facs.All() {
		if chainFilter != "" && string(f.Chain) != chainFilter {
			continue
		}
		start := "-"
		if f.SyncStartDate != nil {
			start = f.SyncStartDate.Format("2006-01-02")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n", f.ID, f.Chain, f.Address, f.Token.Symbol, f.Enabled, start)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintln(cmd.OutOrStdout())
	w = tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "JOB\tCRON\tSTRATEGY\tPAGE SIZE\tENABLED\tVALID")
	for _, job := range config.Jobs(cfg) {
		valid := "ok"
		if err := job.Validate(); err != nil {
			valid = err.Error()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\t%s\n", job.ID, job.Cron, job.Strategy, job.PageSize, job.Enabled, valid)
	}
	return w.Flush()
}
