package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jihwankim/chaos-scheduler/pkg/reporting"
)

var reportsCmd = &cobra.Command{
	Use:   "reports [run-id]",
	Args:  cobra.MaximumNArgs(1),
	Short: "List saved run reports or print one",
	RunE:  runReports,
}

func init() {
	reportsCmd.Flags().Int("last", 10, "number of reports to list")
}

func runReports(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	storage, err := reporting.NewStorage(cfg.Reporting.OutputDir, cfg.Reporting.KeepLastN, reporting.Nop())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		report, err := storage.FindReport(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(out, reporting.Summarize(report))
		return nil
	}

	summaries, err := storage.ListReports()
	if err != nil {
		return err
	}
	last, _ := cmd.Flags().GetInt("last")
	if last > 0 && len(summaries) > last {
		summaries = summaries[:last]
	}
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No reports found in", storage.OutputDir())
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tPROFILE\tSTARTED\tDURATION\tSTATUS\tFIRES\tFAILED")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			s.RunID, s.Profile, s.StartTime.Format(time.RFC3339), s.Duration, s.Status, s.Fires, s.Failures)
	}
	return w.Flush()
}
