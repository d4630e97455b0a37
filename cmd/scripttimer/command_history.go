package main

import (
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"scripttimer/internal/app"
	"scripttimer/internal/history"
	"scripttimer/internal/scheduler"
)

func newHistoryCmd(flags *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs, newest first",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			store, err := history.NewStore(cfg.History.Path)
			if err != nil {
				return err
			}
			entries, err := store.LoadLogs(limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				if !cfg.History.Enabled {
					fmt.Fprintf(out, "History is off; set history.enabled: true in %s\n", app.HumanizePath(mgr.Path()))
				}
				return nil
			}

			now := time.Now()
			table := tablewriter.NewWriter(out)
			table.Header("Ended", "Target", "Policy", "Status", "Exit", "Ran For")
			for _, entry := range entries {
				exit := fmt.Sprintf("%d", entry.ExitCode)
				if entry.Status == history.StatusLaunchFailed {
					exit = "-"
				}
				if err := table.Append(
					app.RelativeLabel(entry.EndedAt, now),
					app.Truncate(app.HumanizePath(entry.Target), 40),
					entry.Policy,
					statusLabel(entry),
					exit,
					scheduler.FormatDuration(entry.Duration().Round(time.Second)),
				); err != nil {
					return err
				}
			}
			if err := table.Render(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nShowing %d run(s) from %s\n", len(entries), app.HumanizePath(store.Logs))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show (0 for all)")
	return cmd
}

func statusLabel(entry history.RunRecord) string {
	if entry.Error == "" || entry.Status == history.StatusSuccess {
		return entry.Status
	}
	return fmt.Sprintf("%s: %s", entry.Status, app.Truncate(entry.Error, 40))
}
