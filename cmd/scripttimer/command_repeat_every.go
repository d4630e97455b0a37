package main

import (
	"github.com/spf13/cobra"

	"scripttimer/internal/scheduler"
)

func newRepeatEveryCmd(flags *rootFlags) *cobra.Command {
	var overlap string
	cmd := &cobra.Command{
		Use:   "repeat-every <target> <duration>",
		Short: "Run the target now and again every duration until interrupted",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := scheduler.ParseDuration(args[1])
			if err != nil {
				return &usageError{err: err}
			}
			var mode scheduler.Overlap
			if cmd.Flags().Changed("overlap") {
				mode, err = scheduler.ParseOverlap(overlap)
				if err != nil {
					return &usageError{err: err}
				}
			}
			// An empty overlap picks up process.overlap from the config.
			policy := scheduler.Policy{Kind: scheduler.PolicyRepeatEvery, Duration: d, Overlap: mode}
			return runPolicy(cmd, flags, args[0], policy)
		},
	}
	cmd.Flags().StringVar(&overlap, "overlap", "", "what to do when the previous run is still going: allow, skip or serial (default from config)")
	return cmd
}
