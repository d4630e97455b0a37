package main

import (
	"github.com/spf13/cobra"

	"scripttimer/internal/scheduler"
)

func newCloseAfterCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "close-after <target> <duration>",
		Short: "Run the target now and terminate it after duration",
		Long: "Run the target now and terminate it after duration.\n\n" +
			"Durations are minutes (10) or Go durations (90s, 1h30m).",
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := scheduler.ParseDuration(args[1])
			if err != nil {
				return &usageError{err: err}
			}
			return runPolicy(cmd, flags, args[0], scheduler.CloseAfter(d))
		},
	}
}
