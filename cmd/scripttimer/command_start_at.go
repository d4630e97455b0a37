package main

import (
	"github.com/spf13/cobra"

	"scripttimer/internal/scheduler"
)

func newStartAtCmd(flags *rootFlags) *cobra.Command {
	var daily bool
	cmd := &cobra.Command{
		Use:   "start-at <target> <HH:MM>",
		Short: "Run the target at a time of day, once or every day",
		Long: "Run the target at a 24-hour time of day in local time.\n\n" +
			"A time that has already passed today runs tomorrow.",
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := scheduler.ParseClock(args[1])
			if err != nil {
				return &usageError{err: err}
			}
			return runPolicy(cmd, flags, args[0], scheduler.StartAt(at, daily))
		},
	}
	cmd.Flags().BoolVar(&daily, "daily", false, "repeat every day until interrupted")
	return cmd
}
