package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	logLevel   string
}

func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "scripttimer",
		Short:         "Run a script after a delay, on an interval, or at a time of day",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default: <user config dir>/scripttimer/config.yaml)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override logging.level (trace, debug, info, warn, error)")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	root.AddCommand(newCloseAfterCmd(flags))
	root.AddCommand(newRepeatEveryCmd(flags))
	root.AddCommand(newStartAtCmd(flags))
	root.AddCommand(newTUICmd(flags))
	root.AddCommand(newHistoryCmd(flags))

	return root
}

// usageError marks bad invocations so main can exit with status 2.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &usageError{err: fmt.Errorf("%w\n\nUsage: %s", err, cmd.UseLine())}
		}
		return nil
	}
}
