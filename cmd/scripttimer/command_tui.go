package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"scripttimer/internal/app"
	"scripttimer/internal/logx"
	"scripttimer/internal/scheduler"
	"scripttimer/internal/tui"
)

func newTUICmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui [target]",
		Short: "Pick a target and policy interactively and watch it run",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The child's output would draw over the screen, so it goes to
			// a file in the state dir instead.
			launcher := scheduler.ExecLauncher{}
			out, logErr := openChildLog()
			if logErr == nil {
				defer out.Close()
				launcher.Stdout = out
				launcher.Stderr = out
			}

			rt, err := newRuntime(flags, launcher, true)
			if err != nil {
				return err
			}
			defer rt.Close()
			if logErr != nil {
				rt.log.Warn("child output discarded", logx.Err(logErr))
			}
			rt.startBackground(cmd.Context())

			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			err = tui.Run(rt.sched, tui.Options{Target: target, Overlap: rt.cfg.OverlapMode()})

			ctx, cancel := context.WithTimeout(context.Background(), rt.cfg.KillGrace()+reapTimeout)
			defer cancel()
			if waitErr := rt.sched.Wait(ctx); waitErr != nil {
				rt.log.Warn("processes still running after quit", logx.Err(waitErr))
			}
			return err
		},
	}
}

func openChildLog() (*os.File, error) {
	dir, err := app.StateDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "tui-output.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}
