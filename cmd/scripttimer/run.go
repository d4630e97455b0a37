package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"scripttimer/internal/logx"
	"scripttimer/internal/scheduler"
)

// reapTimeout bounds how long an interrupted command waits for its children
// after Stop, on top of the kill grace.
const reapTimeout = 2 * time.Second

// runPolicy starts policy on target and prints status lines until the
// policy has nothing left to do or the process is interrupted.
func runPolicy(cmd *cobra.Command, flags *rootFlags, target string, policy scheduler.Policy) error {
	rt, err := newRuntime(flags, scheduler.NewExecLauncher(), false)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, unsubscribe := rt.sched.Subscribe(64)
	defer unsubscribe()
	rt.startBackground(ctx)

	out := cmd.OutOrStdout()
	if err := rt.sched.SetTarget(target); err != nil {
		return err
	}
	policy = rt.policyDefaults(policy)
	if err := rt.sched.Start(policy); err != nil {
		return err
	}

	finishes := policy.Kind == scheduler.PolicyCloseAfter ||
		(policy.Kind == scheduler.PolicyStartAt && !policy.Daily)
	var (
		launchErr error
		reaped    chan error
	)
	for {
		select {
		case <-ctx.Done():
			stopAndReap(rt)
			drainEvents(out, events)
			return nil
		case e := <-events:
			printEvent(out, e)
			if e.Kind == scheduler.EventLaunchFailed && finishes {
				launchErr = e.Err
			}
			if finishes && e.Kind == scheduler.EventPolicyFinished && reaped == nil {
				reaped = make(chan error, 1)
				go func() { reaped <- rt.sched.Wait(ctx) }()
			}
		case err := <-reaped:
			if err != nil {
				stopAndReap(rt)
			}
			drainEvents(out, events)
			return launchErr
		}
	}
}

func stopAndReap(rt *runtime) {
	rt.log.Info("interrupted; stopping", logx.String("target", rt.sched.Target()))
	rt.sched.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), rt.cfg.KillGrace()+reapTimeout)
	defer cancel()
	if err := rt.sched.Wait(ctx); err != nil {
		rt.log.Warn("processes still running after stop", logx.Err(err))
	}
}
