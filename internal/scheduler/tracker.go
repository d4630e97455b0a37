package scheduler

import (
	"fmt"
	"path/filepath"
	"sync"

	"scripttimer/internal/logx"
)

// launchLocked spawns the current target and starts tracking it. A spawn
// failure is published as EventLaunchFailed.
func (s *Scheduler) launchLocked() (string, bool) {
	target := s.target
	name := filepath.Base(target)

	proc, err := s.launcher.Launch(target)
	if err != nil {
		lerr := &LaunchError{Path: target, Err: err}
		s.log.Error("launch failed", logx.String("target", target), logx.Err(err))
		s.emitLocked(Event{Kind: EventLaunchFailed, Err: lerr, Message: fmt.Sprintf("Error running script: %v", err)})
		return "", false
	}

	tp := &trackedProcess{
		info: ProcessInfo{
			RunID:     NewID(),
			PID:       proc.Pid(),
			Target:    target,
			StartedAt: s.clock.Now(),
		},
		proc:   proc,
		epoch:  s.epoch,
		policy: s.policy.String(),
	}
	s.procs[tp.info.RunID] = tp
	s.waiters.add()
	go s.watch(tp)

	s.log.Info("launched", logx.String("target", target), logx.String("run_id", tp.info.RunID), logx.Int("pid", tp.info.PID))
	s.emitLocked(Event{
		Kind:      EventLaunched,
		RunID:     tp.info.RunID,
		PID:       tp.info.PID,
		StartedAt: tp.info.StartedAt,
		Message:   fmt.Sprintf("Script started: %s", name),
	})
	return tp.info.RunID, true
}

// watch reaps tp and reports its exit. Under serial overlap the exit of the
// current run arms the next tick.
func (s *Scheduler) watch(tp *trackedProcess) {
	defer s.waiters.done()
	waitErr := tp.proc.Wait()
	code := exitStatus(waitErr)

	s.mu.Lock()
	defer s.mu.Unlock()

	tp.exited = true
	tracked := s.procs[tp.info.RunID] == tp
	if tracked {
		delete(s.procs, tp.info.RunID)
	}

	msg := "Script completed execution"
	switch {
	case tp.terminated:
		msg = "Script terminated"
	case code != 0:
		msg = fmt.Sprintf("Script exited with code %d", code)
	}
	s.log.Info("exited",
		logx.String("run_id", tp.info.RunID),
		logx.Int("pid", tp.info.PID),
		logx.Int("exit_code", code),
		logx.Bool("terminated", tp.terminated),
	)

	e := Event{
		Kind:       EventExited,
		Target:     tp.info.Target,
		Policy:     tp.policy,
		RunID:      tp.info.RunID,
		PID:        tp.info.PID,
		StartedAt:  tp.info.StartedAt,
		ExitCode:   code,
		Terminated: tp.terminated,
		Message:    msg,
	}
	if !tracked {
		// Stop already reported; keep its status line.
		s.publishLocked(e)
		return
	}
	s.emitLocked(e)

	if s.active && tp.epoch == s.epoch && s.timer == nil &&
		s.policy.Kind == PolicyRepeatEvery && s.policy.Overlap == OverlapSerial {
		s.armLocked(s.clock.Now().Add(s.policy.Duration), s.repeatFiredLocked)
	}
}

// terminateLocked asks tp to exit and escalates to a kill after the grace
// period if it is still running.
func (s *Scheduler) terminateLocked(tp *trackedProcess) {
	if tp.exited {
		return
	}
	tp.terminated = true
	if err := tp.proc.Terminate(); err != nil {
		s.log.Warn("terminate failed", logx.String("run_id", tp.info.RunID), logx.Int("pid", tp.info.PID), logx.Err(err))
	}
	if s.killGrace <= 0 {
		return
	}
	s.clock.AfterFunc(s.killGrace, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if tp.exited {
			return
		}
		s.log.Warn("process ignored terminate; killing", logx.String("run_id", tp.info.RunID), logx.Int("pid", tp.info.PID))
		if err := tp.proc.Kill(); err != nil {
			s.log.Warn("kill failed", logx.String("run_id", tp.info.RunID), logx.Err(err))
		}
	})
}

var closedCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// reaper counts watch goroutines. Every caller of idle shares one channel,
// closed when the count drops to zero.
type reaper struct {
	mu      sync.Mutex
	running int
	zero    chan struct{}
}

func (r *reaper) add() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running == 0 {
		r.zero = make(chan struct{})
	}
	r.running++
}

func (r *reaper) done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running--
	if r.running == 0 {
		close(r.zero)
	}
}

func (r *reaper) idle() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running == 0 {
		return closedCh
	}
	return r.zero
}
