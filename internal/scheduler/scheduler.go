// Package scheduler launches a target program under one timing policy at a
// time and tracks the processes it spawned until they exit or are stopped.
//
// Every armed callback captures a sequence number and runs under the
// scheduler mutex only while that number is current, so Stop and Start make
// any callback that is already in flight a no-op.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"scripttimer/internal/app"
	"scripttimer/internal/logx"
)

type Options struct {
	Clock    Clock
	Launcher Launcher
	Logger   logx.Logger
	// Location is used for StartAt times of day. Defaults to time.Local.
	Location *time.Location
	// KillGrace is how long a terminated process gets before SIGKILL.
	// Zero disables the escalation.
	KillGrace time.Duration
}

type Scheduler struct {
	clock    Clock
	launcher Launcher
	log      logx.Logger
	loc      *time.Location
	bus      *bus
	waiters  reaper

	mu        sync.Mutex
	killGrace time.Duration
	target    string
	policy    Policy
	active    bool
	epoch     uint64
	armSeq    uint64
	timer     Timer
	nextRun   time.Time
	closeRun  string
	status    string
	procs     map[string]*trackedProcess
}

type trackedProcess struct {
	info       ProcessInfo
	proc       Process
	epoch      uint64
	policy     string
	terminated bool
	exited     bool
}

func New(opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Launcher == nil {
		opts.Launcher = NewExecLauncher()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Scheduler{
		clock:     opts.Clock,
		launcher:  opts.Launcher,
		log:       opts.Logger.With(logx.String("component", "scheduler")),
		loc:       opts.Location,
		bus:       newBus(),
		killGrace: opts.KillGrace,
		status:    "Ready",
		procs:     map[string]*trackedProcess{},
	}
}

// Subscribe returns a channel of status events and a func that releases it.
func (s *Scheduler) Subscribe(buffer int) (<-chan Event, func()) {
	return s.bus.subscribe(buffer)
}

func (s *Scheduler) SetKillGrace(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	s.killGrace = d
	s.mu.Unlock()
}

// SetTarget stores path as the program to launch. A missing path returns
// ErrNotFound and keeps the previous target.
func (s *Scheduler) SetTarget(path string) error {
	normalized, err := app.NormalizePath(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	fi, err := os.Stat(normalized)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, normalized)
	}
	if fi.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrNotFound, normalized)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = normalized
	s.emitLocked(Event{Kind: EventTargetSet, Message: fmt.Sprintf("Script selected: %s", filepath.Base(normalized))})
	s.log.Info("target set", logx.String("target", normalized))
	return nil
}

func (s *Scheduler) Target() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Start activates p, superseding any active policy. Launch failures are
// reported as events, never returned.
func (s *Scheduler) Start(p Policy) error {
	if p.Kind == PolicyRepeatEvery && p.Overlap == "" {
		p.Overlap = OverlapAllow
	}
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.target == "" {
		return ErrNoTarget
	}
	if s.active {
		s.log.Info("policy superseded", logx.String("previous", s.policy.String()), logx.String("next", p.String()))
		s.cancelLocked()
	}

	s.epoch++
	s.policy = p
	s.active = true
	now := s.clock.Now()
	name := filepath.Base(s.target)

	switch p.Kind {
	case PolicyCloseAfter:
		s.emitLocked(Event{Kind: EventPolicyStarted, Message: fmt.Sprintf("Running %s for %s", name, FormatDuration(p.Duration))})
		runID, ok := s.launchLocked()
		if !ok {
			s.finishLocked("Close timer cancelled: launch failed")
			return nil
		}
		s.closeRun = runID
		s.armLocked(now.Add(p.Duration), s.closeFiredLocked)
	case PolicyRepeatEvery:
		s.emitLocked(Event{Kind: EventPolicyStarted, Message: fmt.Sprintf("Script will repeat every %s", FormatDuration(p.Duration))})
		_, ok := s.launchLocked()
		if p.Overlap != OverlapSerial || !ok {
			s.armLocked(now.Add(p.Duration), s.repeatFiredLocked)
		}
	case PolicyStartAt:
		next, err := NextAt(p.At, now.In(s.loc))
		if err != nil {
			s.active = false
			return err
		}
		mode := "once"
		if p.Daily {
			mode = "daily"
		}
		s.emitLocked(Event{Kind: EventPolicyStarted, Message: fmt.Sprintf("Script scheduled to run %s at %s", mode, p.At)})
		s.armLocked(next, s.startAtFiredLocked)
	}
	return nil
}

// Stop cancels the armed timer and terminates every tracked process.
// Termination errors are logged and swallowed.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	s.epoch++

	terminated := 0
	for id, tp := range s.procs {
		s.terminateLocked(tp)
		delete(s.procs, id)
		terminated++
	}
	s.log.Info("stopped", logx.Int("terminated", terminated))
	s.emitLocked(Event{Kind: EventStopped, Message: "All timers stopped"})
}

// Poll returns the tracked processes, oldest first.
func (s *Scheduler) Poll() []ProcessInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processesLocked()
}

func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Target:    s.target,
		Active:    s.active,
		Processes: s.processesLocked(),
		Status:    s.status,
	}
	if s.active {
		snap.Policy = s.policy
		snap.NextRun = s.nextRun
	}
	return snap
}

// Wait blocks until every spawned process has been reaped or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	select {
	case <-s.waiters.idle():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) processesLocked() []ProcessInfo {
	out := make([]ProcessInfo, 0, len(s.procs))
	for _, tp := range s.procs {
		out = append(out, tp.info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].RunID < out[j].RunID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// armLocked schedules fire at the given time, replacing any armed timer.
func (s *Scheduler) armLocked(at time.Time, fire func()) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.armSeq++
	seq := s.armSeq
	delay := at.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}
	s.nextRun = at
	s.timer = s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.active || s.armSeq != seq {
			return
		}
		s.timer = nil
		fire()
	})
	s.log.Debug("timer armed", logx.Time("at", at), logx.Duration("delay", delay))
	s.emitLocked(Event{Kind: EventArmed, Next: at, Message: fmt.Sprintf("Next run at %s", at.Format("2006-01-02 15:04:05"))})
}

func (s *Scheduler) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.armSeq++
	s.active = false
	s.nextRun = time.Time{}
	s.closeRun = ""
}

// finishLocked ends the active policy once it has nothing left to do.
// Tracked processes keep running.
func (s *Scheduler) finishLocked(msg string) {
	policy := s.policy.String()
	s.cancelLocked()
	s.emitLocked(Event{Kind: EventPolicyFinished, Policy: policy, Message: msg})
}

func (s *Scheduler) closeFiredLocked() {
	tp := s.procs[s.closeRun]
	msg := "Close timer elapsed; script had already exited"
	if tp != nil {
		s.terminateLocked(tp)
		msg = "Script closed after specified time"
	}
	s.emitLocked(Event{Kind: EventClosed, RunID: s.closeRun, Message: msg})
	s.finishLocked(fmt.Sprintf("Close timer finished after %s", FormatDuration(s.policy.Duration)))
}

func (s *Scheduler) repeatFiredLocked() {
	p := s.policy
	now := s.clock.Now()

	switch {
	case p.Overlap == OverlapSkip && s.runningLocked(s.epoch):
		s.emitLocked(Event{Kind: EventSkipped, Message: "Previous run still active; skipping this interval"})
	case p.Overlap == OverlapSerial:
		if _, ok := s.launchLocked(); ok {
			return
		}
		s.armLocked(now.Add(p.Duration), s.repeatFiredLocked)
		return
	default:
		s.launchLocked()
	}

	next := s.nextRun.Add(p.Duration)
	for !next.After(now) {
		next = next.Add(p.Duration)
	}
	s.armLocked(next, s.repeatFiredLocked)
}

func (s *Scheduler) startAtFiredLocked() {
	p := s.policy
	fired := s.nextRun
	s.launchLocked()
	if !p.Daily {
		s.finishLocked("Scheduled run started; nothing left to schedule")
		return
	}

	from := s.clock.Now().In(s.loc)
	if fired.After(from) {
		from = fired
	}
	next, err := NextAt(p.At, from)
	if err != nil {
		s.log.Error("daily re-arm failed", logx.Err(err))
		s.finishLocked(fmt.Sprintf("Daily schedule ended: %v", err))
		return
	}
	s.armLocked(next, s.startAtFiredLocked)
}

func (s *Scheduler) runningLocked(epoch uint64) bool {
	for _, tp := range s.procs {
		if tp.epoch == epoch {
			return true
		}
	}
	return false
}

// emitLocked publishes e and makes its message the current status line.
func (s *Scheduler) emitLocked(e Event) {
	if e.Message != "" && e.Kind != EventArmed {
		s.status = e.Message
	}
	s.publishLocked(e)
}

func (s *Scheduler) publishLocked(e Event) {
	if e.Time.IsZero() {
		e.Time = s.clock.Now()
	}
	if e.Target == "" {
		e.Target = s.target
	}
	if e.Policy == "" && s.active {
		e.Policy = s.policy.String()
	}
	s.bus.publish(e)
}
