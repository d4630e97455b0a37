//go:build !windows

package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"scripttimer/internal/logx"
)

func TestExecCloseAfterQuickScript(t *testing.T) {
	s := New(Options{Launcher: ExecLauncher{}, Logger: logx.Nop()})
	events, unsub := s.Subscribe(64)
	defer unsub()

	if err := s.SetTarget("/bin/true"); err != nil {
		t.Fatalf("SetTarget: %v", err)
	}
	if err := s.Start(CloseAfter(time.Second)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	launched := nextEvent(t, events, EventLaunched)
	if launched.PID <= 0 {
		t.Fatalf("launched PID = %d", launched.PID)
	}
	exited := nextEvent(t, events, EventExited)
	if exited.ExitCode != 0 || exited.Terminated {
		t.Fatalf("exit event = %+v", exited)
	}
	nextEvent(t, events, EventClosed)
	nextEvent(t, events, EventPolicyFinished)
	if len(s.Poll()) != 0 {
		t.Fatal("no process should remain tracked")
	}
}

func TestExecStopTerminatesProcessGroup(t *testing.T) {
	script := writeScript(t, "sleeper.sh", "#!/bin/sh\nsleep 30 &\nwait\n")
	s := New(Options{Launcher: ExecLauncher{}, Logger: logx.Nop(), KillGrace: 2 * time.Second})
	events, unsub := s.Subscribe(64)
	defer unsub()

	if err := s.SetTarget(script); err != nil {
		t.Fatalf("SetTarget: %v", err)
	}
	if err := s.Start(RepeatEvery(time.Hour, OverlapAllow)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	nextEvent(t, events, EventLaunched)
	if len(s.Poll()) != 1 {
		t.Fatalf("tracked = %d, want 1", len(s.Poll()))
	}

	s.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	e := nextEvent(t, events, EventExited)
	if !e.Terminated {
		t.Fatalf("exit event = %+v, want terminated", e)
	}
}

func TestExecExitCode(t *testing.T) {
	script := writeScript(t, "fail.sh", "#!/bin/sh\nexit 7\n")
	s := New(Options{Launcher: ExecLauncher{}, Logger: logx.Nop()})
	events, unsub := s.Subscribe(64)
	defer unsub()

	if err := s.SetTarget(script); err != nil {
		t.Fatalf("SetTarget: %v", err)
	}
	if err := s.Start(CloseAfter(time.Minute)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()
	e := nextEvent(t, events, EventExited)
	if e.ExitCode != 7 {
		t.Fatalf("exit code = %d, want 7", e.ExitCode)
	}
}

func TestExecLaunchFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("not a program\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	s := New(Options{Launcher: ExecLauncher{}, Logger: logx.Nop()})
	events, unsub := s.Subscribe(64)
	defer unsub()

	if err := s.SetTarget(path); err != nil {
		t.Fatalf("SetTarget: %v", err)
	}
	if err := s.Start(RepeatEvery(time.Hour, OverlapAllow)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()
	e := nextEvent(t, events, EventLaunchFailed)
	var lerr *LaunchError
	if !errors.As(e.Err, &lerr) {
		t.Fatalf("event error = %v, want *LaunchError", e.Err)
	}
	if !s.Snapshot().Active {
		t.Fatal("repeat policy should stay armed after a failed launch")
	}
}

func TestExecTerminalStdinStaysInForegroundGroup(t *testing.T) {
	orig := isTerminal
	isTerminal = func(int) bool { return true }
	defer func() { isTerminal = orig }()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	script := writeScript(t, "ask.sh", "#!/bin/sh\nread x\n[ \"$x\" = go ] || exit 3\n")
	proc, err := ExecLauncher{Stdin: r}.Launch(script)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	pgid, err := unix.Getpgid(proc.Pid())
	if err != nil {
		t.Fatalf("Getpgid: %v", err)
	}
	if pgid != unix.Getpgrp() {
		t.Fatalf("child pgid = %d, want shared group %d", pgid, unix.Getpgrp())
	}
	if _, err := w.Write([]byte("go\n")); err != nil {
		t.Fatalf("write stdin: %v", err)
	}
	if err := proc.Wait(); err != nil {
		t.Fatalf("Wait: %v (child should read its input and exit 0)", err)
	}
}

func TestExecTerminalStdinTerminateSignalsOnlyChild(t *testing.T) {
	orig := isTerminal
	isTerminal = func(int) bool { return true }
	defer func() { isTerminal = orig }()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	script := writeScript(t, "wait.sh", "#!/bin/sh\nread x\nexit 0\n")
	proc, err := ExecLauncher{Stdin: r}.Launch(script)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if err := proc.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- proc.Wait() }()
	select {
	case err := <-done:
		if exitStatus(err) != -1 {
			t.Fatalf("exit status = %d, want -1 (signalled)", exitStatus(err))
		}
	case <-time.After(5 * time.Second):
		_ = proc.Kill()
		t.Fatal("child did not exit after Terminate")
	}
}

func TestExecPipedStdinGetsOwnGroup(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()

	script := writeScript(t, "wait.sh", "#!/bin/sh\nread x\nexit 0\n")
	proc, err := ExecLauncher{Stdin: r}.Launch(script)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	pgid, err := unix.Getpgid(proc.Pid())
	if err != nil {
		t.Fatalf("Getpgid: %v", err)
	}
	if pgid != proc.Pid() {
		t.Fatalf("child pgid = %d, want its own group %d", pgid, proc.Pid())
	}
	w.Close()
	if err := proc.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}
