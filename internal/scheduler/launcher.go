package scheduler

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"

	"golang.org/x/term"
)

// Process is a spawned child the tracker owns until it exits.
type Process interface {
	Pid() int
	// Terminate asks the process to exit. It is a no-op once the process is gone.
	Terminate() error
	// Kill forces the process to exit. It is a no-op once the process is gone.
	Kill() error
	// Wait blocks until the process exits.
	Wait() error
}

type Launcher interface {
	Launch(path string) (Process, error)
}

// ExecLauncher spawns the target with no arguments. Nil streams are
// connected to the null device, so use NewExecLauncher to inherit the
// parent's stdio.
type ExecLauncher struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Dir    string
}

func NewExecLauncher() ExecLauncher {
	return ExecLauncher{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// isTerminal is replaced in tests, which run without a pty.
var isTerminal = term.IsTerminal

func (l ExecLauncher) Launch(path string) (Process, error) {
	cmd := exec.Command(path)
	cmd.Stdin = l.Stdin
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	cmd.Dir = l.Dir
	ownGroup := !readsTerminal(l.Stdin)
	configureProcAttr(cmd, ownGroup)

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd, ownGroup: ownGroup}, nil
}

func readsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && f != nil && isTerminal(int(f.Fd()))
}

type execProcess struct {
	cmd      *exec.Cmd
	ownGroup bool
	done     atomic.Bool
}

func (p *execProcess) Pid() int { return p.cmd.Process.Pid }

func (p *execProcess) Terminate() error {
	if p.done.Load() {
		return nil
	}
	return terminateProcess(p.cmd.Process, p.ownGroup)
}

func (p *execProcess) Kill() error {
	if p.done.Load() {
		return nil
	}
	return killProcess(p.cmd.Process, p.ownGroup)
}

func (p *execProcess) Wait() error {
	err := p.cmd.Wait()
	p.done.Store(true)
	return err
}

// exitStatus maps a Wait error to an exit code. Signalled processes report -1.
func exitStatus(err error) int {
	var exitErr *exec.ExitError
	if err == nil {
		return 0
	}
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			return status.ExitStatus()
		}
		return exitErr.ExitCode()
	}
	return 1
}
