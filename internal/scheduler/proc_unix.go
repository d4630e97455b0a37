//go:build !windows

package scheduler

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureProcAttr puts the child in its own process group so a script and
// anything it spawned can be signalled together. A child reading from the
// controlling terminal stays in the parent's group: a background group
// would get SIGTTIN and stop on its first read.
func configureProcAttr(cmd *exec.Cmd, ownGroup bool) {
	if ownGroup {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}
}

func terminateProcess(p *os.Process, ownGroup bool) error {
	return signalProcess(p.Pid, unix.SIGTERM, ownGroup)
}

func killProcess(p *os.Process, ownGroup bool) error {
	return signalProcess(p.Pid, unix.SIGKILL, ownGroup)
}

// signalProcess never signals a shared group, which would include us.
func signalProcess(pid int, sig syscall.Signal, ownGroup bool) error {
	target := pid
	if ownGroup {
		target = -pid
	}
	err := unix.Kill(target, sig)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}
