//go:build windows

package scheduler

import (
	"errors"
	"os"
	"os/exec"
)

func configureProcAttr(cmd *exec.Cmd, ownGroup bool) {}

// Windows has no SIGTERM, so termination is a hard kill.
func terminateProcess(p *os.Process, ownGroup bool) error {
	return killProcess(p, ownGroup)
}

func killProcess(p *os.Process, ownGroup bool) error {
	err := p.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
