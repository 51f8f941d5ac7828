//go:build !windows

package backend

import (
	"os/exec"
	"syscall"
)

// processGroup puts the toolchain and every compiler it spawns into one
// process group so that cancellation reaches all of them.
type processGroup struct{}

func newProcessGroup(cmd *exec.Cmd) *processGroup {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
	return &processGroup{}
}

func (g *processGroup) started(cmd *exec.Cmd) {}

// kill sends SIGTERM to the group. exec.Cmd kills the leader once
// WaitDelay expires.
func (g *processGroup) kill(cmd *exec.Cmd) error {
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err == nil {
		return syscall.Kill(-pgid, syscall.SIGTERM)
	}
	return cmd.Process.Signal(syscall.SIGTERM)
}

func (g *processGroup) close() {}
