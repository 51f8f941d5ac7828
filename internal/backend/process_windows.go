//go:build windows

package backend

import (
	"os/exec"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// processGroup ties the toolchain and its children to a job object that
// kills them all when it is closed.
type processGroup struct {
	job windows.Handle
}

func newProcessGroup(cmd *exec.Cmd) *processGroup {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP,
	}
	// Without a job object kill falls back to the leader process.
	job, _ := createJobObject()
	return &processGroup{job: job}
}

func (g *processGroup) started(cmd *exec.Cmd) {
	if g.job == 0 {
		return
	}
	if err := assignProcessToJob(g.job, cmd.Process.Pid); err != nil {
		windows.CloseHandle(g.job)
		g.job = 0
	}
}

func (g *processGroup) kill(cmd *exec.Cmd) error {
	if g.job != 0 {
		windows.CloseHandle(g.job)
		g.job = 0
		return nil
	}
	return cmd.Process.Kill()
}

func (g *processGroup) close() {
	if g.job != 0 {
		windows.CloseHandle(g.job)
		g.job = 0
	}
}

func createJobObject() (windows.Handle, error) {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return 0, err
	}

	info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{}
	info.BasicLimitInformation.LimitFlags = windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE
	_, err = windows.SetInformationJobObject(
		job,
		windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	)
	if err != nil {
		windows.CloseHandle(job)
		return 0, err
	}

	return job, nil
}

func assignProcessToJob(job windows.Handle, pid int) error {
	handle, err := windows.OpenProcess(windows.PROCESS_SET_QUOTA|windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return err
	}
	defer windows.CloseHandle(handle)

	return windows.AssignProcessToJobObject(job, handle)
}
