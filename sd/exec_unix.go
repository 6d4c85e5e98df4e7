//go:build !windows

package sd

import (
	"syscall"
)

func sysProcAttr(detach bool) *syscall.SysProcAttr {
	if !detach {
		return nil
	}
	return &syscall.SysProcAttr{Setsid: true}
}

func execve(path string, argv []string, env []string) error {
	return syscall.Exec(path, argv, env)
}
