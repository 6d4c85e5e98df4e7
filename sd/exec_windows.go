//go:build windows

package sd

import (
	"syscall"
)

func sysProcAttr(detach bool) *syscall.SysProcAttr {
	if !detach {
		return nil
	}
	return &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

func execve(path string, argv []string, env []string) error {
	return ErrExecUnsupported
}
