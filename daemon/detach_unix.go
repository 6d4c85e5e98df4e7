//go:build !windows

package daemon

import (
	"os"

	"golang.org/x/sys/unix"
)

func detachProcess(dir, errorLog string) error {
	if err := os.Chdir(dir); err != nil {
		return err
	}
	unix.Umask(0077)

	null, err := os.OpenFile(os.DevNull, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer null.Close()
	out, err := os.OpenFile(errorLog, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := dup2(int(null.Fd()), int(os.Stdin.Fd())); err != nil {
		return err
	}
	if err := dup2(int(out.Fd()), int(os.Stdout.Fd())); err != nil {
		return err
	}
	return dup2(int(out.Fd()), int(os.Stderr.Fd()))
}
