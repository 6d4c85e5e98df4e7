package sd

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

// ErrExecUnsupported is returned by Exec on platforms which cannot replace
// the process image.
var ErrExecUnsupported = errors.New("process image replacement not supported")

// In order to keep the working directory the same as when we started we record
// it at startup.
var originalWD, _ = os.Getwd()

var startProcMu sync.Mutex

// ProcAttr holds what a started process gets besides its arguments.
type ProcAttr struct {
	// Dir is the working directory, default the one we started in.
	Dir string
	// Env is appended to the current environment.
	Env []string
	// Files are stdin, stdout and stderr. Default: ours.
	Files []*os.File
	// Detach starts the process in a new session, where supported.
	Detach bool
}

// Executable returns the path to start a new instance of this program.
// The original binary location is preferred. This works with symlinks such
// that if the file it points to has been changed we will use the updated
// symlink.
func Executable() (string, error) {
	if len(os.Args) > 0 {
		if argv0, err := exec.LookPath(os.Args[0]); err == nil {
			if !filepath.IsAbs(argv0) && originalWD != "" {
				argv0 = filepath.Join(originalWD, argv0)
			}
			return argv0, nil
		}
	}
	return os.Executable()
}

// StartProcess starts a new instance of this program with argv, argv[0]
// included. It returns the pid of the new process.
func StartProcess(argv []string, attr ProcAttr) (int, error) {
	startProcMu.Lock()
	defer startProcMu.Unlock()

	exe, err := Executable()
	if err != nil {
		return 0, err
	}
	dir := attr.Dir
	if dir == "" {
		dir = originalWD
	}
	files := attr.Files
	if files == nil {
		files = []*os.File{os.Stdin, os.Stdout, os.Stderr}
	}
	env := append(os.Environ(), attr.Env...)

	process, err := os.StartProcess(exe, argv, &os.ProcAttr{
		Dir:   dir,
		Env:   env,
		Files: files,
		Sys:   sysProcAttr(attr.Detach),
	})
	if err != nil {
		return 0, err
	}
	pid := process.Pid
	process.Release()
	return pid, nil
}

// Exec replaces the running process image with a fresh instance of this
// program started with argv and the current environment plus env.
// It only returns on failure.
func Exec(argv []string, env []string) error {
	exe, err := Executable()
	if err != nil {
		return err
	}
	if originalWD != "" {
		if err := os.Chdir(originalWD); err != nil {
			return err
		}
	}
	return execve(exe, argv, append(os.Environ(), env...))
}
