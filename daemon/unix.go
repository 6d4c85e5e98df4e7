package daemon

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/SunSeosahai/sabnzbd/sd"
)

// StageEnv carries the detach stage between the re-executed generations of a
// daemonizing process.
const StageEnv = "SABNZBD_DAEMON_STAGE"

const (
	stageForeground = iota
	stageSession
	stageDaemon
)

// DetachStage returns the detach stage a process was started in, 0 for a
// process not started by a detaching parent. getenv defaults to os.Getenv.
func DetachStage(getenv func(string) string) int {
	if getenv == nil {
		getenv = os.Getenv
	}
	n, err := strconv.Atoi(getenv(StageEnv))
	if err != nil || n < stageForeground || n > stageDaemon {
		return stageForeground
	}
	return n
}

// UnixDaemon detaches with a double re-exec, the fork-free version of the
// classic fork/setsid/fork ritual:
//
//	stage 0: start stage 1 in a new session, exit.
//	stage 1: session leader, start stage 2 without a new session, exit.
//	stage 2: not a session leader, so it can never reacquire a controlling
//	         terminal. Change to the install dir, set umask 077 and redirect
//	         stdin from the null device and stdout/stderr to the error log.
//
// The stage variable is removed from the environment of the detached process,
// so processes it starts daemonize on their own. Restart replaces the process
// image.
type UnixDaemon struct {
	Start   ProcessStarter
	Replace ProcessReplacer
	// Getenv defaults to os.Getenv
	Getenv func(string) string
	// Unsetenv defaults to os.Unsetenv
	Unsetenv func(string) error
	// Detach redirects and re-roots the final stage. Defaults to detach().
	Detach func(dir, errorLog string) error

	detached bool
}

// Name implements PlatformLifecycle
func (u *UnixDaemon) Name() string { return "unix-daemon" }

func (u *UnixDaemon) stage() int {
	return DetachStage(u.Getenv)
}

// EnterBackground implements PlatformLifecycle
func (u *UnixDaemon) EnterBackground(logDir string) (bool, error) {
	if logDir == "" {
		return false, ErrNoLogDir
	}
	start := u.Start
	if start == nil {
		start = sd.StartProcess
	}

	stage := u.stage()
	switch stage {
	case stageForeground, stageSession:
		next := stage + 1
		null, err := os.Open(os.DevNull)
		if err != nil {
			return false, err
		}
		defer null.Close()
		if err := os.MkdirAll(logDir, 0700); err != nil {
			return false, err
		}
		out, err := os.OpenFile(filepath.Join(logDir, ErrorLogFile), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		if err != nil {
			return false, err
		}
		defer out.Close()
		pid, err := start(os.Args, sd.ProcAttr{
			Env:    []string{StageEnv + "=" + strconv.Itoa(next)},
			Files:  []*os.File{null, out, out},
			Detach: next == stageSession,
		})
		if err != nil {
			return false, err
		}
		Log(LvlDEBUG, "Detach stage "+strconv.Itoa(next)+" started as pid "+strconv.Itoa(pid))
		return true, nil
	}

	detach := u.Detach
	if detach == nil {
		detach = detachProcess
	}
	if err := detach(installDir(), filepath.Join(logDir, ErrorLogFile)); err != nil {
		return false, err
	}
	unsetenv := u.Unsetenv
	if unsetenv == nil {
		unsetenv = os.Unsetenv
	}
	if err := unsetenv(StageEnv); err != nil {
		return false, err
	}
	u.detached = true
	return false, nil
}

// Restart implements PlatformLifecycle. A detached process hands the final
// stage to its new image, which then stays detached without forking again.
func (u *UnixDaemon) Restart(argv []string) error {
	replace := u.Replace
	if replace == nil {
		replace = sd.Exec
	}
	var env []string
	if u.detached {
		env = []string{StageEnv + "=" + strconv.Itoa(stageDaemon)}
	}
	return replace(argv, env)
}
