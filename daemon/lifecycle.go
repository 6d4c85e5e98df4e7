package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/SunSeosahai/sabnzbd/sd"
)

// ErrNoLogDir is returned when asked to detach without a log directory to
// send standard output and error to.
var ErrNoLogDir = errors.New("no log directory for daemon output")

// ErrorLogFile is the file in the log directory receiving stdout/stderr of a
// detached process.
const ErrorLogFile = "sabnzbd.error.log"

// PlatformLifecycle is how the platform runs the process in the background and
// how it starts a fresh copy of it.
type PlatformLifecycle interface {
	// Name for logging.
	Name() string
	// EnterBackground detaches the process. If exit is true the caller is a
	// transient parent and must exit with code 0 right away.
	EnterBackground(logDir string) (exit bool, err error)
	// Restart starts a fresh copy of the program with argv. On success the
	// caller must exit. Implementations replacing the process image only
	// return on failure.
	Restart(argv []string) error
}

// ProcessStarter starts argv as a new process.
type ProcessStarter func(argv []string, attr sd.ProcAttr) (int, error)

// ProcessReplacer replaces the running process image with argv.
type ProcessReplacer func(argv []string, env []string) error

// SelectLifecycle picks the lifecycle matching the running platform.
func SelectLifecycle() PlatformLifecycle {
	exe, _ := sd.Executable()
	return selectLifecycle(runtime.GOOS, exe)
}

func selectLifecycle(goos, exe string) PlatformLifecycle {
	switch {
	case goos == "windows":
		return &WindowsService{}
	case goos == "darwin" && strings.Contains(filepath.ToSlash(exe), ".app/Contents/"):
		return &RunLoopHost{}
	default:
		return &UnixDaemon{}
	}
}

// respawn starts argv detached, leaving it to the caller to exit.
func respawn(start ProcessStarter, argv []string) error {
	if start == nil {
		start = sd.StartProcess
	}
	pid, err := start(argv, sd.ProcAttr{Detach: true})
	if err != nil {
		return err
	}
	Log(LvlINFO, "Restarted as pid "+strconv.Itoa(pid))
	return nil
}

// WindowsService runs under the Windows service control manager, which owns
// the background state. Restart respawns.
type WindowsService struct {
	Start ProcessStarter
}

// Name implements PlatformLifecycle
func (w *WindowsService) Name() string { return "windows-service" }

// EnterBackground is a no-op; the service wrapper already detached us.
func (w *WindowsService) EnterBackground(logDir string) (bool, error) {
	Log(LvlDEBUG, "Background handled by service wrapper")
	return false, nil
}

// Restart implements PlatformLifecycle
func (w *WindowsService) Restart(argv []string) error {
	return respawn(w.Start, argv)
}

// RunLoopHost runs inside an OS X application bundle whose run loop owns the
// process. The image cannot be replaced in place, so Restart respawns.
type RunLoopHost struct {
	Start ProcessStarter
}

// Name implements PlatformLifecycle
func (r *RunLoopHost) Name() string { return "run-loop" }

// EnterBackground is a no-op; the application bundle is never attached to a
// terminal.
func (r *RunLoopHost) EnterBackground(logDir string) (bool, error) {
	return false, nil
}

// Restart implements PlatformLifecycle
func (r *RunLoopHost) Restart(argv []string) error {
	return respawn(r.Start, argv)
}

func installDir() string {
	exe, err := sd.Executable()
	if err != nil {
		wd, _ := os.Getwd()
		return wd
	}
	return filepath.Dir(exe)
}
