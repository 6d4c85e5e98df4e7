package bootstrap

import (
	"errors"
	"sync/atomic"

	"github.com/SunSeosahai/sabnzbd/daemon"
	"github.com/SunSeosahai/sabnzbd/log"
	"github.com/SunSeosahai/sabnzbd/web"
)

// WebEngine is the web server collaborator.
type WebEngine interface {
	Start(bindHost string, port int, secure web.Secure) error
	Stop()
	RestartRequested() bool
}

// Scheduler is the timed actions collaborator.
type Scheduler interface {
	Start(specs []string)
	Stop()
	Restart(specs []string) bool
}

// DownloadEngine is the download queue collaborator.
type DownloadEngine interface {
	IsPaused() bool
	HaltGracefully()
	AddLocal(path string) error
}

// Saver persists configuration.
type Saver interface {
	Save(force bool) error
}

// State of the Orchestrator.
type State int32

// Orchestrator states
const (
	Running State = iota
	RestartRequested
	Terminated
)

func (s State) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case RestartRequested:
		return "RESTART_REQUESTED"
	case Terminated:
		return "TERMINATED"
	}
	return "UNKNOWN"
}

// ErrNotRestarting is returned by Finish when Begin has not run.
var ErrNotRestarting = errors.New("no restart in progress")

// Orchestrator takes the process from running to a fresh copy of itself when
// the web engine asks for a restart.
type Orchestrator struct {
	Context    *ProcessContext
	Web        WebEngine
	Scheduler  Scheduler
	Downloader DownloadEngine
	Config     Saver
	Lifecycle  daemon.PlatformLifecycle
	// Stop is the flag ending the steady-state loop.
	Stop *atomic.Bool
	Log  *log.Logger
	// OnState, if set, is told about every state change.
	OnState func(State)

	state  atomic.Int32
	paused bool
}

// State returns the current state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
	if o.OnState != nil {
		o.OnState(s)
	}
}

func (o *Orchestrator) logger() *log.Logger {
	if o.Log == nil {
		return log.GetLogger("restart")
	}
	return o.Log
}

// Check begins a restart if one is requested while running. It reports
// whether the loop must end.
func (o *Orchestrator) Check() bool {
	if o.State() != Running || !o.Web.RestartRequested() {
		return o.State() != Running
	}
	o.Begin()
	return true
}

// Begin stops the collaborators, persists the configuration and raises the
// stop flag. The pause state is read before the downloader is halted.
// A failing save is logged and the restart goes on.
func (o *Orchestrator) Begin() {
	if !o.state.CompareAndSwap(int32(Running), int32(RestartRequested)) {
		return
	}
	l := o.logger()
	l.INFO("Restart requested")

	o.paused = o.Downloader.IsPaused()
	o.Scheduler.Stop()
	o.Downloader.HaltGracefully()
	o.Web.Stop()
	if err := o.Config.Save(true); err != nil {
		l.ERROR("Cannot save configuration before restart", "err", err)
	}
	o.Stop.Store(true)
	if o.OnState != nil {
		o.OnState(RestartRequested)
	}
}

// Argv is the command line the fresh process gets.
func (o *Orchestrator) Argv() []string {
	return o.Context.RestartArgv(o.paused)
}

// Finish starts the fresh process. When the lifecycle replaces the process
// image this only returns on failure. On nil the caller must exit.
func (o *Orchestrator) Finish() error {
	if o.State() != RestartRequested {
		return ErrNotRestarting
	}
	argv := o.Argv()
	o.logger().INFO("Restarting", "argv", argv, "lifecycle", o.Lifecycle.Name())
	o.setState(Terminated)
	return o.Lifecycle.Restart(argv)
}
