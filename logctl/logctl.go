// Package logctl owns the sinks and the verbosity of the process wide logger:
// a rotating log file, an optional console, an in-memory ring of recent
// warnings and an optional web access log.
package logctl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/SunSeosahai/sabnzbd/log"
	"github.com/SunSeosahai/sabnzbd/log/syslog"
)

const (
	// LogFile is the persistent log in the log directory.
	LogFile = "sabnzbd.log"
	// ErrorLogFile receives stdout and stderr of a daemonized process.
	ErrorLogFile = "sabnzbd.error.log"
	// AccessLogFile is the web access log.
	AccessLogFile = "access.log"

	// AccessLogger is the logger category of web access records. It is kept
	// out of the main log and the console.
	AccessLogger = "http/access"

	// MaxWarnings is the default capacity of the warnings ring.
	MaxWarnings = 20

	DefaultMaxSize = 5 * 1024 * 1024
	DefaultBackups = 5
)

// Web logging modes
const (
	WebLogOff = iota
	WebLogOn
	WebLogFileOnly
)

// Verbosity levels as stored in config and given with --logging.
var levels = [...]syslog.Priority{syslog.LOG_WARN, syslog.LOG_INFO, syslog.LOG_DEBUG}

// MaxLevel is the most verbose level.
const MaxLevel = len(levels) - 1

// Priority maps a verbosity level 0..2 to a logger level.
// Out of range values are clamped.
func Priority(level int) syslog.Priority {
	if level < 0 {
		level = 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return levels[level]
}

// Options configures the sinks opened by Open.
type Options struct {
	Dir        string
	MaxSize    int64 // bytes
	Backups    int
	Level      int
	WebLogging int

	// Console enables the console sink. Only set it when attached to a
	// console and not daemonized.
	Console bool
	// ConsoleWriter defaults to os.Stderr.
	ConsoleWriter io.Writer

	// TestRelease forces the most verbose level unless TestLog is set.
	// Pending level changes are then ignored as well.
	TestRelease bool
	TestLog     bool
}

// Controller is the Log Lifecycle Controller.
type Controller struct {
	root *log.Logger
	ring *log.Ring

	mu     sync.Mutex
	opts   Options
	file   *lumberjack.Logger
	access *lumberjack.Logger

	pending atomic.Bool
	level   atomic.Int32
}

// New attaches a ring of ringSize warnings to root. Until Open is called the
// ring is the only sink and root logs at warning level.
func New(root *log.Logger, ringSize int) *Controller {
	if ringSize <= 0 {
		ringSize = MaxWarnings
	}
	c := &Controller{
		root: root,
		ring: log.NewRing(ringSize, log.GUILayout),
	}
	root.SetLevel(levels[0])
	root.SetHandler(log.LvlFilterHandler(syslog.LOG_WARN, c.ring))
	return c
}

// Ring returns the warnings ring.
func (c *Controller) Ring() *log.Ring {
	return c.ring
}

// Open creates the log directory and installs the file, console and access
// sinks in front of the ring.
func (c *Controller) Open(opts Options) error {
	if opts.Dir == "" {
		return fmt.Errorf("no log directory")
	}
	if err := os.MkdirAll(opts.Dir, 0o700); err != nil {
		return fmt.Errorf("cannot create log directory: %w", err)
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Backups <= 0 {
		opts.Backups = DefaultBackups
	}
	if opts.ConsoleWriter == nil {
		opts.ConsoleWriter = os.Stderr
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, LogFile),
		MaxSize:    megabytes(opts.MaxSize),
		MaxBackups: opts.Backups,
	}

	handlers := []log.Handler{
		log.LvlFilterHandler(syslog.LOG_WARN, c.ring),
		log.FilterHandler(log.NotNamed(AccessLogger), log.NewFormatter(log.SyncWriter(file), log.LineLayout)),
	}

	var console log.Handler
	if opts.Console {
		console = log.NewFormatter(log.SyncWriter(opts.ConsoleWriter), log.LineLayout)
		handlers = append(handlers, log.FilterHandler(log.NotNamed(AccessLogger), console))
	}

	var access *lumberjack.Logger
	accessLog := log.GetLogger(AccessLogger)
	if opts.WebLogging != WebLogOff {
		access = &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, AccessLogFile),
			MaxSize:    megabytes(opts.MaxSize),
			MaxBackups: opts.Backups,
		}
		handlers = append(handlers, log.FilterHandler(log.Named(AccessLogger),
			log.NewFormatter(log.SyncWriter(access), log.MessageLayout)))
		if opts.WebLogging == WebLogOn && console != nil {
			handlers = append(handlers, log.FilterHandler(log.Named(AccessLogger), console))
		}
		accessLog.SetLevel(syslog.LOG_INFO)
	} else {
		accessLog.SetLevel(syslog.LOG_ERR)
	}

	c.mu.Lock()
	old, oldAccess := c.file, c.access
	c.opts = opts
	c.file = file
	c.access = access
	c.mu.Unlock()

	c.root.SetHandler(log.MultiHandler(handlers...))
	c.apply(c.startLevel(opts))

	if old != nil {
		old.Close()
	}
	if oldAccess != nil {
		oldAccess.Close()
	}
	return nil
}

func (c *Controller) startLevel(opts Options) int {
	if opts.TestRelease && !opts.TestLog {
		return MaxLevel
	}
	return opts.Level
}

func (c *Controller) apply(level int) {
	if level < 0 {
		level = 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	c.level.Store(int32(level))
	c.root.SetLevel(levels[level])
}

// Level returns the current verbosity 0..2.
func (c *Controller) Level() int {
	return int(c.level.Load())
}

// GuardLevel marks a level change as pending. It is meant as the config
// change callback and only sets a flag.
func (c *Controller) GuardLevel() {
	c.pending.Store(true)
}

// Pending reports whether a level change waits for Poll.
func (c *Controller) Pending() bool {
	return c.pending.Load()
}

// Poll applies a pending level change, reading the new level from current.
// Test releases without --testlog keep their forced level and leave the flag
// set. Poll reports whether the level was applied.
func (c *Controller) Poll(current func() int) bool {
	c.mu.Lock()
	locked := c.opts.TestRelease && !c.opts.TestLog
	c.mu.Unlock()
	if locked || !c.pending.Load() {
		return false
	}
	c.pending.Store(false)
	level := current()
	c.apply(level)
	c.root.INFO("Log level changed", "level", level)
	return true
}

// LogPath returns the path of the persistent log, or "" before Open.
func (c *Controller) LogPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return ""
	}
	return c.file.Filename
}

// Close flushes and closes the files. The ring stays attached.
func (c *Controller) Close() error {
	c.mu.Lock()
	file, access := c.file, c.access
	c.file, c.access = nil, nil
	c.mu.Unlock()

	c.root.SetHandler(log.LvlFilterHandler(syslog.LOG_WARN, c.ring))

	var err error
	if file != nil {
		err = file.Close()
	}
	if access != nil {
		if aerr := access.Close(); aerr != nil {
			err = aerr
		}
	}
	return err
}

// ErrorLogPath is the file a daemon sends stdout and stderr to.
func ErrorLogPath(dir string) string {
	return filepath.Join(dir, ErrorLogFile)
}

// Clean removes every file in the log directory.
func Clean(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && fi.Mode().IsRegular() {
			if err := os.Remove(m); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsConsole reports whether stdout and stderr are terminals.
func IsConsole() bool {
	return log.IsTty(os.Stdout) && log.IsTty(os.Stderr)
}

// lumberjack rotates in whole megabytes.
func megabytes(n int64) int {
	mb := int((n + (1 << 20) - 1) >> 20)
	if mb < 1 {
		mb = 1
	}
	return mb
}
