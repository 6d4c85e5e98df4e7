package log

import (
	"os"
	"strings"
	"sync"

	"github.com/SunSeosahai/sabnzbd/log/syslog"
)

// All the toplevel package functionality

// The default log context
var defaultLogger *Logger

var man *manager

func init() {
	defaultLogger = NewLogger(LvlDEFAULT, NewFormatter(SyncWriter(os.Stderr), LineLayout))
	man = newManager(defaultLogger)
}

// Default returns the default Logger - which is also the root of the name hierarchy.
func Default() *Logger {
	return defaultLogger
}

// A Logger manager to look up Loggers by name.
type manager struct {
	mu       sync.Mutex
	root     *Logger
	registry map[string]*Logger
}

func newManager(l *Logger) *manager {
	return &manager{root: l, registry: make(map[string]*Logger)}
}

// GetLogger creates a new Logger or returns an already existing with the given name.
// Missing ancestors ("a" and "a/b" for "a/b/c") are created as well.
func GetLogger(name string) *Logger {
	if name == "" {
		return defaultLogger
	}
	return man.getLogger(name)
}

func (m *manager) getLogger(name string) *Logger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookup(name)
}

// must be called with m.mu held
func (m *manager) lookup(name string) *Logger {
	if l, ok := m.registry[name]; ok {
		return l
	}
	parent := m.root
	if i := strings.LastIndexByte(name, '/'); i > 0 {
		parent = m.lookup(name[:i])
	}
	l := newChild(name, parent)
	m.registry[name] = l
	return l
}

// With creates a child K/V logger of the default logger
func With(kv ...interface{}) *Logger {
	return defaultLogger.With(kv...)
}

// SetLevel sets the level of the default logger and so every named logger
// following it.
func SetLevel(level syslog.Priority) {
	defaultLogger.SetLevel(level)
}

// SetHandler sets the Handler of the default logger.
func SetHandler(h Handler) {
	defaultLogger.SetHandler(h)
}

// Level returns the level of the default logger.
func Level() syslog.Priority {
	return defaultLogger.Level()
}

//--- level logger stuff

// ALERT requests the default logger to create a log event
func ALERT(msg string, kv ...interface{}) {
	defaultLogger.Log(syslog.LOG_ALERT, msg, kv...)
}

// CRIT requests the default logger to create a log event
func CRIT(msg string, kv ...interface{}) {
	defaultLogger.Log(syslog.LOG_CRIT, msg, kv...)
}

// ERROR requests the default logger to create a log event
func ERROR(msg string, kv ...interface{}) {
	defaultLogger.Log(syslog.LOG_ERROR, msg, kv...)
}

// WARN requests the default logger to create a log event
func WARN(msg string, kv ...interface{}) {
	defaultLogger.Log(syslog.LOG_WARN, msg, kv...)
}

// NOTICE requests the default logger to create a log event
func NOTICE(msg string, kv ...interface{}) {
	defaultLogger.Log(syslog.LOG_NOTICE, msg, kv...)
}

// INFO requests the default logger to create a log event
func INFO(msg string, kv ...interface{}) {
	defaultLogger.Log(syslog.LOG_INFO, msg, kv...)
}

// DEBUG requests the default logger to create a log event
func DEBUG(msg string, kv ...interface{}) {
	defaultLogger.Log(syslog.LOG_DEBUG, msg, kv...)
}
