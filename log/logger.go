package log

import (
	"sync/atomic"

	"github.com/SunSeosahai/sabnzbd/log/syslog"
)

// LvlDEFAULT is the level new root loggers are created with.
const LvlDEFAULT syslog.Priority = syslog.LOG_INFO

// lconfig holds the part of a Logger which may change during its life.
// It is only accessed through atomic operations.
type lconfig struct {
	config uint32
}

// lconfig uint32 mask
const (
	maskLogLvl  uint32 = 0x00000007 // The log level determining which events are generated
	maskInherit uint32 = 0x00000008 // Follow the level of the name parent
	maskDoTime  uint32 = 0x00000010 // Timestamp events on creation
)

// Logger generates leveled events with optional key/value data.
//
// Don't create these your self. Use NewLogger() or GetLogger().
// Once created only the level and the handler can change, and both are
// changed atomically.
type Logger struct {
	// Position in the named hierarchy. The root has no name and no parent.
	name   string
	parent *Logger

	cfg *lconfig

	// An atomic swappable handle to the loghandler
	h *swapper

	// The Logger is a context-child of another wrt. K/V data created by With().
	cparent *Logger

	data []interface{}
}

// NewLogger creates a new unnamed Logger outside of the named Logger hierarchy.
func NewLogger(level syslog.Priority, handler Handler) *Logger {
	l := &Logger{
		cfg: &lconfig{config: uint32(level)&maskLogLvl | maskDoTime},
		h:   newSwapper(),
	}
	l.h.SwapHandler(handler)
	return l
}

// newChild creates a named Logger which inherits the level of parent.
func newChild(name string, parent *Logger) *Logger {
	return &Logger{
		name:   name,
		parent: parent,
		cfg:    &lconfig{config: maskInherit | maskDoTime},
		h:      newSwapper(),
	}
}

// Name returns the name of the Logger in the hierarchy.
func (l *Logger) Name() string {
	return l.name
}

// SetHandler atomically swaps in a different root of the Handler tree.
// A nil Handler makes the Logger send events to its name parent.
func (l *Logger) SetHandler(h Handler) {
	l.h.SwapHandler(h)
}

// With ties a sub-Context to the Logger.
func (l *Logger) With(kv ...interface{}) *Logger {
	d := normalize(kv)
	return &Logger{
		name:   l.name,
		parent: l.parent,
		cfg:    l.cfg,
		h:      l.h,
		// Limiting the capacity makes append copy, so children never share
		// a backing array.
		data:    d[:len(d):len(d)],
		cparent: l,
	}
}

// DoTime turns timestamping of events on creation on or off.
func (l *Logger) DoTime(doTime bool) {
	for {
		c := atomic.LoadUint32(&l.cfg.config)
		n := c &^ maskDoTime
		if doTime {
			n |= maskDoTime
		}
		if atomic.CompareAndSwapUint32(&l.cfg.config, c, n) {
			return
		}
	}
}

// SetLevel sets the Logger log level. A named logger stops following the
// level of its parent.
func (l *Logger) SetLevel(level syslog.Priority) {
	if level > syslog.LOG_DEBUG {
		level = syslog.LOG_DEBUG
	}
	if level < syslog.LOG_EMERG {
		level = syslog.LOG_EMERG
	}
	for {
		c := atomic.LoadUint32(&l.cfg.config)
		n := c&^(maskLogLvl|maskInherit) | uint32(level)
		if atomic.CompareAndSwapUint32(&l.cfg.config, c, n) {
			return
		}
	}
}

// InheritLevel makes a named Logger follow the level of its parent again.
func (l *Logger) InheritLevel() {
	if l.parent == nil {
		return
	}
	for {
		c := atomic.LoadUint32(&l.cfg.config)
		if atomic.CompareAndSwapUint32(&l.cfg.config, c, c|maskInherit) {
			return
		}
	}
}

// Level returns the current effective log level
func (l *Logger) Level() syslog.Priority {
	for cur := l; ; cur = cur.parent {
		c := atomic.LoadUint32(&cur.cfg.config)
		if c&maskInherit == 0 || cur.parent == nil {
			return syslog.Priority(c & maskLogLvl)
		}
	}
}

// Does returns whether the Logger would generate an event at this level.
func (l *Logger) Does(level syslog.Priority) bool {
	return level <= l.Level()
}

func (lc *lconfig) doingTime() bool {
	return atomic.LoadUint32(&lc.config)&maskDoTime != 0
}
