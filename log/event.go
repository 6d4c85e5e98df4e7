package log

import (
	"time"

	"github.com/SunSeosahai/sabnzbd/log/syslog"
)

// Event is the basic log event type.
// Handlers passed an Event "e" can access e.Lvl, e.Msg, e.Data, e.Name
type Event struct {
	*event
}

// Do *not* instantiate these yourself. They are immutable once created.
type event struct {
	Lvl  syslog.Priority // Level this event was logged at.
	Msg  string          // Basic log message.
	Data []interface{}   // Structured data, alternating keys and values
	Name string          // Name of the logger generating this event.

	tok  bool
	time time.Time
}

// Time returns the timestamp of an event.
func (e *event) Time() time.Time {
	if e.tok {
		return e.time
	}
	return time.Now()
}

// The primary event constructor.
// KV data is gathered from any context parents, outermost first.
func (l *Logger) newEvent(level syslog.Priority, msg string, data []interface{}) *event {
	e := &event{Lvl: level, Msg: msg, Name: l.name}
	if l.cfg.doingTime() {
		e.time = time.Now()
		e.tok = true
	}

	if l.cparent == nil {
		e.Data = data
		return e
	}

	var chain []*Logger
	for c := l; c != nil; c = c.cparent {
		chain = append(chain, c)
	}
	var n int
	for _, c := range chain {
		n += len(c.data)
	}
	all := make([]interface{}, 0, n+len(data))
	for i := len(chain) - 1; i >= 0; i-- {
		all = append(all, chain[i].data...)
	}
	e.Data = append(all, data...)
	return e
}
