package log

import (
	"github.com/SunSeosahai/sabnzbd/log/syslog"
)

// Log is the simplest Logger method
func (l *Logger) Log(level syslog.Priority, msg string, kv ...interface{}) (err error) {
	if l.Does(level) {
		err = dispatch(l, l.newEvent(level, msg, normalize(kv)))
	}
	return
}

// ALERT logs at LOG_ALERT
func (l *Logger) ALERT(msg string, kv ...interface{}) {
	l.Log(syslog.LOG_ALERT, msg, kv...)
}

// CRIT logs at LOG_CRIT
func (l *Logger) CRIT(msg string, kv ...interface{}) {
	l.Log(syslog.LOG_CRIT, msg, kv...)
}

// ERROR logs at LOG_ERROR
func (l *Logger) ERROR(msg string, kv ...interface{}) {
	l.Log(syslog.LOG_ERROR, msg, kv...)
}

// WARN logs at LOG_WARN
func (l *Logger) WARN(msg string, kv ...interface{}) {
	l.Log(syslog.LOG_WARN, msg, kv...)
}

// NOTICE logs at LOG_NOTICE
func (l *Logger) NOTICE(msg string, kv ...interface{}) {
	l.Log(syslog.LOG_NOTICE, msg, kv...)
}

// INFO logs at LOG_INFO
func (l *Logger) INFO(msg string, kv ...interface{}) {
	l.Log(syslog.LOG_INFO, msg, kv...)
}

// DEBUG logs at LOG_DEBUG
func (l *Logger) DEBUG(msg string, kv ...interface{}) {
	l.Log(syslog.LOG_DEBUG, msg, kv...)
}
