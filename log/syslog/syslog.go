// Package syslog holds the severity levels used by the log package.
// The values match the numeric severities of the "log/syslog" package,
// which is not available on all platforms.
package syslog

type Priority int

const (
	LOG_EMERG Priority = iota
	LOG_ALERT
	LOG_CRIT
	LOG_ERR
	LOG_WARNING
	LOG_NOTICE
	LOG_INFO
	LOG_DEBUG
)

// aliases

const (
	LOG_ERROR Priority = LOG_ERR
	LOG_WARN  Priority = LOG_WARNING
)

var names = [...]string{
	LOG_EMERG:   "EMERGENCY",
	LOG_ALERT:   "ALERT",
	LOG_CRIT:    "CRITICAL",
	LOG_ERR:     "ERROR",
	LOG_WARNING: "WARNING",
	LOG_NOTICE:  "NOTICE",
	LOG_INFO:    "INFO",
	LOG_DEBUG:   "DEBUG",
}

// String returns the upper case level name used in log lines.
func (p Priority) String() string {
	if p < LOG_EMERG || p > LOG_DEBUG {
		return "UNKNOWN"
	}
	return names[p]
}
