package log

import (
	"io"
	stdlog "log"
	"strings"

	"github.com/SunSeosahai/sabnzbd/log/syslog"
)

// StdlibAdapter wraps a Logger so it can be the output of a standard
// library *log.Logger. Each line written becomes one event at the given level.
type StdlibAdapter struct {
	level  syslog.Priority
	logger *Logger
}

// NewStdlibAdapter returns an io.Writer logging every line to logger at level.
func NewStdlibAdapter(logger *Logger, level syslog.Priority) io.Writer {
	return StdlibAdapter{level: level, logger: logger}
}

func (a StdlibAdapter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			a.logger.Log(a.level, line)
		}
	}
	return len(p), nil
}

// NewStdlibLogger returns a standard library logger writing to logger,
// as needed by net/http.Server.ErrorLog.
func NewStdlibLogger(logger *Logger, level syslog.Priority) *stdlog.Logger {
	return stdlog.New(NewStdlibAdapter(logger, level), "", 0)
}
