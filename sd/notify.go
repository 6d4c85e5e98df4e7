package sd

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envNotifySocket = "NOTIFY_SOCKET"
	envWatchdogUsec = "WATCHDOG_USEC"
	envWatchdogPid  = "WATCHDOG_PID"
)

const (
	// Don't send a STATUS
	StatusNone = iota
	// Tell systemd status is READY
	StatusReady
	// Tell systemd status is RELOADING
	StatusReloading
	// Tell systemd status is STOPPING
	StatusStopping
	// Tell the systemd WATCHDOG we are alive
	StatusWatchdog
)

// Unset the systemd notify/Watchdog env vars, so children don't inherit them.
const NotifyUnsetEnv = 1

// ErrSdNotifyNoSocket is informs the caller that there's no NOTIFY_SOCKET avaliable
var ErrSdNotifyNoSocket = errors.New("No systemd notify socket in environment")

var watchdogDuration time.Duration
var watchdogEnabled bool
var notifySocket string

func init() {
	if durStr := os.Getenv(envWatchdogUsec); durStr != "" {
		if microsec, err := strconv.Atoi(durStr); err == nil {
			watchdogDuration = time.Microsecond * time.Duration(microsec)
		}
	}
	if watchdogDuration != 0 {
		pidStr := os.Getenv(envWatchdogPid)
		pid, err := strconv.Atoi(pidStr)
		watchdogEnabled = pidStr == "" || (err == nil && pid == os.Getpid())
	}
	if notifySocket = os.Getenv(envNotifySocket); notifySocket != "" {
		// Handle abstract sockets
		if notifySocket[0] == '@' {
			notifySocket = "\x00" + notifySocket[1:]
		}
	}
}

// WatchdogEnabled tell whether systemd asked us to enable watchdog notifications.
func WatchdogEnabled() (enabled bool, when time.Duration) {
	return watchdogEnabled, watchdogDuration
}

// NotifyStatus sends systemd the service status over the notify socket.
func NotifyStatus(status int, message string) error {
	var lines []string
	switch status {
	case StatusNone:
	case StatusReady:
		lines = append(lines, "READY=1")
	case StatusReloading:
		lines = append(lines, "RELOADING=1")
	case StatusStopping:
		lines = append(lines, "STOPPING=1")
	case StatusWatchdog:
		lines = append(lines, "WATCHDOG=1")
	default:
		return errors.New("Unknown notify status")
	}
	if message != "" {
		lines = append(lines, "STATUS="+message)
	}
	return Notify(0, lines...)
}

// Notify sends the lines as one message to the notify socket.
func Notify(flags int, lines ...string) (err error) {
	if notifySocket == "" {
		return ErrSdNotifyNoSocket
	}
	if flags&NotifyUnsetEnv != 0 {
		defer func() {
			os.Unsetenv(envNotifySocket)
			os.Unsetenv(envWatchdogUsec)
			os.Unsetenv(envWatchdogPid)
		}()
	}

	socketAddr := &net.UnixAddr{
		Name: notifySocket,
		Net:  "unixgram",
	}
	conn, err := net.DialUnix("unixgram", nil, socketAddr)
	if err != nil {
		return fmt.Errorf("sd notify: %w", err)
	}
	defer conn.Close()

	_, err = conn.Write([]byte(strings.Join(lines, "\n")))
	return err
}
