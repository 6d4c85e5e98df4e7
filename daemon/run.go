package daemon

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/SunSeosahai/sabnzbd/sd"
)

// Defaults for the steady-state loop.
const (
	DefaultInterval          = 3 * time.Second
	DefaultHousekeepingEvery = 10
)

type runcfg struct {
	interval       time.Duration
	every          int
	polls          []func()
	housekeeping   []func()
	until          []func() bool
	readyCallbacks []func() error
	sleep          func(time.Duration)
}

// RunOption change the behaviour of Run()
type RunOption func(*runcfg)

// Interval sets the time slept between loop iterations.
func Interval(d time.Duration) RunOption {
	return RunOption(func(rc *runcfg) {
		rc.interval = d
	})
}

// Poll adds a function called on every iteration.
func Poll(f func()) RunOption {
	return RunOption(func(rc *runcfg) {
		rc.polls = append(rc.polls, f)
	})
}

// Housekeeping adds a function called on every n'th iteration.
// The last given n wins.
func Housekeeping(n int, f func()) RunOption {
	return RunOption(func(rc *runcfg) {
		if n > 0 {
			rc.every = n
		}
		rc.housekeeping = append(rc.housekeeping, f)
	})
}

// Until adds a condition checked after the polls of every iteration.
// The loop exits once it returns true. The condition may raise the stop flag
// itself.
func Until(f func() bool) RunOption {
	return RunOption(func(rc *runcfg) {
		rc.until = append(rc.until, f)
	})
}

// Sleeper replaces time.Sleep between iterations. For tests.
func Sleeper(f func(time.Duration)) RunOption {
	return RunOption(func(rc *runcfg) {
		rc.sleep = f
	})
}

// ReadyCallback sets a function to be called once before the first iteration.
func ReadyCallback(f func() error) RunOption {
	return RunOption(func(rc *runcfg) {
		rc.readyCallbacks = append(rc.readyCallbacks, f)
	})
}

// SdNotifyOnReady makes Run() notify systemd with STATUS=READY before entering the loop.
// If mainpid is true, the MAINPID of the current process is also notified.
func SdNotifyOnReady(mainpid bool, status string) RunOption {
	return RunOption(func(rc *runcfg) {
		rc.readyCallbacks = append(rc.readyCallbacks, func() error {
			var msg [3]string
			c := 0
			msg[c] = "READY=1"
			c++
			if mainpid {
				msg[c] = fmt.Sprintf("MAINPID=%d", os.Getpid())
				c++
			}
			if status != "" {
				msg[c] = fmt.Sprintf("STATUS=%s", status)
				c++
			}
			err := sd.Notify(0, msg[0:c]...)
			if err == sd.ErrSdNotifyNoSocket {
				Log(LvlDEBUG, "No systemd notify socket")
				return nil
			}
			return err
		})
	})
}

// SdWatchdog pings the systemd watchdog on every iteration if systemd asked for it.
func SdWatchdog() RunOption {
	return RunOption(func(rc *runcfg) {
		if ok, _ := sd.WatchdogEnabled(); !ok {
			return
		}
		rc.polls = append(rc.polls, func() {
			if err := sd.NotifyStatus(sd.StatusWatchdog, ""); err != nil {
				Log(LvlWARN, fmt.Sprintf("Watchdog notify: %s", err))
			}
		})
	})
}

// Run is the steady-state loop. It sleeps the interval, runs the polls, runs
// the housekeeping functions on every n'th iteration and evaluates the Until
// conditions. It returns the number of iterations done when stop is set or a
// condition holds.
func Run(stop *atomic.Bool, opts ...RunOption) (iterations int) {
	cfg := &runcfg{
		interval: DefaultInterval,
		every:    DefaultHousekeepingEvery,
		sleep:    time.Sleep,
	}
	for _, o := range opts {
		o(cfg)
	}

	for _, f := range cfg.readyCallbacks {
		if err := f(); err != nil {
			Log(LvlWARN, fmt.Sprintf("Ready callback: %s", err))
		}
	}

	timer := 0
	for !stop.Load() {
		cfg.sleep(cfg.interval)
		if stop.Load() {
			break
		}
		iterations++

		for _, f := range cfg.polls {
			f()
		}

		timer++
		if timer >= cfg.every {
			timer = 0
			for _, f := range cfg.housekeeping {
				f()
			}
		}

		for _, f := range cfg.until {
			if f() {
				Log(LvlDEBUG, "Main loop condition met")
				return
			}
		}
	}
	Log(LvlDEBUG, "Main loop stopped")
	return
}
