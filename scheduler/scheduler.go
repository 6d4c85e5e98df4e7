// Package scheduler runs the configured timed actions, like pausing the
// downloader at night.
//
// A schedule is a line of a standard 5 field cron spec followed by an action
// name and an optional argument:
//
//	0 23 * * * pause
//	30 7 * * 1-5 resume
package scheduler

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/SunSeosahai/sabnzbd/log"
)

// Action is run when a schedule fires. arg is the optional argument of the line.
type Action func(arg string)

// Scheduler runs schedules on a cron.
type Scheduler struct {
	Log *log.Logger

	mu      sync.Mutex
	actions map[string]Action
	specs   []string
	cron    *cron.Cron
}

// New creates a Scheduler knowing the given actions.
func New(actions map[string]Action) *Scheduler {
	return &Scheduler{
		Log:     log.GetLogger("scheduler"),
		actions: actions,
	}
}

type entry struct {
	spec   string
	action Action
	name   string
	arg    string
}

func (s *Scheduler) parse(line string) (e entry, err error) {
	fields := strings.Fields(line)
	if len(fields) < 6 {
		return e, fmt.Errorf("schedule %q: need 5 time fields and an action", line)
	}
	e.spec = strings.Join(fields[:5], " ")
	e.name = strings.ToLower(fields[5])
	e.arg = strings.Join(fields[6:], " ")
	var ok bool
	if e.action, ok = s.actions[e.name]; !ok {
		return e, fmt.Errorf("schedule %q: unknown action %q", line, e.name)
	}
	return e, nil
}

// Start starts running the schedules. Invalid lines are logged and skipped.
func (s *Scheduler) Start(specs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start(specs)
}

func (s *Scheduler) start(specs []string) {
	c := cron.New()
	for _, line := range specs {
		e, err := s.parse(line)
		if err == nil {
			_, err = c.AddFunc(e.spec, func() {
				s.Log.INFO("Running scheduled action", "action", e.name)
				e.action(e.arg)
			})
		}
		if err != nil {
			s.Log.ERROR("Bad schedule", "err", err)
		}
	}
	c.Start()
	s.cron = c
	s.specs = append([]string(nil), specs...)
	s.Log.DEBUG("Scheduler started", "entries", len(c.Entries()))
}

// Stop stops the cron and waits for running actions.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop()
}

func (s *Scheduler) stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	s.Log.DEBUG("Scheduler stopped")
}

// Restart restarts the scheduler if specs differ from what is running or if
// it is stopped. It reports whether it did.
func (s *Scheduler) Restart(specs []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil && reflect.DeepEqual(normalize(specs), normalize(s.specs)) {
		return false
	}
	s.stop()
	s.start(specs)
	s.Log.INFO("Scheduler restarted")
	return true
}

// Entries returns the number of active schedules.
func (s *Scheduler) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return 0
	}
	return len(s.cron.Entries())
}

func normalize(specs []string) []string {
	out := make([]string, 0, len(specs))
	for _, l := range specs {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return out
}
