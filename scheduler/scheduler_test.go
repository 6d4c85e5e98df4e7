package scheduler

import (
	"testing"
)

func TestParse(t *testing.T) {
	var got string
	s := New(map[string]Action{"pause": func(arg string) { got = arg }})

	e, err := s.parse("0 23 * * *  PAUSE  30 min")
	if err != nil {
		t.Fatal(err)
	}
	if e.spec != "0 23 * * *" || e.name != "pause" || e.arg != "30 min" {
		t.Errorf("parsed %+v", e)
	}
	e.action(e.arg)
	if got != "30 min" {
		t.Errorf("action got %q", got)
	}

	for _, bad := range []string{"", "0 23 * * *", "0 23 * * * reboot"} {
		if _, err := s.parse(bad); err == nil {
			t.Errorf("%q accepted", bad)
		}
	}
}

func TestStartRestartStop(t *testing.T) {
	noop := func(string) {}
	s := New(map[string]Action{"pause": noop, "resume": noop})

	s.Start([]string{"0 23 * * * pause", "30 7 * * 1-5 resume", "61 * * * * pause"})
	if n := s.Entries(); n != 2 {
		t.Fatalf("%d entries, invalid line not skipped", n)
	}

	if s.Restart([]string{"0  23 * * * pause", "30 7 * * 1-5 resume", "61 * * * * pause"}) {
		t.Error("restarted on unchanged schedules")
	}
	if !s.Restart([]string{"0 22 * * * pause"}) {
		t.Error("no restart on changed schedules")
	}
	if n := s.Entries(); n != 1 {
		t.Errorf("%d entries after restart", n)
	}

	s.Stop()
	if s.Entries() != 0 {
		t.Error("entries left after stop")
	}
	if !s.Restart([]string{"0 22 * * * pause"}) {
		t.Error("stopped scheduler not restarted")
	}
	s.Stop()
}
