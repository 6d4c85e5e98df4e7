package daemon

import (
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SunSeosahai/sabnzbd/sd"
)

func noSleep(time.Duration) {}

func TestRunHousekeepingEveryNth(t *testing.T) {
	var stop atomic.Bool
	var polls, chores int

	n := Run(&stop,
		Sleeper(noSleep),
		Poll(func() {
			polls++
			if polls == 25 {
				stop.Store(true)
			}
		}),
		Housekeeping(10, func() { chores++ }),
	)
	if n != 25 || polls != 25 {
		t.Fatalf("iterations %d, polls %d", n, polls)
	}
	if chores != 2 {
		t.Errorf("housekeeping ran %d times, want 2", chores)
	}
}

func TestRunUntil(t *testing.T) {
	var stop atomic.Bool
	var ready bool
	n := Run(&stop,
		Sleeper(noSleep),
		ReadyCallback(func() error { ready = true; return nil }),
		Until(func() bool { return true }),
	)
	if n != 1 || !ready {
		t.Errorf("iterations %d ready %v", n, ready)
	}
}

func TestRunStoppedBeforeStart(t *testing.T) {
	var stop atomic.Bool
	stop.Store(true)
	slept := false
	if n := Run(&stop, Sleeper(func(time.Duration) { slept = true })); n != 0 || slept {
		t.Errorf("loop ran with stop set")
	}
}

func TestSelectLifecycle(t *testing.T) {
	cases := []struct {
		goos, exe, name string
	}{
		{"linux", "/usr/bin/sabnzbd", "unix-daemon"},
		{"freebsd", "/usr/local/bin/sabnzbd", "unix-daemon"},
		{"darwin", "/usr/local/bin/sabnzbd", "unix-daemon"},
		{"darwin", "/Applications/SABnzbd.app/Contents/MacOS/sabnzbd", "run-loop"},
		{"windows", `C:\Program Files\SABnzbd\sabnzbd.exe`, "windows-service"},
	}
	for _, c := range cases {
		if got := selectLifecycle(c.goos, c.exe).Name(); got != c.name {
			t.Errorf("%s %s: got %s, want %s", c.goos, c.exe, got, c.name)
		}
	}
}

func TestEnterBackgroundNeedsLogDir(t *testing.T) {
	u := &UnixDaemon{}
	if _, err := u.EnterBackground(""); !errors.Is(err, ErrNoLogDir) {
		t.Fatalf("expected ErrNoLogDir, got %v", err)
	}
}

func TestEnterBackgroundStages(t *testing.T) {
	var got []sd.ProcAttr
	start := func(argv []string, attr sd.ProcAttr) (int, error) {
		got = append(got, attr)
		return 4242, nil
	}

	for stage, detach := range map[string]bool{"": true, "1": false} {
		got = nil
		u := &UnixDaemon{
			Start:  start,
			Getenv: func(string) string { return stage },
		}
		exit, err := u.EnterBackground(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		if !exit || len(got) != 1 {
			t.Fatalf("stage %q: parent did not hand over", stage)
		}
		if got[0].Detach != detach {
			t.Errorf("stage %q: detach=%v", stage, got[0].Detach)
		}
		if len(got[0].Env) != 1 || !strings.HasPrefix(got[0].Env[0], StageEnv+"=") {
			t.Errorf("stage %q: env %v", stage, got[0].Env)
		}
	}
}

func TestEnterBackgroundFinalStage(t *testing.T) {
	dir := t.TempDir()
	var detachedTo string
	var unset, replacedEnv []string
	u := &UnixDaemon{
		Start: func([]string, sd.ProcAttr) (int, error) {
			t.Fatal("final stage must not start another process")
			return 0, nil
		},
		Getenv: func(string) string { return "2" },
		Unsetenv: func(key string) error {
			unset = append(unset, key)
			return nil
		},
		Detach: func(wd, errorLog string) error {
			detachedTo = errorLog
			return nil
		},
		Replace: func(a []string, env []string) error {
			replacedEnv = env
			return nil
		},
	}
	exit, err := u.EnterBackground(dir)
	if err != nil || exit {
		t.Fatalf("exit=%v err=%v", exit, err)
	}
	if !strings.HasSuffix(detachedTo, ErrorLogFile) {
		t.Errorf("stdout/stderr sent to %q", detachedTo)
	}
	if len(unset) != 1 || unset[0] != StageEnv {
		t.Errorf("stage variable left in the environment: unset %v", unset)
	}

	if err := u.Restart([]string{"sabnzbd", "-d"}); err != nil {
		t.Fatal(err)
	}
	if len(replacedEnv) != 1 || replacedEnv[0] != StageEnv+"=2" {
		t.Errorf("restarted daemon gets env %v", replacedEnv)
	}
}

func TestDetachStage(t *testing.T) {
	for env, want := range map[string]int{"": 0, "1": 1, "2": 2, "3": 0, "x": 0} {
		if got := DetachStage(func(string) string { return env }); got != want {
			t.Errorf("stage %q: got %d, want %d", env, got, want)
		}
	}
}

func TestEnterBackgroundStartFailure(t *testing.T) {
	u := &UnixDaemon{
		Start: func([]string, sd.ProcAttr) (int, error) {
			return 0, os.ErrPermission
		},
		Getenv: func(string) string { return "" },
	}
	if _, err := u.EnterBackground(t.TempDir()); err == nil {
		t.Fatal("start failure not reported")
	}
}

func TestRestartVariants(t *testing.T) {
	argv := []string{"sabnzbd", "-f", "/etc/sabnzbd.yaml", "-p"}

	var replaced, replacedEnv []string
	u := &UnixDaemon{Replace: func(a []string, env []string) error {
		replaced, replacedEnv = a, env
		return nil
	}}
	if err := u.Restart(argv); err != nil || len(replaced) != len(argv) {
		t.Errorf("unix restart: %v %v", err, replaced)
	}
	if replacedEnv != nil {
		t.Errorf("foreground restart passes env %v", replacedEnv)
	}

	var started []string
	var detached bool
	start := func(a []string, attr sd.ProcAttr) (int, error) {
		started, detached = a, attr.Detach
		return 1, nil
	}
	for _, l := range []PlatformLifecycle{&WindowsService{Start: start}, &RunLoopHost{Start: start}} {
		started = nil
		if err := l.Restart(argv); err != nil {
			t.Fatal(err)
		}
		if len(started) != len(argv) || !detached {
			t.Errorf("%s did not respawn detached", l.Name())
		}
		if exit, err := l.EnterBackground("/nowhere"); exit || err != nil {
			t.Errorf("%s: EnterBackground should be a no-op", l.Name())
		}
	}
}
