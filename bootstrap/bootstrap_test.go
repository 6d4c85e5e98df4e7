package bootstrap

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SunSeosahai/sabnzbd/config"
	"github.com/SunSeosahai/sabnzbd/endpoint"
	"github.com/SunSeosahai/sabnzbd/instance"
	"github.com/SunSeosahai/sabnzbd/logctl"
	"github.com/SunSeosahai/sabnzbd/ports"
)

type fixture struct {
	dir      string
	calls    *calls
	deps     Deps
	web      *fakeWeb
	dl       *fakeDownloader
	life     *fakeLifecycle
	stdout   bytes.Buffer
	stderr   bytes.Buffer
	opened   []string
	states   []State
	resolved endpoint.Resolved
	result   ports.Result
}

// newFixture runs Main against fakes. The loop is stopped as soon as the
// process reaches RUNNING unless onRunning says otherwise.
func newFixture(t *testing.T, onRunning func(f *fixture)) *fixture {
	f := &fixture{dir: t.TempDir(), calls: &calls{}}
	f.web = &fakeWeb{calls: f.calls}
	f.dl = &fakeDownloader{calls: f.calls}
	f.life = &fakeLifecycle{calls: f.calls}
	console := false
	f.deps = Deps{
		Stdout:   &f.stdout,
		Stderr:   &f.stderr,
		Hostname: func() (string, error) { return "testhost", nil },
		Resolver: fakeResolver{
			"testhost":  {"192.168.1.10"},
			"localhost": {"127.0.0.1"},
		},
		Prober:     always(ports.Free),
		Browser:    instance.BrowserFunc(func(url string) error { f.opened = append(f.opened, url); return nil }),
		Lifecycle:  f.life,
		Getenv:     func(string) string { return "" },
		Web:        f.web,
		Scheduler:  &fakeScheduler{calls: f.calls},
		Downloader: f.dl,
		Console:    &console,
		Stop:       new(atomic.Bool),
		Signals:    func(*atomic.Bool) {},
		OnListen: func(r endpoint.Resolved, p ports.Result) {
			f.resolved, f.result = r, p
		},
		PollInterval: time.Millisecond,
	}
	f.deps.OnState = func(s State) {
		f.states = append(f.states, s)
		if s == Running {
			if onRunning != nil {
				onRunning(f)
			} else {
				f.deps.Stop.Store(true)
			}
		}
	}
	return f
}

func (f *fixture) main(args ...string) int {
	return Main(append([]string{"sabnzbd", "-f", f.dir}, args...), f.deps)
}

func TestServeOnAllInterfaces(t *testing.T) {
	f := newFixture(t, nil)
	code := f.main("-s", "0.0.0.0:8080")

	require.Equal(t, ExitOK, code, f.stderr.String())
	assert.Equal(t, "0.0.0.0", f.resolved.BindHost)
	assert.Equal(t, "localhost", f.resolved.BrowserHost)
	assert.Equal(t, 8080, f.result.Port)
	assert.Equal(t, "0.0.0.0", f.web.host)
	assert.Equal(t, 8080, f.web.port)
	assert.Equal(t, []State{Running}, f.states)
	assert.Equal(t, []string{"http://localhost:8080/sabnzbd/"}, f.opened)
	assert.Equal(t, []string{"web.start", "scheduler.start", "scheduler.stop", "downloader.halt", "web.stop"}, f.calls.list())

	// the resolved endpoint is persisted
	store := config.New(filepath.Join(f.dir, config.DefaultFile))
	require.NoError(t, store.Load())
	assert.Equal(t, "0.0.0.0", store.GetString(config.Host))
	assert.Equal(t, 8080, store.GetInt(config.Port))
	assert.NotEmpty(t, store.GetString(config.APIKey))

	logged, err := os.ReadFile(filepath.Join(f.dir, "logs", logctl.LogFile))
	require.NoError(t, err)
	assert.Contains(t, string(logged), "SABnzbd starting")
	assert.Contains(t, string(logged), "Leaving SABnzbd")
}

func TestDeferToRunningPeer(t *testing.T) {
	peer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("mode") == "version" {
			fmt.Fprintln(w, Version)
			return
		}
		http.NotFound(w, r)
	}))
	defer peer.Close()
	port := peer.Listener.Addr().(*net.TCPAddr).Port

	f := newFixture(t, nil)
	f.deps.Prober = ports.ListenProber{}
	code := f.main("-s", "127.0.0.1:"+strconv.Itoa(port))

	assert.Equal(t, ExitOK, code)
	assert.Equal(t, []string{fmt.Sprintf("http://127.0.0.1:%d/", port)}, f.opened)
	assert.Empty(t, f.calls.list(), "nothing may start when deferring")
	assert.Empty(t, f.states)
	_, err := os.Stat(filepath.Join(f.dir, "logs", logctl.LogFile))
	assert.True(t, os.IsNotExist(err), "log file written when deferring")
}

func TestDeferToPeerWithFakeCoordinator(t *testing.T) {
	f := newFixture(t, nil)
	coord := &fakeCoordinator{found: true}
	f.deps.Coordinator = coord
	f.deps.Prober = always(ports.Occupied)

	assert.Equal(t, ExitOK, f.main("-s", "localhost:8080"))
	assert.Equal(t, []string{"http://localhost:8080/"}, coord.urls)
	assert.Empty(t, f.calls.list())
}

func TestOccupiedPortSearch(t *testing.T) {
	f := newFixture(t, nil)
	f.deps.Coordinator = &fakeCoordinator{}
	f.deps.Prober = ports.ProberFunc(func(host string, port int) ports.Status {
		if port < 8090 {
			return ports.Occupied
		}
		return ports.Free
	})

	require.Equal(t, ExitOK, f.main("-s", "0.0.0.0:8080", "-n"))
	assert.Equal(t, 8090, f.web.port)
	assert.Empty(t, f.opened)
}

func TestRestartReplacesProcess(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.dl.paused.Store(true)
		f.web.restart.Store(true)
	})
	code := f.main("-s", "0.0.0.0:8080", "--https", "9443")

	require.Equal(t, ExitOK, code, f.stderr.String())
	assert.Equal(t, []State{Running, RestartRequested, Terminated}, f.states)
	assert.Equal(t, []string{"sabnzbd", "-f", filepath.Join(f.dir, config.DefaultFile), "--https", "9443", "-p"}, f.life.argv)
	assert.Equal(t, []string{"web.start", "scheduler.start", "scheduler.stop", "downloader.halt", "web.stop", "lifecycle.restart"}, f.calls.list())
	assert.True(t, f.web.secure.Enabled)
	assert.Equal(t, 9443, f.web.secure.Port)
}

func TestRestartFailure(t *testing.T) {
	f := newFixture(t, func(f *fixture) { f.web.restart.Store(true) })
	f.life.restartErr = errors.New("exec format error")
	assert.Equal(t, ExitFatal, f.main("-s", "0.0.0.0:8080"))
}

func TestLocalUploads(t *testing.T) {
	f := newFixture(t, nil)
	nzb := filepath.Join(f.dir, "show.nzb")
	require.Equal(t, ExitOK, f.main("-s", "0.0.0.0:8080", nzb))
	assert.Equal(t, []string{nzb}, f.dl.added)
}

func TestWebStartFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.web.startErr = errors.New("listen tcp: address already in use")
	assert.Equal(t, ExitWebStart, f.main("-s", "0.0.0.0:8080"))
	assert.Contains(t, f.stderr.String(), "needs a free port")
	assert.Empty(t, f.states)
}

func TestFirewallNeedsForce(t *testing.T) {
	f := newFixture(t, nil)
	f.deps.Prober = always(ports.NoPermission)
	assert.Equal(t, ExitWebStart, f.main("-s", "0.0.0.0:8080"))
	assert.Contains(t, f.stderr.String(), "--force")

	f = newFixture(t, nil)
	f.deps.Prober = always(ports.NoPermission)
	assert.Equal(t, ExitOK, f.main("-s", "0.0.0.0:8080", "--force"))
	assert.Equal(t, []State{Running}, f.states)
}

func TestDaemonParentExits(t *testing.T) {
	f := newFixture(t, nil)
	f.life.exitParent = true
	assert.Equal(t, ExitOK, f.main("-s", "0.0.0.0:8080", "-d"))
	assert.Equal(t, []string{"lifecycle.background"}, f.calls.list())
	assert.Equal(t, filepath.Join(f.dir, "logs"), f.life.logDir)
}

func TestDaemonChildRuns(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, ExitOK, f.main("-s", "0.0.0.0:8080", "-d"))
	assert.Equal(t, "lifecycle.background", f.calls.list()[0])
	assert.Empty(t, f.opened, "no browser for a daemon")
}

func TestCleanOnlyBeforeDetaching(t *testing.T) {
	for stage, kept := range map[string]bool{"": false, "1": true, "2": true} {
		f := newFixture(t, nil)
		f.life.exitParent = stage != "2"
		f.deps.Getenv = func(key string) string { return stage }
		errorLog := logctl.ErrorLogPath(filepath.Join(f.dir, "logs"))
		require.NoError(t, os.MkdirAll(filepath.Dir(errorLog), 0700))
		require.NoError(t, os.WriteFile(errorLog, []byte("stage output\n"), 0600))

		start := time.Now()
		assert.Equal(t, ExitOK, f.main("-s", "0.0.0.0:8080", "-d", "-c", "--delay", "0.3"))
		elapsed := time.Since(start)

		_, err := os.Stat(errorLog)
		assert.Equal(t, kept, err == nil, "stage %q: error log kept", stage)
		if stage == "" {
			assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
		} else {
			assert.Less(t, elapsed, 300*time.Millisecond, "stage %q waited again", stage)
		}
	}
}

func TestUsageExitCodes(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, 2, f.main("--bogus"))
	assert.Contains(t, f.stderr.String(), "Usage:")

	f = newFixture(t, nil)
	assert.Equal(t, ExitFatal, f.main("-l", "9"))

	f = newFixture(t, nil)
	assert.Equal(t, ExitOK, f.main("-v"))
	assert.Contains(t, f.stdout.String(), Version)

	f = newFixture(t, nil)
	assert.Equal(t, ExitOK, f.main("-h"))
	assert.Contains(t, f.stdout.String(), "--config-file")
}

func TestBadConfigIsFatal(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, config.DefaultFile), []byte("misc: [unclosed\n"), 0600))
	assert.Equal(t, ExitFatal, f.main())
	assert.Contains(t, f.stderr.String(), "cannot use the configuration")
}
