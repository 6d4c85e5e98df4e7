package bootstrap

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/SunSeosahai/sabnzbd/ports"
	"github.com/SunSeosahai/sabnzbd/web"
)

// calls records collaborator calls in order.
type calls struct {
	mu  sync.Mutex
	log []string
}

func (c *calls) add(s string) {
	c.mu.Lock()
	c.log = append(c.log, s)
	c.mu.Unlock()
}

func (c *calls) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.log...)
}

type fakeWeb struct {
	calls    *calls
	startErr error
	restart  atomic.Bool
	host     string
	port     int
	secure   web.Secure
}

func (w *fakeWeb) Start(host string, port int, secure web.Secure) error {
	w.calls.add("web.start")
	w.host, w.port, w.secure = host, port, secure
	return w.startErr
}
func (w *fakeWeb) Stop()                  { w.calls.add("web.stop") }
func (w *fakeWeb) RestartRequested() bool { return w.restart.Load() }

type fakeScheduler struct{ calls *calls }

func (s *fakeScheduler) Start([]string)        { s.calls.add("scheduler.start") }
func (s *fakeScheduler) Stop()                 { s.calls.add("scheduler.stop") }
func (s *fakeScheduler) Restart([]string) bool { return false }

type fakeDownloader struct {
	calls  *calls
	paused atomic.Bool
	added  []string
}

func (d *fakeDownloader) IsPaused() bool { return d.paused.Load() }
func (d *fakeDownloader) HaltGracefully() {
	d.calls.add("downloader.halt")
	d.paused.Store(true)
}
func (d *fakeDownloader) AddLocal(path string) error {
	d.added = append(d.added, path)
	return nil
}

type fakeSaver struct {
	calls *calls
	err   error
}

func (s *fakeSaver) Save(force bool) error {
	if force {
		s.calls.add("config.save(force)")
	} else {
		s.calls.add("config.save")
	}
	return s.err
}

type fakeLifecycle struct {
	calls      *calls
	exitParent bool
	logDir     string
	argv       []string
	restartErr error
}

func (l *fakeLifecycle) Name() string { return "fake" }
func (l *fakeLifecycle) EnterBackground(logDir string) (bool, error) {
	l.calls.add("lifecycle.background")
	l.logDir = logDir
	return l.exitParent, nil
}
func (l *fakeLifecycle) Restart(argv []string) error {
	l.calls.add("lifecycle.restart")
	l.argv = argv
	return l.restartErr
}

type fakeResolver map[string][]string

func (r fakeResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	if addrs, ok := r[host]; ok {
		return addrs, nil
	}
	return nil, errors.New("no such host")
}

type fakeCoordinator struct {
	found bool
	urls  []string
}

func (c *fakeCoordinator) ProbeAndHandle(ctx context.Context, url string, uploads []string) bool {
	c.urls = append(c.urls, url)
	return c.found
}

func always(s ports.Status) ports.Prober {
	return ports.ProberFunc(func(string, int) ports.Status { return s })
}

