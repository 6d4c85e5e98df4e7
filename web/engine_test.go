package web

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/SunSeosahai/sabnzbd/instance"
	"github.com/SunSeosahai/sabnzbd/log"
	"github.com/SunSeosahai/sabnzbd/log/syslog"
)

type fakeQueue struct {
	mu     sync.Mutex
	paused bool
	added  map[string]string
}

func (q *fakeQueue) IsPaused() bool { q.mu.Lock(); defer q.mu.Unlock(); return q.paused }
func (q *fakeQueue) Pause()         { q.mu.Lock(); q.paused = true; q.mu.Unlock() }
func (q *fakeQueue) Resume()        { q.mu.Lock(); q.paused = false; q.mu.Unlock() }
func (q *fakeQueue) Add(name string, r io.Reader) error {
	b, err := io.ReadAll(r)
	q.mu.Lock()
	q.added[name] = string(b)
	q.mu.Unlock()
	return err
}

func startEngine(t *testing.T, secure Secure) (*Engine, *fakeQueue, string) {
	t.Helper()
	q := &fakeQueue{added: make(map[string]string)}
	e := &Engine{
		Version:  "4.0.0",
		APIKey:   func() string { return "k3y" },
		Queue:    q,
		Warnings: log.NewRing(20, log.GUILayout),
		Log:      log.NewLogger(syslog.LOG_CRIT, nil),
		Registry: prometheus.NewRegistry(),
	}
	if err := e.Start("127.0.0.1", 0, secure); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Stop)
	scheme := "http"
	if secure.Enabled {
		scheme = "https"
	}
	return e, q, scheme + "://" + e.Addrs()[0].String() + "/"
}

func call(t *testing.T, url string) (int, string) {
	t.Helper()
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}}
	resp, err := client.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, strings.TrimSpace(string(b))
}

func TestAPI(t *testing.T) {
	e, q, base := startEngine(t, Secure{})

	if code, body := call(t, base+"api?mode=version"); code != 200 || body != "4.0.0" {
		t.Errorf("version: %d %q", code, body)
	}
	if code, _ := call(t, base+"api?mode=pause&apikey=wrong"); code != http.StatusForbidden {
		t.Errorf("wrong key accepted: %d", code)
	}
	if code, _ := call(t, base+"api?mode=pause&apikey=k3y"); code != 200 || !q.IsPaused() {
		t.Error("pause failed")
	}
	if code, _ := call(t, base+"api?mode=resume&apikey=k3y"); code != 200 || q.IsPaused() {
		t.Error("resume failed")
	}
	if code, _ := call(t, base+"api?mode=frobnicate&apikey=k3y"); code != http.StatusBadRequest {
		t.Errorf("unknown mode: %d", code)
	}

	if e.RestartRequested() {
		t.Fatal("restart requested from the start")
	}
	call(t, base+"api?mode=restart&apikey=k3y")
	if !e.RestartRequested() {
		t.Error("restart not requested")
	}

	if code, body := call(t, base+"metrics"); code != 200 || !strings.Contains(body, "sabnzbd_http_requests_total") {
		t.Errorf("metrics: %d", code)
	}
}

func TestWarnings(t *testing.T) {
	e, _, base := startEngine(t, Secure{})
	logger := log.NewLogger(syslog.LOG_WARN, e.Warnings)
	logger.WARN("disk almost full")

	_, body := call(t, base+"api?mode=warnings&apikey=k3y")
	var got struct{ Warnings []string }
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Warnings) != 1 || !strings.HasSuffix(got.Warnings[0], "disk almost full") {
		t.Errorf("warnings %v", got.Warnings)
	}
	call(t, base+"api?mode=clearwarnings&apikey=k3y")
	if e.Warnings.Count() != 0 {
		t.Error("warnings not cleared")
	}
}

func TestShutdownCallback(t *testing.T) {
	e, _, base := startEngine(t, Secure{})
	called := make(chan struct{}, 1)
	e.OnShutdown = func() { called <- struct{}{} }
	call(t, base+"api?mode=shutdown&apikey=k3y")
	select {
	case <-called:
	default:
		t.Error("shutdown callback not called")
	}
}

func TestAddFileFromPeer(t *testing.T) {
	_, q, base := startEngine(t, Secure{})

	nzb := filepath.Join(t.TempDir(), "show.nzb")
	if err := os.WriteFile(nzb, []byte("<nzb/>"), 0600); err != nil {
		t.Fatal(err)
	}
	c := instance.New("4.0.0")
	c.APIKey = "k3y"
	if err := c.UploadFile(context.Background(), base, nzb); err != nil {
		t.Fatal(err)
	}
	if q.added["show.nzb"] != "<nzb/>" {
		t.Errorf("queue got %v", q.added)
	}
}

func TestSecureGeneratesCert(t *testing.T) {
	dir := t.TempDir()
	secure := Secure{
		Enabled: true,
		Cert:    filepath.Join(dir, "server.cert"),
		Key:     filepath.Join(dir, "server.key"),
	}
	_, _, base := startEngine(t, secure)
	if code, body := call(t, base+"api?mode=version"); code != 200 || body != "4.0.0" {
		t.Errorf("https version: %d %q", code, body)
	}
	if st, err := os.Stat(secure.Key); err != nil || (runtime.GOOS != "windows" && st.Mode().Perm()&0077 != 0) {
		t.Errorf("key file: %v", err)
	}
	if created, err := EnsureCert(secure.Cert, secure.Key, nil); created || err != nil {
		t.Error("existing certificate regenerated")
	}
}

func TestStartFailsOnBusyPort(t *testing.T) {
	e, _, _ := startEngine(t, Secure{})
	port := e.Addrs()[0].(*net.TCPAddr).Port

	other := &Engine{Version: "x", Log: log.NewLogger(syslog.LOG_CRIT, nil)}
	if err := other.Start("127.0.0.1", port, Secure{}); err == nil {
		other.Stop()
		t.Fatal("started on a busy port")
	}
}
