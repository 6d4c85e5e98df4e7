package log_test

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/SunSeosahai/sabnzbd/log"
	"github.com/SunSeosahai/sabnzbd/log/syslog"
)

func ExampleNewLogger() {
	h := log.NewFormatter(log.SyncWriter(os.Stdout), log.MessageLayout)
	l := log.NewLogger(syslog.LOG_WARNING, h)

	l.DEBUG("hej")
	l.INFO("hej")
	l.WARN("warn", "port", 8080)
	l.ERROR("error", "host", "my host")
	// Output:
	// warn port=8080
	// error host="my host"
}

func ExampleLogger_With() {
	h := log.NewFormatter(os.Stdout, log.MessageLayout)
	l := log.NewLogger(syslog.LOG_INFO, h).With("pid", 42)
	l.With("stage", 2).INFO("detached")
	// Output:
	// detached pid=42 stage=2
}

func TestLevelNames(t *testing.T) {
	if syslog.LOG_WARN.String() != "WARNING" {
		t.Errorf("got %s", syslog.LOG_WARN)
	}
	if syslog.Priority(42).String() != "UNKNOWN" {
		t.Errorf("got %s", syslog.Priority(42))
	}
}

func TestNamedLoggerInheritsLevelAndHandler(t *testing.T) {
	var buf bytes.Buffer
	root := log.GetLogger("inherit")
	root.SetLevel(syslog.LOG_WARN)
	root.SetHandler(log.NewFormatter(&buf, log.MessageLayout))

	child := log.GetLogger("inherit/a/b")
	child.INFO("dropped")
	child.WARN("kept")
	if got := buf.String(); got != "kept\n" {
		t.Fatalf("unexpected output %q", got)
	}

	root.SetLevel(syslog.LOG_DEBUG)
	if !child.Does(syslog.LOG_DEBUG) {
		t.Fatal("child did not follow parent level")
	}

	child.SetLevel(syslog.LOG_ERR)
	if child.Does(syslog.LOG_WARN) {
		t.Fatal("explicit child level ignored")
	}
	child.InheritLevel()
	if !child.Does(syslog.LOG_DEBUG) {
		t.Fatal("child did not go back to parent level")
	}
}

func TestNamedFilters(t *testing.T) {
	var main, access bytes.Buffer
	parent := log.GetLogger("filters")
	parent.SetHandler(log.MultiHandler(
		log.FilterHandler(log.NotNamed("filters/access"), log.NewFormatter(&main, log.MessageLayout)),
		log.FilterHandler(log.Named("filters/access"), log.NewFormatter(&access, log.MessageLayout)),
	))

	log.GetLogger("filters/access").WARN("GET /api")
	log.GetLogger("filters/accessory").WARN("not access")
	parent.WARN("main")

	if got := main.String(); got != "not access\nmain\n" {
		t.Errorf("main got %q", got)
	}
	if got := access.String(); got != "GET /api\n" {
		t.Errorf("access got %q", got)
	}
}

func TestLineLayout(t *testing.T) {
	var buf bytes.Buffer
	l := log.NewLogger(syslog.LOG_DEBUG, log.NewFormatter(&buf, log.LineLayout))
	l.ERROR("bind failed", "err", os.ErrPermission)
	line := buf.String()
	if !strings.Contains(line, "::ERROR::[sabnzbd] bind failed err=\"permission denied\"") {
		t.Fatalf("unexpected line %q", line)
	}
}

func TestRingEvictsOldest(t *testing.T) {
	const n = 20
	ring := log.NewRing(n, log.MessageLayout)
	l := log.NewLogger(syslog.LOG_DEBUG, log.LvlFilterHandler(syslog.LOG_WARN, ring))

	l.INFO("not captured")
	for i := 0; i <= n; i++ {
		l.WARN("w", "i", i)
	}
	if ring.Count() != n {
		t.Fatalf("expected %d entries, got %d", n, ring.Count())
	}
	content := ring.Content()
	if content[0] != "w i=1" {
		t.Errorf("oldest entry not evicted, first is %q", content[0])
	}
	if ring.Last() != "w i=20" {
		t.Errorf("last is %q", ring.Last())
	}

	ring.Clear()
	if ring.Count() != 0 || ring.Last() != "" {
		t.Error("clear did not empty the ring")
	}
}

func TestStdlibLogger(t *testing.T) {
	var buf bytes.Buffer
	l := log.NewLogger(syslog.LOG_INFO, log.NewFormatter(&buf, log.MessageLayout))
	std := log.NewStdlibLogger(l, syslog.LOG_ERR)
	std.Print("http: TLS handshake error")
	if buf.String() != "http: TLS handshake error\n" {
		t.Fatalf("got %q", buf.String())
	}
}
