package sd

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestNotifyWithoutSocket(t *testing.T) {
	saved := notifySocket
	notifySocket = ""
	defer func() { notifySocket = saved }()

	if err := NotifyStatus(StatusReady, "up"); err != ErrSdNotifyNoSocket {
		t.Fatalf("expected ErrSdNotifyNoSocket, got %v", err)
	}
	if err := NotifyStatus(42, ""); err == nil {
		t.Fatal("unknown status accepted")
	}
}

func TestNotify(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no unixgram sockets")
	}
	name := filepath.Join(t.TempDir(), "notify.sock")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: name, Net: "unixgram"})
	if err != nil {
		t.Skip(err)
	}
	defer conn.Close()

	saved := notifySocket
	notifySocket = name
	defer func() { notifySocket = saved }()

	if err := NotifyStatus(StatusStopping, "Leaving"); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 256)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(buf[:n]); got != "STOPPING=1\nSTATUS=Leaving" {
		t.Errorf("got %q", got)
	}
}

func TestExecutable(t *testing.T) {
	exe, err := Executable()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(exe); err != nil {
		t.Errorf("%s: %v", exe, err)
	}
}
