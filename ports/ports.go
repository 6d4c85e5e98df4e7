// Package ports makes sure the web ports are free before the web engine
// binds them, deferring to a running copy of the same release when it holds
// the port.
package ports

import (
	"context"
	"errors"
	"net"
	"syscall"

	"github.com/SunSeosahai/sabnzbd/endpoint"
	"github.com/SunSeosahai/sabnzbd/log"
)

// Status is the outcome of a bind probe.
type Status int

const (
	// Free means the port could be bound.
	Free Status = iota
	// Occupied means someone else listens on the port.
	Occupied
	// NoPermission means no bind test is possible at all, for example a
	// firewall refusing it. The real bind later decides.
	NoPermission
)

func (s Status) String() string {
	switch s {
	case Free:
		return "free"
	case Occupied:
		return "occupied"
	case NoPermission:
		return "no-permission"
	}
	return "unknown"
}

// ErrNoPermission is returned (wrapped) for bind errors which mean that
// binding is not allowed rather than that the port is taken.
var ErrNoPermission = errors.New("port not bound")

// Prober tests whether host:port can be bound.
type Prober interface {
	Probe(host string, port int) Status
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(host string, port int) Status

func (f ProberFunc) Probe(host string, port int) Status { return f(host, port) }

// Coordinator is asked whether a same-release peer holds url.
// It returns true when the peer took over and this process must exit.
type Coordinator interface {
	ProbeAndHandle(ctx context.Context, url string, uploads []string) bool
}

// ListenProber probes by binding and closing a TCP listener.
type ListenProber struct{}

// Probe implements Prober.
func (ListenProber) Probe(host string, port int) Status {
	l, err := net.Listen("tcp", endpoint.JoinHostPort(host, port))
	if err != nil {
		return Classify(err)
	}
	l.Close()
	return Free
}

// Classify maps a bind error to a Status.
func Classify(err error) Status {
	if err == nil {
		return Free
	}
	if errors.Is(err, ErrNoPermission) {
		return NoPermission
	}
	if errors.Is(err, syscall.EADDRINUSE) {
		return Occupied
	}
	if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EADDRNOTAVAIL) {
		return NoPermission
	}
	var dns *net.DNSError
	if errors.As(err, &dns) {
		return NoPermission
	}
	var addr *net.AddrError
	if errors.As(err, &addr) {
		return NoPermission
	}
	return Occupied
}

// Search limits.
const (
	DefaultStep     = 5
	DefaultAttempts = 10
	// MaxPort is the last registered port. The search never goes into the
	// dynamic range.
	MaxPort = 49151
)

// Negotiator is the Port Negotiator.
type Negotiator struct {
	Prober      Prober
	Coordinator Coordinator
	Step        int
	Attempts    int
	Log         *log.Logger
	// Observe, if set, is told about every probe.
	Observe func(Status)
}

// Request describes the ports to negotiate.
type Request struct {
	BrowserHost   string
	Port          int
	SecureEnabled bool
	SecurePort    int
	Uploads       []string
}

// Result holds the negotiated ports. When Deferred is set a peer took over
// and the process must exit with success.
type Result struct {
	Port          int
	SecureEnabled bool
	SecurePort    int
	Deferred      bool
}

// Negotiate checks the secure port, if enabled, and then the primary port.
func (n *Negotiator) Negotiate(ctx context.Context, req Request) Result {
	res := Result{
		Port:          req.Port,
		SecureEnabled: req.SecureEnabled && req.SecurePort > 0,
		SecurePort:    req.SecurePort,
	}

	if res.SecureEnabled {
		port, deferred := n.negotiate(ctx, "https", req.BrowserHost, req.SecurePort, req.Uploads)
		if deferred {
			res.Deferred = true
			return res
		}
		res.SecurePort = port
	}

	port, deferred := n.negotiate(ctx, "http", req.BrowserHost, req.Port, req.Uploads)
	if deferred {
		res.Deferred = true
		return res
	}
	res.Port = port

	if res.SecureEnabled && res.Port == res.SecurePort {
		n.logger().ERROR("HTTP and HTTPS ports cannot be the same, HTTPS disabled", "port", res.Port)
		res.SecureEnabled = false
	}
	return res
}

func (n *Negotiator) negotiate(ctx context.Context, scheme, host string, port int, uploads []string) (int, bool) {
	l := n.logger()
	switch n.probe(host, port) {
	case Free:
		return port, false
	case NoPermission:
		l.DEBUG("Cannot test port, trying anyway", "host", host, "port", port)
		return port, false
	}

	url := endpoint.BrowserURL(scheme, host, port)
	if n.Coordinator != nil && n.Coordinator.ProbeAndHandle(ctx, url, uploads) {
		l.INFO("Running instance found, leaving it in charge", "url", url)
		return port, true
	}

	if free := n.FindFree(host, port); free > 0 {
		l.WARN("Port in use, moved to another", "from", port, "to", free)
		return free, false
	}
	l.WARN("No free port found, keeping the configured one", "port", port)
	return port, false
}

// FindFree searches upward from port in steps for a free port. It returns
// 0 when the attempts are used up.
func (n *Negotiator) FindFree(host string, port int) int {
	step, attempts := n.Step, n.Attempts
	if step <= 0 {
		step = DefaultStep
	}
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	for i := 1; i <= attempts; i++ {
		candidate := port + i*step
		if candidate > MaxPort {
			break
		}
		if n.probe(host, candidate) == Free {
			return candidate
		}
	}
	return 0
}

func (n *Negotiator) probe(host string, port int) Status {
	p := n.Prober
	if p == nil {
		p = ListenProber{}
	}
	s := p.Probe(host, port)
	if n.Observe != nil {
		n.Observe(s)
	}
	return s
}

func (n *Negotiator) logger() *log.Logger {
	if n.Log != nil {
		return n.Log
	}
	return log.GetLogger("ports")
}
