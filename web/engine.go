// Package web is the web engine: it owns the listeners and serves the API
// the bootstrap and peer instances depend on.
package web

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SunSeosahai/sabnzbd/endpoint"
	ghttp "github.com/SunSeosahai/sabnzbd/http"
	"github.com/SunSeosahai/sabnzbd/http/accesslog"
	"github.com/SunSeosahai/sabnzbd/http/rrwriter"
	"github.com/SunSeosahai/sabnzbd/log"
	"github.com/SunSeosahai/sabnzbd/log/syslog"
	"github.com/SunSeosahai/sabnzbd/netutil"
)

// Defaults for the engine.
const (
	DefaultMaxConns        = 100
	DefaultShutdownTimeout = 5 * time.Second
)

// Secure describes the HTTPS listener.
type Secure struct {
	Enabled bool
	// Port of the HTTPS listener. 0 makes the primary port serve HTTPS.
	Port int
	Cert string
	Key  string
}

// Queue is the part of the download engine the API drives.
type Queue interface {
	IsPaused() bool
	Pause()
	Resume()
	Add(name string, r io.Reader) error
}

// Engine serves the web interface and API.
type Engine struct {
	Version string
	// APIKey returns the current API key.
	APIKey func() string
	Queue  Queue
	// Warnings is shown and cleared through the API.
	Warnings *log.Ring
	Log      *log.Logger
	// AccessLog receives one line per request.
	AccessLog *log.Logger
	// Registry, if set, is served on /metrics and gets the request counter.
	Registry *prometheus.Registry
	// OnShutdown is called for mode=shutdown. It must only raise a flag.
	OnShutdown func()

	MaxConns        int
	ShutdownTimeout time.Duration

	mu       sync.Mutex
	server   *ghttp.Server
	cancel   context.CancelFunc
	done     chan struct{}
	requests *prometheus.CounterVec

	restart atomic.Bool
}

func (e *Engine) logger() *log.Logger {
	if e.Log == nil {
		return log.GetLogger("web")
	}
	return e.Log
}

// Start listens on bindHost:port and, if enabled, on the HTTPS port and
// serves in the background. Listen errors are returned.
func (e *Engine) Start(bindHost string, port int, secure Secure) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.server != nil {
		return fmt.Errorf("web engine already started")
	}

	max := e.MaxConns
	if max == 0 {
		max = DefaultMaxConns
	}

	var tlsConfig *tls.Config
	if secure.Enabled {
		created, err := EnsureCert(secure.Cert, secure.Key, []string{bindHost})
		if err == nil {
			if created {
				e.logger().INFO("Generated self-signed certificate", "cert", secure.Cert)
			}
			var cert tls.Certificate
			cert, err = tls.LoadX509KeyPair(secure.Cert, secure.Key)
			if err == nil {
				tlsConfig = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
			}
		}
		if err != nil {
			e.logger().WARN("Disabled HTTPS because of missing certificate or key", "err", err)
		}
	}

	var group netutil.ListenerGroup
	switch {
	case tlsConfig != nil && secure.Port == 0:
		group = append(group, netutil.TCPListener{Addr: endpoint.JoinHostPort(bindHost, port), MaxConns: max, TLSConfig: tlsConfig})
	case tlsConfig != nil:
		group = append(group,
			netutil.TCPListener{Addr: endpoint.JoinHostPort(bindHost, port), MaxConns: max},
			netutil.TCPListener{Addr: endpoint.JoinHostPort(bindHost, secure.Port), MaxConns: max, TLSConfig: tlsConfig})
	default:
		group = append(group, netutil.TCPListener{Addr: endpoint.JoinHostPort(bindHost, port), MaxConns: max})
	}

	srv := ghttp.NewServer("web", e.handler(), group)
	srv.ErrorLog = log.NewStdlibLogger(e.logger(), syslog.LOG_ERROR)
	srv.ReadHeaderTimeout = 30 * time.Second
	srv.Timeout = e.ShutdownTimeout
	if srv.Timeout == 0 {
		srv.Timeout = DefaultShutdownTimeout
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ctx); err != nil {
			e.logger().ERROR("Web engine stopped", "err", err)
		}
	}()
	e.server, e.cancel, e.done = srv, cancel, done
	e.logger().INFO("Web engine started", "listen", srv.Description())
	return nil
}

// Addrs returns the addresses listened on, nil when stopped.
func (e *Engine) Addrs() []net.Addr {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.server == nil {
		return nil
	}
	return e.server.Addrs()
}

// Stop closes the listeners and waits for requests to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.server, e.cancel, e.done = nil, nil, nil
	e.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	e.logger().INFO("Web engine stopped")
}

// RequestRestart marks that the process must be restarted.
func (e *Engine) RequestRestart() {
	e.restart.Store(true)
}

// RestartRequested reports whether a restart was requested.
func (e *Engine) RestartRequested() bool {
	return e.restart.Load()
}

func (e *Engine) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api", e.api)
	mux.HandleFunc("/sabnzbd/api", e.api)
	if e.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(e.Registry, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/", e.index)

	var audit accesslog.AuditFunction
	if e.Registry != nil && e.requests == nil {
		e.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sabnzbd_http_requests_total",
			Help: "HTTP requests served by the web engine.",
		}, []string{"code"})
		if err := e.Registry.Register(e.requests); err != nil {
			e.logger().WARN("Request counter not registered", "err", err)
			e.requests = nil
		}
	}
	if e.requests != nil {
		requests := e.requests
		audit = func(r *http.Request, rec rrwriter.RecordingResponseWriter) {
			code := rec.Status()
			if code == 0 {
				code = http.StatusOK
			}
			requests.WithLabelValues(strconv.Itoa(code)).Inc()
		}
	}
	accessLog := e.AccessLog
	if accessLog == nil {
		accessLog = log.GetLogger("http/access")
	}
	return accesslog.NewHandler(mux, accessLog, audit)
}

func (e *Engine) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/sabnzbd/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html>\n<html><head><title>SABnzbd</title></head><body><h1>SABnzbd %s</h1></body></html>\n", e.Version)
}
