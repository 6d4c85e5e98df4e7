// Package http serves a handler on a set of listeners with graceful shutdown.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/SunSeosahai/sabnzbd/http/graceful"
	"github.com/SunSeosahai/sabnzbd/netutil"
)

// Server wraps around gone/http/graceful HTTP server.
// If ErrorLog is set, errors will be logged to it.
type Server struct {
	*graceful.Server
	// The object providing the listeners for this server
	Listeners netutil.StreamListener
	listeners []net.Listener
	// Optionally set a name to by used in logging
	Name string
}

// Listen make the server listen on the listeners returned by the object set in
// in the Listeners attribute. If Listeners is nil, the server will listen on
// the Addr attribute.
func (s *Server) Listen() (err error) {
	lsn := s.Listeners
	if lsn == nil {
		lsn = netutil.TCPListener{Addr: s.Addr, TLSConfig: s.TLSConfig}
	}
	s.listeners, err = lsn.Listen()
	return
}

// Addrs returns the addresses listened on.
func (s *Server) Addrs() []net.Addr {
	addrs := make([]net.Addr, len(s.listeners))
	for i, l := range s.listeners {
		addrs[i] = l.Addr()
	}
	return addrs
}

// Serve will call Serve() on all listeners, shutting down gracefully
// when the context is canceled.
// This method exits when all underlying Serve() calls have exited and a
// shutdown started by ctx has let the outstanding requests finish.
func (s *Server) Serve(ctx context.Context) (err error) {
	listeners := s.listeners
	if len(listeners) == 0 {
		return errors.New("No HTTP listeners for " + s.Name)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex // protect the err return value

	for _, l := range listeners {
		listener := l
		wg.Add(1)
		go func() {
			defer wg.Done()
			if lerr := s.Server.Serve(listener); lerr != nil {
				mu.Lock()
				if err == nil {
					err = lerr
				}
				mu.Unlock()
			}
		}()
	}

	// Serve() returns as soon as Shutdown closes the listeners. Requests
	// still in flight are only done when Shutdown itself returns.
	exit := make(chan struct{})
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		select {
		case <-ctx.Done():
			s.Server.Shutdown()
		case <-exit:
		}
	}()
	wg.Wait()
	close(exit)
	<-drained
	return
}

// Description implements a default textual description for a Server objects
// describing what it's up to.
func (s *Server) Description() string {
	parts := []string{s.Name}
	for _, l := range s.listeners {
		parts = append(parts, l.Addr().Network()+"/"+l.Addr().String())
	}
	return strings.Join(parts, " ")
}

// NewServer creates a Server for handler on the given listeners.
func NewServer(name string, handler http.Handler, listeners netutil.StreamListener) *Server {
	return &Server{
		Server:    &graceful.Server{Server: &http.Server{Handler: handler}},
		Listeners: listeners,
		Name:      name,
	}
}
