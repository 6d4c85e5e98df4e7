package graceful

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"
)

// Server extends http.Server with a Shutdown that stops accepting, lets
// outstanding requests finish and after Timeout closes what is left.
// One Server may Serve several listeners at once.
type Server struct {
	*http.Server

	// Timeout is the duration to allow outstanding requests to survive
	// before forcefully terminating them.
	// A timeout of 0 will make the server wait forever for connections to close
	// by them selves.
	Timeout time.Duration

	// ConnState specifies an optional callback function that is
	// called when a client connection changes state. This is a proxy
	// to the underlying http.Server's ConnState, and the original
	// must not be set directly.
	ConnState func(net.Conn, http.ConnState)

	hook   sync.Once
	mu     sync.Mutex
	conns  map[net.Conn]http.ConnState
	killed int
}

func (srv *Server) track(conn net.Conn, state http.ConnState) {
	srv.mu.Lock()
	switch state {
	case http.StateClosed, http.StateHijacked:
		delete(srv.conns, conn)
	default:
		srv.conns[conn] = state
	}
	srv.mu.Unlock()

	if srv.ConnState != nil {
		srv.ConnState(conn, state)
	}
}

// Serve is equivalent to net/http.Server.Serve() but returns nil when the
// server exits because of Shutdown.
func (srv *Server) Serve(listener net.Listener) error {
	srv.hook.Do(func() {
		srv.conns = make(map[net.Conn]http.ConnState)
		srv.Server.ConnState = srv.track
	})
	err := srv.Server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return err
}

// Shutdown stops all listeners and disables keep-alives, then waits for the
// active connections to finish. Connections still open after Timeout are
// closed and counted as killed.
func (srv *Server) Shutdown() error {
	ctx := context.Background()
	if srv.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, srv.Timeout)
		defer cancel()
	}
	srv.SetKeepAlivesEnabled(false)
	err := srv.Server.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		srv.mu.Lock()
		srv.killed += len(srv.conns)
		srv.mu.Unlock()
		return srv.Server.Close()
	}
	return err
}

// ConnectionsKilled returns how many connections Shutdown had to close.
func (srv *Server) ConnectionsKilled() int {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.killed
}

// Active returns the number of open connections.
func (srv *Server) Active() int {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return len(srv.conns)
}
