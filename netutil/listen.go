// Package netutil has helpers creating the listeners of the web engine.
package netutil

import (
	"crypto/tls"
	"net"

	xnetutil "golang.org/x/net/netutil"
)

// StreamListener - an object which can create a slice of listeners when invoked.
type StreamListener interface {
	Listen() (listeners []net.Listener, err error)
}

// TCPListener listens on a single TCP address.
type TCPListener struct {
	Addr string
	// MaxConns limits the number of simultaneously accepted connections. 0 is unlimited.
	MaxConns int
	// TLSConfig, if set, wraps the listener in TLS.
	TLSConfig *tls.Config
}

// Listen implements StreamListener
func (t TCPListener) Listen() ([]net.Listener, error) {
	ln, err := net.Listen("tcp", t.Addr)
	if err != nil {
		return nil, err
	}
	if t.MaxConns > 0 {
		ln = xnetutil.LimitListener(ln, t.MaxConns)
	}
	if t.TLSConfig != nil {
		ln = tls.NewListener(ln, t.TLSConfig)
	}
	return []net.Listener{ln}, nil
}

// ListenerGroup listens on all its members. If one fails, the ones already
// opened are closed again.
type ListenerGroup []StreamListener

// Listen implements StreamListener
func (g ListenerGroup) Listen() (listeners []net.Listener, err error) {
	for _, sl := range g {
		var ls []net.Listener
		ls, err = sl.Listen()
		if err != nil {
			for _, l := range listeners {
				l.Close()
			}
			return nil, err
		}
		listeners = append(listeners, ls...)
	}
	return
}
