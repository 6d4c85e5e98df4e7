// Package endpoint turns a requested listen host into the host to bind and
// the host to put in URLs, for self probes and for the user's browser.
package endpoint

import (
	"context"
	"net"
	"os"
	"strconv"
	"strings"
)

// Resolver looks up the addresses of a host. *net.Resolver implements it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Classifier is the Address Classifier.
type Classifier struct {
	Resolver Resolver
	// Hostname returns the local host name. Defaults to os.Hostname.
	Hostname func() (string, error)
}

// Resolved is the outcome of classifying a requested host.
type Resolved struct {
	BindHost    string
	BrowserHost string
	// DualStackAmbiguous is set when the local host has both IPv4 and IPv6
	// addresses and the browser host is not a loopback name, so a browser
	// may pick the wrong stack.
	DualStackAmbiguous bool

	HasIPv4 bool
	HasIPv6 bool
	// IPv4 is the first non link-local IPv4 address of the local host.
	IPv4 string
}

// Loopback spellings of the browser host.
var loopback = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"[::1]":     true,
	"::1":       true,
}

// IsLoopback reports whether host is one of the recognized loopback spellings.
func IsLoopback(host string) bool {
	return loopback[host]
}

// New returns a Classifier using the system resolver.
func New() *Classifier {
	return &Classifier{Resolver: net.DefaultResolver, Hostname: os.Hostname}
}

// Classify resolves requested, which may be empty, a wildcard, a host name
// or an address literal.
func (c *Classifier) Classify(ctx context.Context, requested string) Resolved {
	var r Resolved

	hostname := ""
	if c.Hostname != nil {
		hostname, _ = c.Hostname()
	}
	addrs, err := c.lookup(ctx, hostname)
	if err != nil || hostname == "" {
		// Without a resolvable host name listen everywhere, and classify
		// the stacks from localhost.
		requested = "0.0.0.0"
		addrs, _ = c.lookup(ctx, "localhost")
	}

	for _, a := range addrs {
		ip := net.ParseIP(strings.Trim(a, "[]"))
		if ip != nil && ip.IsLinkLocalUnicast() {
			continue
		}
		if strings.Contains(a, ":") {
			r.HasIPv6 = true
		} else if strings.Contains(a, ".") {
			r.HasIPv4 = true
			if r.IPv4 == "" {
				r.IPv4 = a
			}
		}
	}
	dual := r.HasIPv4 && r.HasIPv6

	switch {
	case requested == "":
		if dual {
			r.BindHost, r.BrowserHost = r.IPv4, r.IPv4
		} else {
			r.BindHost, r.BrowserHost = hostname, hostname
		}
		if r.BindHost == "" {
			r.BindHost, r.BrowserHost = "0.0.0.0", "localhost"
		}
	case requested == "0.0.0.0":
		r.BindHost, r.BrowserHost = "0.0.0.0", "localhost"
	case requested == "::" || requested == "[::]":
		r.BindHost, r.BrowserHost = "::", "localhost"
	case strings.ContainsAny(requested, "[:"):
		r.BindHost, r.BrowserHost = requested, requested
	case isIPv4Literal(requested):
		r.BindHost, r.BrowserHost = requested, requested
	case requested == "localhost":
		r.BindHost, r.BrowserHost = "localhost", "localhost"
	default:
		r.BindHost, r.BrowserHost = requested, requested
		if dual {
			r.BindHost = r.IPv4
		}
	}

	if strings.Contains(r.BindHost, "[") {
		if _, err := c.lookup(ctx, r.BindHost); err != nil {
			r.BindHost = strings.Trim(r.BindHost, "[]")
		}
	}

	r.DualStackAmbiguous = dual && !IsLoopback(r.BrowserHost)
	return r
}

func (c *Classifier) lookup(ctx context.Context, host string) ([]string, error) {
	if c.Resolver == nil {
		return net.DefaultResolver.LookupHost(ctx, host)
	}
	return c.Resolver.LookupHost(ctx, host)
}

func isIPv4Literal(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c != '.' && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// BrowserURL formats scheme://host:port/ putting IPv6 literals in brackets.
func BrowserURL(scheme, host string, port int) string {
	return scheme + "://" + JoinHostPort(host, port) + "/"
}

// JoinHostPort is net.JoinHostPort tolerating an already bracketed host.
func JoinHostPort(host string, port int) string {
	return net.JoinHostPort(strings.Trim(host, "[]"), strconv.Itoa(port))
}

// SplitHost splits a --server argument of the form host, host:port, :port,
// [v6] or [v6]:port. A bare IPv6 literal without brackets is taken as a host.
// port is 0 when none was given.
func SplitHost(s string) (host string, port int, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", 0, nil
	}
	if strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return "", 0, &net.AddrError{Err: "missing ']' in address", Addr: s}
		}
		host = s[:end+1]
		rest := s[end+1:]
		if rest == "" {
			return host, 0, nil
		}
		if !strings.HasPrefix(rest, ":") {
			return "", 0, &net.AddrError{Err: "unexpected text after address", Addr: s}
		}
		port, err = parsePort(rest[1:], s)
		return host, port, err
	}
	if strings.Count(s, ":") > 1 {
		return s, 0, nil
	}
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return s, 0, nil
	}
	port, err = parsePort(s[i+1:], s)
	return s[:i], port, err
}

func parsePort(p, addr string) (int, error) {
	n, err := strconv.Atoi(p)
	if err != nil || n < 1 || n > 65535 {
		return 0, &net.AddrError{Err: "invalid port", Addr: addr}
	}
	return n, nil
}
