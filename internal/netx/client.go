package netx

import (
	"context"
	"net"
	"net/http"
	"time"
)

type ClientOptions struct {
	Timeout time.Duration
	// PreferIPv4 dials tcp4 only. Some provider hosts publish AAAA records
	// that are unreachable from IPv4-only networks.
	PreferIPv4 bool
}

// NewHTTPClient returns a client for outbound calls to the feed provider and
// the completion service. A zero Timeout falls back to 30s; calls are never
// left unbounded.
func NewHTTPClient(opts ClientOptions) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialContext(dialer, opts.PreferIPv4)
	transport.ResponseHeaderTimeout = timeout

	return &http.Client{Timeout: timeout, Transport: transport}
}

func dialContext(d *net.Dialer, ipv4 bool) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if !ipv4 {
		return d.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if network == "tcp" || network == "tcp6" {
			network = "tcp4"
		}
		return d.DialContext(ctx, network, addr)
	}
}
