package backend

import (
	"net"
	"net/url"
	"time"
)

// probeURL reports whether a TCP connection to the endpoint's host can be
// opened within the timeout. It deliberately skips any protocol handshake:
// the health check must stay cheap even when the backend is slow.
func probeURL(rawURL string, timeout time.Duration) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "https":
			host = net.JoinHostPort(u.Hostname(), "443")
		default:
			host = net.JoinHostPort(u.Hostname(), "80")
		}
	}
	conn, err := net.DialTimeout("tcp", host, timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
