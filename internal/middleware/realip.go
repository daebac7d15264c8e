package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ParseTrustedProxies parses IPs and CIDRs. A bare IP becomes a single-host prefix.
func ParseTrustedProxies(values []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", v, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", v, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// RealIP rewrites r.RemoteAddr to the client address reported by a trusted
// proxy. Forwarding headers from any other peer are ignored, so the rate
// limiter keys on an address the client cannot choose.
//
// X-Forwarded-For is walked from the right, skipping trusted hops; the first
// untrusted entry is the client. X-Real-IP is used when X-Forwarded-For is absent.
func RealIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(trusted) > 0 {
				if peer, ok := parseAddr(remoteHost(r.RemoteAddr)); ok && isTrusted(trusted, peer) {
					if client, ok := forwardedClient(r, trusted); ok {
						r.RemoteAddr = net.JoinHostPort(client.String(), "0")
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forwardedClient(r *http.Request, trusted []netip.Prefix) (netip.Addr, bool) {
	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			addr, ok := parseAddr(strings.TrimSpace(hops[i]))
			if !ok {
				return netip.Addr{}, false
			}
			if !isTrusted(trusted, addr) {
				return addr, true
			}
		}
		return netip.Addr{}, false
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return parseAddr(strings.TrimSpace(xri))
	}
	return netip.Addr{}, false
}

func isTrusted(trusted []netip.Prefix, addr netip.Addr) bool {
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func parseAddr(s string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// remoteHost strips the port from a RemoteAddr.
func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
